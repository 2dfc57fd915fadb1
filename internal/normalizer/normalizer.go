// Package normalizer приводит ответы фида разных схем к []models.ModelBlock.
//
// Схемы перебираются в фиксированном порядке: сначала структурированные
// "account totals", в конце устаревший плоский "positions". Побеждает первая
// схема, давшая хотя бы один непустой блок.
package normalizer

import (
	"github.com/bytedance/sonic"

	"mirror_bot/internal/models"
)

type parser struct {
	name  string
	parse func(doc any) []models.ModelBlock
}

var chain = []parser{
	{"accountTotals", parseAccountTotals},
	{"models", parseModels},
	{"data.models", parseDataModels},
	{"accounts", parseAccounts},
	{"totals", parseTotals},
	{"account", parseSingleAccount},
	{"legacy_list", parseLegacyList},
	{"legacy_positions", parseLegacyPositions},
}

// ParserNames порядок схем.
func ParserNames() []string {
	out := make([]string, len(chain))
	for i, p := range chain {
		out[i] = p.name
	}
	return out
}

// Normalize битый JSON или неизвестная схема — пустой результат, не ошибка.
func Normalize(raw []byte) []models.ModelBlock {
	blocks, _ := NormalizeNamed(raw)
	return blocks
}

// NormalizeNamed то же, плюс имя сработавшей схемы.
func NormalizeNamed(raw []byte) ([]models.ModelBlock, string) {
	if len(raw) == 0 {
		return nil, ""
	}
	var doc any
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return nil, ""
	}
	return NormalizeDocument(doc)
}

func NormalizeDocument(doc any) ([]models.ModelBlock, string) {
	for _, p := range chain {
		blocks := p.parse(doc)
		if hasPositions(blocks) {
			return blocks, p.name
		}
	}
	return nil, ""
}

func hasPositions(blocks []models.ModelBlock) bool {
	for _, b := range blocks {
		if len(b.Positions) > 0 {
			return true
		}
	}
	return false
}

func parseAccountTotals(doc any) []models.ModelBlock {
	list, ok := asList(field(doc, "accountTotals"))
	if !ok {
		return nil
	}
	var out []models.ModelBlock
	for _, item := range list {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		id := str(m["id"])
		if id == "" {
			continue
		}
		if !isCollection(m["positions"]) {
			continue
		}
		out = append(out, models.ModelBlock{
			ModelID:   id,
			Name:      str(m["name"]),
			Positions: positionsMapOrList(m["positions"]),
		})
	}
	return out
}

func parseModels(doc any) []models.ModelBlock {
	return blocksFromList(field(doc, "models"))
}

func parseDataModels(doc any) []models.ModelBlock {
	return blocksFromList(field(field(doc, "data"), "models"))
}

func blocksFromList(v any) []models.ModelBlock {
	list, ok := asList(v)
	if !ok {
		return nil
	}
	var out []models.ModelBlock
	for _, item := range list {
		m, ok := asMap(item)
		if !ok {
			continue
		}
		out = append(out, models.ModelBlock{
			ModelID:   str(m["id"]),
			Name:      str(m["name"]),
			Positions: positionsMapOrList(m["positions"]),
		})
	}
	return out
}

func parseAccounts(doc any) []models.ModelBlock {
	list, ok := asList(field(doc, "accounts"))
	if !ok {
		return nil
	}
	var out []models.ModelBlock
	for _, item := range list {
		acc, ok := asMap(item)
		if !ok {
			continue
		}
		id := firstString(acc, "id", "name")
		if id == "" {
			id = "default"
		}
		pos := positionsMapOrList(firstPresent(acc, "positions", "assets", "totals"))
		if len(pos) == 0 {
			continue
		}
		out = append(out, models.ModelBlock{ModelID: id, Name: str(acc["name"]), Positions: pos})
	}
	return out
}

// parseTotals плоские строки {id, symbol, qty}, группируются по id.
func parseTotals(doc any) []models.ModelBlock {
	list, ok := asList(field(doc, "totals"))
	if !ok {
		return nil
	}
	var (
		order []string
		byID  = make(map[string]map[string]models.TargetPosition)
	)
	for _, item := range list {
		row, ok := asMap(item)
		if !ok {
			continue
		}
		sym, okSym := pickSymbol(row)
		qty, okQty := pickQty(row)
		if !okSym || !okQty {
			continue
		}
		id := str(row["id"])
		if id == "" {
			id = "default"
		}
		if _, seen := byID[id]; !seen {
			byID[id] = make(map[string]models.TargetPosition)
			order = append(order, id)
		}
		byID[id][sym] = toTarget(row, qty)
	}

	out := make([]models.ModelBlock, 0, len(order))
	for _, id := range order {
		out = append(out, models.ModelBlock{ModelID: id, Positions: byID[id]})
	}
	return out
}

func parseSingleAccount(doc any) []models.ModelBlock {
	m, ok := asMap(doc)
	if !ok {
		return nil
	}
	if _, ok := m["id"]; !ok {
		return nil
	}
	rows := firstPresent(m, "positions", "assets", "totals")
	if rows == nil {
		return nil
	}
	pos := positionsMapOrList(rows)
	if len(pos) == 0 {
		return nil
	}
	return []models.ModelBlock{{ModelID: str(m["id"]), Name: str(m["name"]), Positions: pos}}
}

// parseLegacyList [{id, positions}, ...] на верхнем уровне.
func parseLegacyList(doc any) []models.ModelBlock {
	list, ok := asList(doc)
	if !ok || len(list) == 0 {
		return nil
	}
	first, ok := asMap(list[0])
	if !ok {
		return nil
	}
	if _, ok := first["id"]; !ok {
		return nil
	}
	if _, ok := first["positions"]; !ok {
		return nil
	}
	return blocksFromList(list)
}

func parseLegacyPositions(doc any) []models.ModelBlock {
	m, ok := asMap(doc)
	if !ok {
		return nil
	}
	if !isCollection(m["positions"]) {
		return nil
	}
	id := str(m["modelId"])
	if id == "" {
		id = "default"
	}
	return []models.ModelBlock{{ModelID: id, Positions: positionsMapOrList(m["positions"])}}
}
