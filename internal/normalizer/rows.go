package normalizer

import (
	"math"
	"strconv"
	"strings"

	"mirror_bot/internal/models"
)

var (
	qtyAliases    = []string{"quantity", "qty", "position", "amount", "size", "balance", "free", "value"}
	symbolAliases = []string{"symbol", "ticker", "coin", "asset", "name"}
)

// positionsMapOrList {SYM: {...}} или [{symbol: ...}, ...] → символ → цель.
func positionsMapOrList(v any) map[string]models.TargetPosition {
	out := make(map[string]models.TargetPosition)

	if m, ok := asMap(v); ok {
		for sym, raw := range m {
			row, ok := asMap(raw)
			if !ok {
				continue
			}
			qty, ok := pickQty(row)
			if !ok {
				continue
			}
			key := strings.ToUpper(strings.TrimSpace(sym))
			if key == "" {
				continue
			}
			out[key] = toTarget(row, qty)
		}
		return out
	}

	list, ok := asList(v)
	if !ok {
		return out
	}
	for _, raw := range list {
		row, ok := asMap(raw)
		if !ok {
			continue
		}
		sym, okSym := pickSymbol(row)
		qty, okQty := pickQty(row)
		if !okSym || !okQty {
			continue
		}
		out[sym] = toTarget(row, qty)
	}
	return out
}

func pickQty(row map[string]any) (float64, bool) {
	for _, k := range qtyAliases {
		if f, ok := number(row[k]); ok {
			return f, true
		}
	}
	return 0, false
}

func pickSymbol(row map[string]any) (string, bool) {
	for _, k := range symbolAliases {
		if s, ok := row[k].(string); ok && s != "" {
			return strings.ToUpper(s), true
		}
	}
	return "", false
}

// toTarget поле side, если есть, задаёт знак объёма.
func toTarget(row map[string]any, qty float64) models.TargetPosition {
	switch strings.ToLower(str(row["side"])) {
	case "short", "sell":
		if qty > 0 {
			qty = -qty
		}
	case "long", "buy":
		if qty < 0 {
			qty = -qty
		}
	}

	t := models.TargetPosition{
		SignedQuantity: qty,
		EntryPrice:     firstNumber(row, "entry_price", "avg_price", "entryPrice"),
		EntryOrderID:   firstString(row, "entry_oid", "entryOrderId"),
		EntryTimestamp: firstNumber(row, "entry_time", "entryTime"),
		RiskUSD:        firstNumber(row, "risk_usd"),
		Leverage:       firstNumber(row, "leverage", "lev"),
	}
	if c, ok := number(firstPresent(row, "confidence", "conf")); ok {
		t.Confidence = &c
	}
	if plan, ok := asMap(row["exit_plan"]); ok {
		if v, ok := number(firstPresent(plan, "profit_target", "take_profit")); ok && v != 0 {
			t.ExitPlan.TakeProfit = &v
		}
		if v, ok := number(plan["stop_loss"]); ok && v != 0 {
			t.ExitPlan.StopLoss = &v
		}
	}
	return t
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func firstNumber(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if f, ok := number(m[k]); ok {
			return f
		}
	}
	return 0
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := str(m[k]); s != "" {
			return s
		}
	}
	return ""
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// str строки как есть, числа (id/oid бывают числовыми) — без экспоненты.
func str(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

func isCollection(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

func field(v any, key string) any {
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	return m[key]
}
