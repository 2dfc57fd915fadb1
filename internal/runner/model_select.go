package runner

import (
	"regexp"
	"strings"

	"mirror_bot/internal/models"
)

var (
	instanceSuffix = regexp.MustCompile(`_\d+$`)
	nonAlnum       = regexp.MustCompile(`[^a-z0-9]+`)
)

// normModel нижний регистр, всё кроме [a-z0-9] → "-".
func normModel(s string) string {
	s = nonAlnum.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// canonModel отрезает хвост экземпляра "_<число>" ("v3.1" не трогаем).
func canonModel(s string) string {
	return normModel(instanceSuffix.ReplaceAllString(s, ""))
}

type matchKind int

const (
	matchNone matchKind = iota
	matchExact
	matchPrefix
	matchSingle
)

func (k matchKind) String() string {
	switch k {
	case matchExact:
		return "exact"
	case matchPrefix:
		return "prefix"
	case matchSingle:
		return "single"
	}
	return "none"
}

func blockMatches(b models.ModelBlock, wantCanon, wantNorm string) matchKind {
	for _, v := range []string{b.ModelID, b.Name} {
		if v != "" && canonModel(v) == wantCanon {
			return matchExact
		}
	}
	// запасной вариант: deepseek-chat-v3.1-<номер>
	for _, v := range []string{b.ModelID, b.Name} {
		if v != "" && strings.HasPrefix(normModel(v), wantNorm+"-") {
			return matchPrefix
		}
	}
	return matchNone
}

// selectBlock блок нужной модели. Если не нашли и в фиде ровно один блок — берём его при singleFallback.
func selectBlock(blocks []models.ModelBlock, want string, singleFallback bool) (models.ModelBlock, matchKind) {
	wantCanon, wantNorm := canonModel(want), normModel(want)
	for _, b := range blocks {
		if k := blockMatches(b, wantCanon, wantNorm); k != matchNone {
			return b, k
		}
	}
	if singleFallback && len(blocks) == 1 {
		return blocks[0], matchSingle
	}
	return models.ModelBlock{}, matchNone
}

func blockLabel(b models.ModelBlock) string {
	if b.ModelID != "" {
		return b.ModelID
	}
	if b.Name != "" {
		return b.Name
	}
	return "<?>"
}
