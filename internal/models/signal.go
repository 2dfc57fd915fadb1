package models

// ModelBlock позиции одной модели из фида.
type ModelBlock struct {
	ModelID   string
	Name      string
	Positions map[string]TargetPosition // ключ — символ фида в верхнем регистре
}

// Symbols символы блока (порядок не гарантирован).
func (b ModelBlock) Symbols() []string {
	out := make([]string, 0, len(b.Positions))
	for s := range b.Positions {
		out = append(out, s)
	}
	return out
}
