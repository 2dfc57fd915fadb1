package reconciler

import (
	"mirror_bot/internal/models"
	"mirror_bot/internal/sizing"
)

// ResolveTolerance порог расхождения в единицах объёма.
// last == 0 — цена неизвестна.
func ResolveTolerance(rule models.ToleranceRule, step, last, target float64) float64 {
	if step <= 0 {
		step = sizing.MinStep
	}
	switch rule.Mode {
	case models.ToleranceByStep:
		return step * rule.Value
	case models.ToleranceNotionalUSD:
		if last <= 0 {
			return step
		}
		return sizing.SnapQuantity(rule.Value/last, 0, step)
	case models.TolerancePercentTarget:
		return sizing.SnapQuantity(target*rule.Value/100, 0, step)
	case models.ToleranceAbsolute:
		return rule.Value
	}
	return step
}

// ruleFor правило символа целиком заменяет глобальное.
func (e *Engine) ruleFor(symbol string) models.ToleranceRule {
	tol := e.cfg.Sizing.Tolerance
	if r, ok := tol.PerSymbol[symbol]; ok {
		return r
	}
	return models.ToleranceRule{Mode: tol.Mode, Value: tol.Value}
}
