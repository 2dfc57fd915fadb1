// Package sizing чистые функции расчёта объёма: квантование под lotSizeFilter
// и перевод сигнального объёма в локальный.
package sizing

import (
	"math"

	"github.com/shopspring/decimal"
)

// MinStep подставляется, когда биржа вернула нулевой qtyStep.
const MinStep = 1e-8

// SnapQuantity округляет raw ВНИЗ к шагу лота и проверяет минимум.
// Результат кратен step либо равен 0 ("ниже минимума биржи — не торгуем").
// NaN и ±Inf во входе тоже дают 0.
func SnapQuantity(raw, minQty, step float64) float64 {
	if !finite(raw) || !finite(step) || raw <= 0 {
		return 0
	}
	if step <= 0 {
		step = MinStep
	}

	s := decimal.NewFromFloat(step)
	q := decimal.NewFromFloat(raw).
		Div(s).
		Floor().
		Mul(s).
		Round(precisionFromStep(s))

	v, _ := q.Float64()
	if v < minQty {
		return 0
	}
	return v
}

// FloorToStep округление вниз к шагу без проверки минимума.
func FloorToStep(raw, step float64) float64 {
	return SnapQuantity(raw, 0, step)
}

// precisionFromStep число знаков после запятой, заданное шагом (0.001 -> 3, 0.5 -> 1, 10 -> 0).
func precisionFromStep(step decimal.Decimal) int32 {
	if e := step.Exponent(); e < 0 {
		return -e
	}
	return 0
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
