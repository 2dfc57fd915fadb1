package sizing

import (
	"math"

	"github.com/shopspring/decimal"

	"mirror_bot/internal/models"
)

// FallbackScale масштаб, если risk-based расчёт невозможен.
const FallbackScale = 0.02

// SideFromSignedQuantity ноль считается long; нулевые цели до сюда не доходят.
func SideFromSignedQuantity(q float64) models.Side {
	if q >= 0 {
		return models.SideLong
	}
	return models.SideShort
}

func MirrorScaled(signalQty, scale float64) float64 {
	return math.Abs(signalQty * scale)
}

// RiskBasedQuantity объём так, чтобы стоп стоил riskUSD.
// false — стоп не задан или совпадает со входом (риск на единицу не определён).
func RiskBasedQuantity(riskUSD, entry float64, stop *float64) (float64, bool) {
	if stop == nil || *stop == 0 || riskUSD <= 0 {
		return 0, false
	}
	perUnit := math.Abs(entry - *stop)
	if perUnit <= 0 {
		return 0, false
	}
	q, _ := decimal.NewFromFloat(riskUSD / perUnit).Round(6).Float64()
	if q <= 0 {
		return 0, false
	}
	return q, true
}
