package models

// Side направление позиции на бирже.
type Side string

const (
	SideLong  Side = "Long"
	SideShort Side = "Short"
)

// Opposite сторона закрывающего ордера.
func (s Side) Opposite() Side {
	if s == SideShort {
		return SideLong
	}
	return SideShort
}

// OrderSide значение поля side в ордерах Bybit ("Buy"/"Sell").
func (s Side) OrderSide() string {
	if s == SideShort {
		return "Sell"
	}
	return "Buy"
}

// SideFromOrderSide парсит "Buy"/"Sell" из ответа /v5/position/list.
func SideFromOrderSide(v string) (Side, bool) {
	switch v {
	case "Buy":
		return SideLong, true
	case "Sell":
		return SideShort, true
	}
	return "", false
}

// ExitPlan уровни выхода из сигнала. nil — уровня нет.
type ExitPlan struct {
	TakeProfit *float64
	StopLoss   *float64
}

// TargetPosition желаемая позиция по одному символу на один опрос.
// Знак SignedQuantity кодирует long/short.
type TargetPosition struct {
	SignedQuantity float64
	EntryPrice     float64
	EntryOrderID   string
	EntryTimestamp float64 // unix seconds
	ExitPlan       ExitPlan

	RiskUSD    float64
	Leverage   float64
	Confidence *float64
}

// LivePosition то, что реально открыто на бирже.
type LivePosition struct {
	Symbol        string
	Quantity      float64
	Side          Side
	AvgEntryPrice *float64

	// уже стоящие на позиции уровни, 0 — нет
	TakeProfit float64
	StopLoss   float64
}

func (p LivePosition) IsFlat() bool { return p.Quantity <= 0 }

// LotConstraint фильтр lotSizeFilter инструмента.
type LotConstraint struct {
	MinOrderQty float64
	QtyStep     float64
}
