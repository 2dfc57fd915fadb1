package service

import (
	"context"
)

type tradingStopRequest struct {
	Category    string `json:"category"`
	Symbol      string `json:"symbol"`
	TPSLMode    string `json:"tpslMode"`
	PositionIdx int    `json:"positionIdx"`
	TakeProfit  string `json:"takeProfit,omitempty"`
	StopLoss    string `json:"stopLoss,omitempty"`
}

// SetProtectiveOrders TP/SL на всю позицию. nil — уровень не трогаем.
func (c *Client) SetProtectiveOrders(ctx context.Context, symbol string, tp, sl *float64) error {
	if tp == nil && sl == nil {
		return nil
	}
	body := tradingStopRequest{
		Category: c.category,
		Symbol:   symbol,
		TPSLMode: "Full",
	}
	if tp != nil {
		body.TakeProfit = formatFloat(*tp)
	}
	if sl != nil {
		body.StopLoss = formatFloat(*sl)
	}
	_, err := post[struct{}](ctx, c, "trading-stop", "/v5/position/trading-stop", body)
	if err != nil && !IsNotModified(err) {
		return err
	}
	return nil
}
