package service

import (
	"context"
	"fmt"

	"mirror_bot/internal/models"
	"mirror_bot/pkg/logger"
)

type createOrderRequest struct {
	Category    string `json:"category"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	OrderType   string `json:"orderType"`
	Qty         string `json:"qty"`
	TimeInForce string `json:"timeInForce"`
	ReduceOnly  bool   `json:"reduceOnly"`
	PositionIdx int    `json:"positionIdx"`
	OrderLinkID string `json:"orderLinkId,omitempty"`
}

type createOrderResult struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

// SubmitOpen рыночный IOC-ордер на увеличение позиции.
func (c *Client) SubmitOpen(ctx context.Context, symbol string, side models.Side, qty float64, clientID string) error {
	return c.placeMarket(ctx, symbol, side, qty, false, clientID)
}

// SubmitReduceOnly рыночный reduce-only ордер; side — сторона ордера, а не позиции.
func (c *Client) SubmitReduceOnly(ctx context.Context, symbol string, side models.Side, qty float64, clientID string) error {
	return c.placeMarket(ctx, symbol, side, qty, true, clientID)
}

func (c *Client) placeMarket(ctx context.Context, symbol string, side models.Side, qty float64, reduceOnly bool, clientID string) error {
	if qty <= 0 {
		return fmt.Errorf("order-create %s: qty <= 0", symbol)
	}
	body := createOrderRequest{
		Category:    c.category,
		Symbol:      symbol,
		Side:        side.OrderSide(),
		OrderType:   "Market",
		Qty:         formatFloat(qty),
		TimeInForce: "IOC",
		ReduceOnly:  reduceOnly,
		OrderLinkID: clientID,
	}
	res, err := post[createOrderResult](ctx, c, "order-create", "/v5/order/create", body)
	if err != nil {
		return err
	}
	logger.Debug("[BYBIT] order %s %s %s qty=%s reduceOnly=%v id=%s", symbol, body.Side, body.OrderType, body.Qty, reduceOnly, res.OrderID)
	return nil
}
