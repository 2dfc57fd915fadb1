package service

import (
	"context"
	"strconv"

	"mirror_bot/pkg/logger"
)

type setLeverageRequest struct {
	Category     string `json:"category"`
	Symbol       string `json:"symbol"`
	BuyLeverage  string `json:"buyLeverage"`
	SellLeverage string `json:"sellLeverage"`
}

// SetLeverage одинаковое плечо на обе стороны. "leverage not modified" — успех.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	lev := strconv.Itoa(leverage)
	_, err := post[struct{}](ctx, c, "set-leverage", "/v5/position/set-leverage", setLeverageRequest{
		Category:     c.category,
		Symbol:       symbol,
		BuyLeverage:  lev,
		SellLeverage: lev,
	})
	if IsNotModified(err) {
		logger.Debug("[BYBIT] %s leverage %sx not modified", symbol, lev)
		return nil
	}
	return err
}
