package service

import (
	"context"
	"net/url"

	"mirror_bot/internal/models"
)

type positionsResult struct {
	List []struct {
		Symbol      string `json:"symbol"`
		Side        string `json:"side"`
		Size        string `json:"size"`
		AvgPrice    string `json:"avgPrice"`
		TakeProfit  string `json:"takeProfit"`
		StopLoss    string `json:"stopLoss"`
		PositionIdx int    `json:"positionIdx"`
	} `json:"list"`
}

// GetLivePosition позиция в one-way режиме. Пустой список или size=0 — позиции нет.
func (c *Client) GetLivePosition(ctx context.Context, symbol string) (models.LivePosition, error) {
	q := url.Values{"category": {c.category}, "symbol": {symbol}}
	res, err := get[positionsResult](ctx, c, "position-list", "/v5/position/list", q, true)
	if err != nil {
		return models.LivePosition{}, err
	}

	out := models.LivePosition{Symbol: symbol}
	for _, row := range res.List {
		size := parseFloat(row.Size)
		if size <= 0 {
			continue
		}
		side, ok := models.SideFromOrderSide(row.Side)
		if !ok {
			continue
		}
		out.Quantity = size
		out.Side = side
		if avg := parseFloat(row.AvgPrice); avg > 0 {
			out.AvgEntryPrice = &avg
		}
		out.TakeProfit = parseFloat(row.TakeProfit)
		out.StopLoss = parseFloat(row.StopLoss)
		break
	}
	return out, nil
}
