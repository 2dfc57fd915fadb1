package service

import (
	"context"
	"fmt"
	"net/url"

	"mirror_bot/internal/models"
)

type tickersResult struct {
	List []struct {
		Symbol    string `json:"symbol"`
		LastPrice string `json:"lastPrice"`
		MarkPrice string `json:"markPrice"`
	} `json:"list"`
}

// GetLastPrice последняя цена, публичный эндпоинт.
func (c *Client) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{"category": {c.category}, "symbol": {symbol}}
	res, err := get[tickersResult](ctx, c, "tickers", "/v5/market/tickers", q, false)
	if err != nil {
		return 0, err
	}
	if len(res.List) == 0 {
		return 0, fmt.Errorf("tickers: %s not found", symbol)
	}
	last := parseFloat(res.List[0].LastPrice)
	if last <= 0 {
		return 0, fmt.Errorf("tickers: %s lastPrice=%q", symbol, res.List[0].LastPrice)
	}
	return last, nil
}

type instrumentsResult struct {
	List []struct {
		Symbol        string `json:"symbol"`
		Status        string `json:"status"`
		LotSizeFilter struct {
			MinOrderQty string `json:"minOrderQty"`
			QtyStep     string `json:"qtyStep"`
		} `json:"lotSizeFilter"`
	} `json:"list"`
}

// GetLotConstraint фильтр lotSizeFilter инструмента.
func (c *Client) GetLotConstraint(ctx context.Context, symbol string) (models.LotConstraint, error) {
	q := url.Values{"category": {c.category}, "symbol": {symbol}}
	res, err := get[instrumentsResult](ctx, c, "instruments-info", "/v5/market/instruments-info", q, false)
	if err != nil {
		return models.LotConstraint{}, err
	}
	if len(res.List) == 0 {
		return models.LotConstraint{}, fmt.Errorf("instruments-info: %s not found", symbol)
	}
	f := res.List[0].LotSizeFilter
	return models.LotConstraint{
		MinOrderQty: parseFloat(f.MinOrderQty),
		QtyStep:     parseFloat(f.QtyStep),
	}, nil
}
