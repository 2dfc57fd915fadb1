package reconciler

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/multierr"

	"mirror_bot/internal/models"
	"mirror_bot/pkg/logger"
)

// flatten нулевая цель означает "позиции нет": закрываем видимую часть.
func (e *Engine) flatten(ctx context.Context, res models.SyncResult, live models.LivePosition, now time.Time) models.SyncResult {
	closed, qty, err := e.closeVisible(ctx, res.Symbol, live, now)
	if err != nil {
		return e.failed(res, "order", err)
	}
	if !closed {
		res.Outcome = models.OutcomeFlat
		return res
	}
	res.Outcome, res.Quantity = models.OutcomeClosed, qty
	if _, err := e.afterAction(ctx, res.Symbol); err != nil {
		res.Err = err
	}
	return res
}

// closeVisible один reduce-only ордер на всю видимую часть, сторона противоположна позиции.
func (e *Engine) closeVisible(ctx context.Context, symbol string, live models.LivePosition, now time.Time) (bool, float64, error) {
	if live.IsFlat() {
		return false, 0, nil
	}
	qty := e.visible(symbol, live)
	if qty <= 0 {
		logger.Debug("[CLOSE] %s: live %g fully reserved", symbol, live.Quantity)
		return false, 0, nil
	}
	logger.Info("[CLOSE] %s: closing %s %g", symbol, live.Side, qty)
	if err := e.submit(ctx, models.ActionClose, symbol, live.Side.Opposite(), qty, now); err != nil {
		return false, 0, err
	}
	return true, qty, nil
}

// CloseAbsentSymbols закрывает позиции по символам маппинга, которых нет в present.
// present — символы фида в верхнем регистре. Ошибки по символам собираются, проход не прерывается.
func (e *Engine) CloseAbsentSymbols(ctx context.Context, present []string) (results []models.SyncResult, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "reconciler.CloseAbsentSymbols")
	defer span.Finish()

	now := e.now()
	if e.inCooldown(now) {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(present))
	for _, s := range present {
		seen[s] = struct{}{}
	}

	for _, signalSymbol := range e.SignalSymbols() {
		if _, ok := seen[signalSymbol]; ok {
			continue
		}
		symbol, ok := e.ExchangeSymbol(signalSymbol)
		if !ok {
			continue
		}
		res := models.SyncResult{Symbol: symbol, Outcome: models.OutcomeFlat}

		live, gerr := e.gw.GetLivePosition(ctx, symbol)
		if gerr != nil {
			res = e.failed(res, "position", gerr)
			err = multierr.Append(err, res.Err)
			results = append(results, res)
			continue
		}

		closed, qty, cerr := e.closeVisible(ctx, symbol, live, now)
		switch {
		case cerr != nil:
			res = e.failed(res, "order", cerr)
			err = multierr.Append(err, res.Err)
		case closed:
			res.Outcome, res.Quantity = models.OutcomeClosed, qty
			if _, aerr := e.afterAction(ctx, symbol); aerr != nil {
				res.Err = aerr
				err = multierr.Append(err, aerr)
			}
		}
		results = append(results, res)
	}
	return results, err
}
