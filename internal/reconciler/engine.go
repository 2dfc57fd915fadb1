// Package reconciler сводит целевую позицию из фида с живой позицией на бирже.
//
// Один вызов SyncSymbol проходит шаги строго по порядку: кулдаун старта,
// позиция и цена, защита от повторного входа, расчёт объёма, фильтры лота,
// лимит по ноционалу, квантование, флип стороны, допуск, решение, учёт
// состояния и TP/SL. Любая ошибка биржи пропускает символ до следующего цикла.
package reconciler

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"go.uber.org/multierr"

	"mirror_bot/internal/metrics"
	"mirror_bot/internal/models"
	"mirror_bot/internal/modules/config"
	"mirror_bot/internal/sizing"
	"mirror_bot/pkg/logger"
)

// Options StartedAt отсчёт стартового кулдауна. Now подменяется в тестах.
type Options struct {
	StartedAt time.Time
	Now       func() time.Time
}

type Engine struct {
	cfg      *config.Config
	gw       ExchangeGateway
	store    StateStore
	reserver Reserver
	sink     ActionSink

	startedAt time.Time
	now       func() time.Time
}

func NewEngine(cfg *config.Config, gw ExchangeGateway, store StateStore, reserver Reserver, sink ActionSink, opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	startedAt := opts.StartedAt
	if startedAt.IsZero() {
		startedAt = now()
	}
	if reserver == nil {
		reserver = StaticReserver(nil)
	}
	return &Engine{
		cfg:       cfg,
		gw:        gw,
		store:     store,
		reserver:  reserver,
		sink:      sink,
		startedAt: startedAt,
		now:       now,
	}
}

// ExchangeSymbol биржевой символ для символа фида.
func (e *Engine) ExchangeSymbol(signalSymbol string) (string, bool) {
	s, ok := e.cfg.SymbolMap[strings.ToUpper(signalSymbol)]
	return s, ok && s != ""
}

// SignalSymbols символы фида из маппинга, отсортированы.
func (e *Engine) SignalSymbols() []string {
	out := make([]string, 0, len(e.cfg.SymbolMap))
	for s := range e.cfg.SymbolMap {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (e *Engine) inCooldown(now time.Time) bool {
	return now.Sub(e.startedAt) < e.cfg.Guards.StartupCooldown()
}

func (e *Engine) SyncSymbol(ctx context.Context, signalSymbol string, t models.TargetPosition) (res models.SyncResult) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "reconciler.SyncSymbol")
	span.SetTag("signal_symbol", signalSymbol)
	defer func() {
		span.SetTag("outcome", string(res.Outcome))
		if res.Err != nil {
			ext.Error.Set(span, true)
			span.LogKV("error", res.Err.Error())
		}
		span.Finish()
		metrics.ObserveOutcome(res.Outcome)
	}()

	symbol, ok := e.ExchangeSymbol(signalSymbol)
	if !ok {
		return models.SyncResult{Symbol: signalSymbol, Outcome: models.OutcomeIgnored}
	}
	res.Symbol = symbol

	now := e.now()
	if e.inCooldown(now) {
		logger.Debug("[SYNC] %s: startup cooldown", symbol)
		res.Outcome = models.OutcomeCooldown
		return res
	}

	if math.IsNaN(t.SignedQuantity) || math.IsInf(t.SignedQuantity, 0) {
		logger.Warn("[SYNC] %s: unusable target quantity %v", symbol, t.SignedQuantity)
		res.Outcome = models.OutcomeIgnored
		return res
	}

	live, err := e.gw.GetLivePosition(ctx, symbol)
	if err != nil {
		return e.failed(res, "position", err)
	}

	if t.SignedQuantity == 0 {
		return e.flatten(ctx, res, live, now)
	}

	last, err := e.gw.GetLastPrice(ctx, symbol)
	if err != nil {
		metrics.ObserveExchangeError("ticker")
		logger.Warn("[SYNC] %s: last price unavailable: %v", symbol, err)
		last = 0
	}

	prev := loadState(e.store, symbol)
	if v := e.reentryGuard(symbol, prev, live, t, last, now); v.block {
		logger.Info("[GUARD] %s: skip entry %s: %s", symbol, t.EntryOrderID, v.reason)
		res.Outcome = models.OutcomeGuardBlocked
		return res
	}
	if t.EntryOrderID != "" && t.EntryOrderID != prev.LastEntryOrderID {
		if err := rememberEntry(ctx, e.store, symbol, t); err != nil {
			return e.failed(res, "state", err)
		}
		logger.Info("[GUARD] %s: new entry %s (was %q)", symbol, t.EntryOrderID, prev.LastEntryOrderID)
	}

	side := sizing.SideFromSignedQuantity(t.SignedQuantity)
	raw := e.targetRaw(t, last)

	lot, err := e.gw.GetLotConstraint(ctx, symbol)
	if err != nil {
		return e.failed(res, "instrument", err)
	}
	step := lot.QtyStep
	if step <= 0 {
		step = sizing.MinStep
	}
	minQty := math.Max(lot.MinOrderQty, 0)

	raw = e.capByNotional(symbol, raw, last, step)

	target := sizing.SnapQuantity(raw, minQty, step)
	if target == 0 {
		logger.Info("[SYNC] %s: target %.8f below minimum (min=%g step=%g)", symbol, raw, minQty, step)
		res.Outcome = models.OutcomeBelowMinimum
		return res
	}

	visible := e.visible(symbol, live)
	acted := false

	if live.Quantity > 0 && live.Side != side {
		if visible > 0 {
			logger.Info("[SYNC] %s: side flip %s → %s, closing %g", symbol, live.Side, side, visible)
			if err := e.submit(ctx, models.ActionFlip, symbol, live.Side.Opposite(), visible, now); err != nil {
				return e.failed(res, "order", err)
			}
			acted = true
		}
		visible = 0
	}

	tol := ResolveTolerance(e.ruleFor(symbol), step, last, target)
	delta := target - visible

	switch {
	case math.Abs(delta) <= tol:
		logger.Debug("[SYNC] %s: in sync (cur=%g target=%g tol=%g)", symbol, visible, target, tol)
		res.Outcome = models.OutcomeInSync
		if acted {
			res.Outcome = models.OutcomeClosed
		}

	case delta > 0:
		qty := sizing.SnapQuantity(delta, minQty, step)
		if qty == 0 {
			res.Outcome = models.OutcomeBelowMinimum
			break
		}
		if err := e.submit(ctx, models.ActionOpen, symbol, side, qty, now); err != nil {
			return e.failed(res, "order", err)
		}
		acted = true
		res.Outcome, res.Quantity = models.OutcomeOpened, qty
		if err := e.markJoined(ctx, symbol, t); err != nil {
			res.Err = multierr.Append(res.Err, err)
		}

	default:
		qty := sizing.SnapQuantity(math.Min(-delta, visible), minQty, step)
		if qty == 0 {
			res.Outcome = models.OutcomeBelowMinimum
			break
		}
		if err := e.submit(ctx, models.ActionReduce, symbol, side.Opposite(), qty, now); err != nil {
			return e.failed(res, "order", err)
		}
		acted = true
		res.Outcome, res.Quantity = models.OutcomeReduced, qty
	}

	after := live
	if acted {
		after, err = e.afterAction(ctx, symbol)
		if err != nil {
			res.Err = multierr.Append(res.Err, err)
			return res
		}
	}

	if after.Quantity > 0 {
		if err := e.protect(ctx, symbol, t, after, now); err != nil {
			res.Err = multierr.Append(res.Err, err)
		}
	}
	return res
}

// targetRaw объём до ограничений лота и ноционала.
func (e *Engine) targetRaw(t models.TargetPosition, last float64) float64 {
	if e.cfg.Sizing.Mode != config.SizingRiskBased {
		return sizing.MirrorScaled(t.SignedQuantity, e.cfg.Sizing.Scale)
	}
	entry := t.EntryPrice
	if entry <= 0 {
		entry = last
	}
	risk := t.RiskUSD
	if risk <= 0 {
		risk = e.cfg.Sizing.RiskUSD
	}
	if q, ok := sizing.RiskBasedQuantity(risk, entry, t.ExitPlan.StopLoss); ok {
		return q
	}
	return sizing.MirrorScaled(t.SignedQuantity, sizing.FallbackScale)
}

// capByNotional только уменьшает объём; без цены лимит не применяется.
func (e *Engine) capByNotional(symbol string, raw, last, step float64) float64 {
	limit := e.cfg.Sizing.PerSymbolNotional[symbol]
	if limit <= 0 {
		limit = e.cfg.Sizing.PerSymbolMaxNotional
	}
	if limit <= 0 || last <= 0 {
		return raw
	}
	maxQty := sizing.FloorToStep(limit/last, step)
	if maxQty < raw {
		logger.Debug("[SYNC] %s: notional cap %g$ → qty %g (was %g)", symbol, limit, maxQty, raw)
		return maxQty
	}
	return raw
}

// visible часть живой позиции, которой управляет движок.
func (e *Engine) visible(symbol string, live models.LivePosition) float64 {
	return math.Max(live.Quantity-e.reserver.Reserved(symbol), 0)
}

func (e *Engine) submit(ctx context.Context, action models.Action, symbol string, side models.Side, qty float64, now time.Time) error {
	id := clientID(action, symbol, now)

	var err error
	if action == models.ActionOpen {
		err = e.gw.SubmitOpen(ctx, symbol, side, qty, id)
	} else {
		err = e.gw.SubmitReduceOnly(ctx, symbol, side, qty, id)
	}

	metrics.ObserveAction(action, err)
	e.emit(ctx, models.ActionEvent{
		Action:   action,
		Symbol:   symbol,
		Side:     side,
		Quantity: qty,
		ClientID: id,
		Err:      err,
		At:       now,
	})
	if err != nil {
		return fmt.Errorf("%s %s %g: %w", action, symbol, qty, err)
	}
	return nil
}

func (e *Engine) markJoined(ctx context.Context, symbol string, t models.TargetPosition) error {
	if err := e.store.Set(ctx, symbol, models.StateJoined, true); err != nil {
		return fmt.Errorf("persist %s: %w", models.StateJoined, err)
	}
	if t.EntryOrderID != "" && asString(e.store.Get(symbol, models.StateLastEntryOID, "")) != t.EntryOrderID {
		if err := e.store.Set(ctx, symbol, models.StateLastEntryOID, t.EntryOrderID); err != nil {
			return fmt.Errorf("persist %s: %w", models.StateLastEntryOID, err)
		}
	}
	return nil
}

// afterAction перечитывает позицию; пустая позиция снимает joined.
func (e *Engine) afterAction(ctx context.Context, symbol string) (models.LivePosition, error) {
	pos, err := e.gw.GetLivePosition(ctx, symbol)
	if err != nil {
		metrics.ObserveExchangeError("position")
		return models.LivePosition{}, fmt.Errorf("requery %s: %w", symbol, err)
	}
	if pos.Quantity <= 0 && asBool(e.store.Get(symbol, models.StateJoined, false)) {
		if err := e.store.Set(ctx, symbol, models.StateJoined, false); err != nil {
			return pos, fmt.Errorf("persist %s: %w", models.StateJoined, err)
		}
	}
	return pos, nil
}

// protect TP/SL из плана выхода. Уровни, уже стоящие на позиции, не переставляются.
func (e *Engine) protect(ctx context.Context, symbol string, t models.TargetPosition, pos models.LivePosition, now time.Time) error {
	var tp, sl *float64
	if e.cfg.Risk.PlaceTP && t.ExitPlan.TakeProfit != nil && *t.ExitPlan.TakeProfit > 0 {
		tp = t.ExitPlan.TakeProfit
	}
	if e.cfg.Risk.PlaceSL && t.ExitPlan.StopLoss != nil && *t.ExitPlan.StopLoss > 0 {
		sl = t.ExitPlan.StopLoss
	}
	if tp == nil && sl == nil {
		return nil
	}
	if (tp == nil || *tp == pos.TakeProfit) && (sl == nil || *sl == pos.StopLoss) {
		return nil
	}

	err := e.gw.SetProtectiveOrders(ctx, symbol, tp, sl)
	metrics.ObserveAction(models.ActionTPSL, err)
	e.emit(ctx, models.ActionEvent{
		Action: models.ActionTPSL,
		Symbol: symbol,
		Side:   pos.Side,
		TP:     tp,
		SL:     sl,
		Err:    err,
		At:     now,
	})
	if err != nil {
		return fmt.Errorf("tpsl %s: %w", symbol, err)
	}
	return nil
}

func (e *Engine) emit(ctx context.Context, ev models.ActionEvent) {
	if e.sink != nil {
		e.sink.Emit(ctx, ev)
	}
}

func (e *Engine) failed(res models.SyncResult, op string, err error) models.SyncResult {
	metrics.ObserveExchangeError(op)
	logger.Error("[SYNC] %s: %s failed: %v", res.Symbol, op, err)
	res.Outcome = models.OutcomeFailed
	res.Err = err
	return res
}
