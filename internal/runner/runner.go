package runner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/opentracing/opentracing-go"
	"go.uber.org/multierr"

	"mirror_bot/internal/metrics"
	"mirror_bot/internal/models"
	"mirror_bot/internal/modules/config"
	health "mirror_bot/internal/modules/health/service"
	"mirror_bot/internal/reconciler"
	"mirror_bot/pkg/logger"
)

// Syncer движок сверки (*reconciler.Engine).
type Syncer interface {
	SyncSymbol(ctx context.Context, signalSymbol string, t models.TargetPosition) models.SyncResult
	CloseAbsentSymbols(ctx context.Context, present []string) ([]models.SyncResult, error)
}

type LeverageSetter interface {
	SetLeverage(ctx context.Context, symbol string, leverage int) error
}

// Runner цикл опроса: фид → блок модели → сверка символов → закрытие отсутствующих.
// Всё в одной горутине, остановка проверяется только между циклами.
type Runner struct {
	cfg      *config.Config
	feed     reconciler.SignalSource
	engine   Syncer
	leverage LeverageSetter
	state    *health.State
	now      func() time.Time

	bo *backoff.Backoff

	noModelsWarn  warnThrottle
	notFoundWarn  warnThrottle
	listedModels  bool
	iteration     int
	lastNonEmpty  time.Time
	lastMatched   time.Time
	lastPresent   int
	lastHeartbeat time.Time

	done chan struct{}
}

func New(cfg *config.Config, feed reconciler.SignalSource, engine Syncer, leverage LeverageSetter, state *health.State) *Runner {
	return &Runner{
		cfg:      cfg,
		feed:     feed,
		engine:   engine,
		leverage: leverage,
		state:    state,
		now:      time.Now,
		bo: &backoff.Backoff{
			Min:    cfg.Loop.BackoffMin,
			Max:    cfg.Loop.BackoffMax,
			Factor: 2,
		},
		noModelsWarn: warnThrottle{every: cfg.Loop.WarnCooldown},
		notFoundWarn: warnThrottle{every: cfg.Loop.WarnCooldown},
		done:         make(chan struct{}),
	}
}

// Run блокирует до отмены ctx. Начатый цикл доводится до конца.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)

	r.initLeverage(ctx)
	logger.Info("[RUNNER] following model %s, %d symbols mapped", r.cfg.Feed.ModelID, len(r.cfg.SymbolMap))

	for {
		if ctx.Err() != nil {
			logger.Info("[RUNNER] stopped")
			return
		}

		wait := r.cfg.Feed.PollInterval
		if err := r.cycle(context.WithoutCancel(ctx)); err != nil {
			delay := r.bo.Duration()
			logger.Error("[RUNNER] cycle %d: %v", r.iteration, err)
			logger.Warn("[RUNNER] backoff %s due to error", delay)
			wait += delay
		} else {
			r.bo.Reset()
		}
		r.heartbeat()

		select {
		case <-ctx.Done():
			logger.Info("[RUNNER] stopped")
			return
		case <-time.After(wait):
		}
	}
}

// Done закрывается после выхода из Run.
func (r *Runner) Done() <-chan struct{} { return r.done }

func (r *Runner) cycle(ctx context.Context) (err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "runner.cycle")
	defer span.Finish()

	r.iteration++
	started := r.now()
	result := metrics.CycleOK
	defer func() {
		if err != nil {
			result = metrics.CycleError
		}
		metrics.ObserveCycle(result, r.now().Sub(started))
		r.state.SetLastError(err)
	}()
	logger.Debug("[RUNNER] tick %d", r.iteration)

	blocks, err := r.feed.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch signal: %w", err)
	}
	if len(blocks) > 0 {
		r.lastNonEmpty = started
		r.state.TouchFeed(started)
		metrics.SetFeedSuccess(started)
	} else if r.noModelsWarn.allow(started) {
		logger.Warn("[RUNNER] feed returned no models, check feed.positions_url=%q feed.account_totals_url=%q",
			r.cfg.Feed.PositionsURL, r.cfg.Feed.AccountTotalsURL)
	}

	block, kind := selectBlock(blocks, r.cfg.Feed.ModelID, r.cfg.Feed.SingleModelFallback)
	if kind == matchNone {
		r.state.SetMatch(r.cfg.Feed.ModelID, false, 0)
		if len(blocks) > 0 && !r.listedModels {
			labels := make([]string, 0, len(blocks))
			for _, b := range blocks {
				labels = append(labels, blockLabel(b))
			}
			logger.Debug("[RUNNER] models in payload: %s", strings.Join(labels, " | "))
			r.listedModels = true
		}
		if len(blocks) > 0 && r.notFoundWarn.allow(started) {
			logger.Warn("[RUNNER] model %q not found in payload (want=%s)", r.cfg.Feed.ModelID, canonModel(r.cfg.Feed.ModelID))
		}
		// пустой фид — "попробуй ещё раз", а не "позиций нет"
		if !r.cfg.Feed.CloseOnEmpty {
			result = metrics.CycleSkipped
			r.touch(started)
			return nil
		}
		logger.Warn("[RUNNER] close_on_empty: unwinding all mapped symbols")
		_, err = r.engine.CloseAbsentSymbols(ctx, nil)
		r.touch(started)
		return err
	}
	if kind == matchSingle {
		logger.Warn("[RUNNER] model %q not found, using the only block %s", r.cfg.Feed.ModelID, blockLabel(block))
	}

	err = r.syncBlock(ctx, block)
	r.lastMatched = started
	r.lastPresent = len(block.Positions)
	r.state.SetMatch(blockLabel(block), true, len(block.Positions))
	r.touch(started)
	return err
}

func (r *Runner) syncBlock(ctx context.Context, block models.ModelBlock) (err error) {
	present := block.Symbols()
	sort.Strings(present)

	for _, sym := range present {
		res := r.engine.SyncSymbol(ctx, sym, block.Positions[sym])
		if res.Err != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", sym, res.Err))
		}
	}

	if _, cerr := r.engine.CloseAbsentSymbols(ctx, present); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("close absent: %w", cerr))
	}
	return err
}

func (r *Runner) touch(at time.Time) {
	r.state.TouchCycle(at)
	r.state.SetReady(true)
}

// heartbeat раз в loop.heartbeat: возраст фида, матч, число символов; эскалация при молчащем фиде.
func (r *Runner) heartbeat() {
	now := r.now()
	if now.Sub(r.lastHeartbeat) < r.cfg.Loop.Heartbeat {
		return
	}
	r.lastHeartbeat = now

	matched := "not-found"
	if !r.lastMatched.IsZero() {
		matched = "matched"
	}
	logger.Info("[RUNNER] alive: tick=%d, feed=%s, model=%s (last=%s), symbols=%d",
		r.iteration, sinceLabel(now, r.lastNonEmpty), matched, sinceLabel(now, r.lastMatched), r.lastPresent)

	if !r.lastNonEmpty.IsZero() && now.Sub(r.lastNonEmpty) > r.cfg.Loop.StallAfter {
		logger.Warn("[RUNNER] feed stalled: no non-empty payload for %s", now.Sub(r.lastNonEmpty).Truncate(time.Second))
	}
}

func sinceLabel(now, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return now.Sub(t).Truncate(time.Second).String() + " ago"
}
