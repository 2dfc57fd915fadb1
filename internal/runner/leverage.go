package runner

import (
	"context"
	"sort"

	"mirror_bot/pkg/logger"
)

// initLeverage одно плечо на все символы маппинга при старте. Ошибки не фатальны.
func (r *Runner) initLeverage(ctx context.Context) {
	lev := r.cfg.Exchange.LeverageDefault
	if lev <= 0 || len(r.cfg.SymbolMap) == 0 {
		logger.Debug("[LEVERAGE] skip init: leverage_default not set or no symbols")
		return
	}

	symbols := make([]string, 0, len(r.cfg.SymbolMap))
	for _, s := range r.cfg.SymbolMap {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	logger.Info("[LEVERAGE] setting %dx for %d symbols", lev, len(symbols))
	for _, s := range symbols {
		if err := r.leverage.SetLeverage(ctx, s, lev); err != nil {
			logger.Warn("[LEVERAGE] %s: %v", s, err)
			continue
		}
		logger.Info("[LEVERAGE] %s: %dx", s, lev)
	}
}
