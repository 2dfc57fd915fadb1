package reconciler

import (
	"time"

	"mirror_bot/internal/models"
)

// guardVerdict решение защиты от повторного входа.
type guardVerdict struct {
	block  bool
	reason string
}

// reentryGuard не даёт зайти повторно в тот же сигнал после выхода из позиции.
// prev — состояние до бухгалтерии текущего цикла. Зарезервированный объём позицией не считается.
func (e *Engine) reentryGuard(symbol string, prev models.SymbolState, live models.LivePosition, t models.TargetPosition, last float64, now time.Time) guardVerdict {
	if e.visible(symbol, live) > 0 || t.EntryOrderID == "" || prev.LastEntryOrderID == "" {
		return guardVerdict{}
	}
	if t.EntryOrderID != prev.LastEntryOrderID {
		return guardVerdict{}
	}

	g := e.cfg.Guards
	if !g.RejoinSameEntry {
		return guardVerdict{block: true, reason: "same entry, rejoin disabled"}
	}

	if g.MaxEntryAgeMin > 0 && t.EntryTimestamp > 0 {
		age := now.Sub(time.Unix(int64(t.EntryTimestamp), 0))
		if age > time.Duration(g.MaxEntryAgeMin*float64(time.Minute)) {
			return guardVerdict{block: true, reason: "entry too old"}
		}
	}

	if !priceImproved(t.SignedQuantity < 0, t.EntryPrice, last, g.RejoinBetterThanEntryPct) {
		return guardVerdict{block: true, reason: "price not better than entry"}
	}
	return guardVerdict{}
}

// priceImproved long: last <= entry*(1-pct/100), short: last >= entry*(1+pct/100).
func priceImproved(short bool, entry, last, pct float64) bool {
	if entry <= 0 || last <= 0 {
		return false
	}
	if short {
		return last >= entry*(1+pct/100)
	}
	return last <= entry*(1-pct/100)
}
