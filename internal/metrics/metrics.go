// Package metrics счётчики Prometheus для зеркалирования.
//
// Регистрируются в init() в глобальном реестре, отдаются health-сервером на /metrics:
//   - mirror_sync_outcomes_total{outcome}      итоги SyncSymbol
//   - mirror_actions_total{action,result}      отправленные ордера (ok|error)
//   - mirror_exchange_errors_total{op}         ошибки вызовов биржи
//   - mirror_cycles_total{result}              циклы раннера (ok|error|skipped)
//   - mirror_feed_last_success_timestamp       unix-время последнего непустого фида
//   - mirror_cycle_duration_seconds            длительность цикла
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mirror_bot/internal/models"
)

var (
	syncOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_sync_outcomes_total",
			Help: "Per-symbol reconciliation outcomes",
		},
		[]string{"outcome"},
	)

	actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_actions_total",
			Help: "Orders submitted by the engine",
		},
		[]string{"action", "result"},
	)

	exchangeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_exchange_errors_total",
			Help: "Failed exchange calls by operation",
		},
		[]string{"op"},
	)

	cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_cycles_total",
			Help: "Runner cycles by result",
		},
		[]string{"result"},
	)

	feedLastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mirror_feed_last_success_timestamp",
			Help: "Unix time of the last non-empty feed payload",
		},
	)

	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mirror_cycle_duration_seconds",
			Help:    "Duration of one runner cycle",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(syncOutcomes, actions, exchangeErrors)
	prometheus.MustRegister(cycles, feedLastSuccess, cycleDuration)
}

func ObserveOutcome(o models.Outcome) {
	syncOutcomes.WithLabelValues(string(o)).Inc()
}

func ObserveAction(a models.Action, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	actions.WithLabelValues(string(a), result).Inc()
}

func ObserveExchangeError(op string) {
	exchangeErrors.WithLabelValues(op).Inc()
}

// Результаты циклов
const (
	CycleOK      = "ok"
	CycleError   = "error"
	CycleSkipped = "skipped"
)

func ObserveCycle(result string, took time.Duration) {
	cycles.WithLabelValues(result).Inc()
	cycleDuration.Observe(took.Seconds())
}

func SetFeedSuccess(at time.Time) {
	feedLastSuccess.Set(float64(at.Unix()))
}
