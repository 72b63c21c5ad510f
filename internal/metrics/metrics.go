package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: "stockcast_runs_total", Help: "Completed job cycles by outcome"},
		[]string{"job", "outcome"},
	)
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stockcast_run_duration_seconds",
			Help:    "Duration of one job cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
	SymbolsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{Name: "stockcast_symbols_total", Help: "Symbols handled per pass by result"},
		[]string{"job", "result"},
	)
	StorageRetries = promauto.NewCounter(
		prometheus.CounterOpts{Name: "stockcast_storage_retries_total", Help: "Storage writes retried after transient failures"},
	)
	CombinedPrice = promauto.NewGaugeVec(
		prometheus.GaugeOpts{Name: "stockcast_combined_price", Help: "Most recent combined forecast price"},
		[]string{"symbol", "horizon"},
	)
)

// ObserveRun records one finished cycle with its duration and outcome.
func ObserveRun(job string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RunsTotal.WithLabelValues(job, outcome).Inc()
	RunDuration.WithLabelValues(job).Observe(time.Since(start).Seconds())
}

// SetCombinedPrice exposes the latest combined forecast as a gauge.
func SetCombinedPrice(symbol string, horizonDays int, price float64) {
	CombinedPrice.WithLabelValues(symbol, strconv.Itoa(horizonDays)).Set(price)
}

// Handler serves the default registry, for mounting on the API router.
func Handler() http.Handler {
	return promhttp.Handler()
}
