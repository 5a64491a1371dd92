// Package metrics holds the Prometheus collectors of the scraper.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coinafrique-scraper/models"
)

var (
	PagesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinafrique_pages_fetched_total",
			Help: "Listing pages fetched and parsed, by category.",
		},
		[]string{"category"},
	)
	PagesFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinafrique_pages_failed_total",
			Help: "Listing pages skipped after a fetch failure, by category.",
		},
		[]string{"category"},
	)
	RecordsExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinafrique_records_extracted_total",
			Help: "Listing records extracted, by category.",
		},
		[]string{"category"},
	)
	FragmentsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "coinafrique_fragments_dropped_total",
			Help: "Listing cards dropped because they could not be read.",
		},
	)
	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coinafrique_run_duration_seconds",
			Help:    "Wall-clock duration of scrape runs.",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"category"},
	)
	RunProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "coinafrique_run_progress_ratio",
			Help: "Pages completed over pages requested for the current run.",
		},
	)
	PersistenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coinafrique_persistence_failures_total",
			Help: "Sink write failures, by sink.",
		},
		[]string{"sink"},
	)
)

func init() {
	prometheus.MustRegister(PagesFetched)
	prometheus.MustRegister(PagesFailed)
	prometheus.MustRegister(RecordsExtracted)
	prometheus.MustRegister(FragmentsDropped)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(RunProgress)
	prometheus.MustRegister(PersistenceFailures)
}

// Handler serves the registered collectors.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Observer mirrors scrape progress into the collectors above.
type Observer struct{}

func (Observer) OnProgress(done, total int) {
	if total > 0 {
		RunProgress.Set(float64(done) / float64(total))
	}
}

func (Observer) OnComplete(m models.RunMetrics) {
	RunDuration.WithLabelValues(string(m.Category)).Observe(m.Elapsed.Seconds())
}
