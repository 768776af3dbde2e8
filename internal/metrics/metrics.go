// Package metrics holds the Prometheus collectors shared by the store, the
// live query and the capture adapters.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics groups every collector lazyjournal exports.
//
// Metrics:
//   - lazyjournal_store_mutations_total{op} - successful add/update/delete calls
//   - lazyjournal_store_errors_total{op} - failed store calls
//   - lazyjournal_live_refreshes_total - live query re-executions
//   - lazyjournal_ocr_scans_total{result} - OCR scans by outcome
//   - lazyjournal_voice_sessions_total{result} - voice capture sessions by outcome
type Metrics struct {
	StoreMutations *prometheus.CounterVec
	StoreErrors    *prometheus.CounterVec
	LiveRefreshes  prometheus.Counter
	OCRScans       *prometheus.CounterVec
	VoiceSessions  *prometheus.CounterVec
}

// Default returns the process-wide metrics registered on the default
// Prometheus registry. Registration happens once.
func Default() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = New(prometheus.DefaultRegisterer)
	})
	return globalMetrics
}

// New registers a fresh set of collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StoreMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lazyjournal_store_mutations_total",
			Help: "Successful record store mutations by operation.",
		}, []string{"op"}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lazyjournal_store_errors_total",
			Help: "Failed record store calls by operation.",
		}, []string{"op"}),
		LiveRefreshes: factory.NewCounter(prometheus.CounterOpts{
			Name: "lazyjournal_live_refreshes_total",
			Help: "Live query re-executions.",
		}),
		OCRScans: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lazyjournal_ocr_scans_total",
			Help: "OCR scans by result (text, empty, failed, busy).",
		}, []string{"result"}),
		VoiceSessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lazyjournal_voice_sessions_total",
			Help: "Voice capture sessions by result (transcript, empty, failed, cancelled, unavailable).",
		}, []string{"result"}),
	}
}
