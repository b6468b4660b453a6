package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/comex-reports-etl/internal/core/domain"
)

// IngestMetrics records per-file ingestion outcomes.
type IngestMetrics struct {
	service  string
	registry *prometheus.Registry

	filesTotal     *prometheus.CounterVec
	fileDuration   *prometheus.HistogramVec
	filesInFlight  prometheus.Gauge
	recordsTotal   *prometheus.CounterVec
	lastSuccessUTC prometheus.Gauge
}

func NewIngestMetrics(service string) *IngestMetrics {
	registry := prometheus.NewRegistry()

	filesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "comex",
			Subsystem: "ingest",
			Name:      "files_total",
			Help:      "Total ingested files by kind and ledger status.",
		},
		[]string{"service", "kind", "status"},
	)
	fileDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "comex",
			Subsystem: "ingest",
			Name:      "file_duration_seconds",
			Help:      "File ingestion duration in seconds by kind.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service", "kind"},
	)
	filesInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "comex",
			Subsystem: "ingest",
			Name:      "files_in_flight",
			Help:      "Number of files currently being ingested.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	recordsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "comex",
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Total rows written by kind.",
		},
		[]string{"service", "kind"},
	)
	lastSuccessUTC := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "comex",
			Subsystem: "ingest",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successfully ingested file.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(filesTotal, fileDuration, filesInFlight, recordsTotal, lastSuccessUTC)

	return &IngestMetrics{
		service:        service,
		registry:       registry,
		filesTotal:     filesTotal,
		fileDuration:   fileDuration,
		filesInFlight:  filesInFlight,
		recordsTotal:   recordsTotal,
		lastSuccessUTC: lastSuccessUTC,
	}
}

func (m *IngestMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *IngestMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *IngestMetrics) FileStarted() {
	m.filesInFlight.Inc()
}

func (m *IngestMetrics) FileFinished(kind domain.DocumentKind, status domain.LedgerStatus, records int64, duration time.Duration) {
	m.filesInFlight.Dec()

	m.filesTotal.WithLabelValues(m.service, string(kind), string(status)).Inc()
	m.fileDuration.WithLabelValues(m.service, string(kind)).Observe(duration.Seconds())
	if records > 0 {
		m.recordsTotal.WithLabelValues(m.service, string(kind)).Add(float64(records))
	}
	if status == domain.StatusSuccess {
		m.lastSuccessUTC.SetToCurrentTime()
	}
}
