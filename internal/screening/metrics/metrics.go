package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the screening module.
type Metrics struct {
	// Full Screen call latency
	ScreenLatency prometheus.Histogram

	// Per-symbol latency by instrument kind
	SymbolLatency *prometheus.HistogramVec

	// Final verdicts by verdict and kind
	Verdicts *prometheus.CounterVec

	// Warnings by code
	Warnings *prometheus.CounterVec

	// Financial ratio resolution by outcome: stored, estimated, missing
	FinancialLookups *prometheus.CounterVec

	// Requests rejected before scoring
	Rejected prometheus.Counter

	// Compliance audit events that could not be written
	AuditFailures prometheus.Counter
}

// New registers the screening metrics with reg. A nil registerer leaves
// them unregistered, which suits tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ScreenLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_screen_duration_seconds",
			Help:    "Duration of a full screening call across all requested symbols",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		SymbolLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "screener_symbol_duration_seconds",
			Help:    "Duration of screening one symbol by instrument kind",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"kind"}),

		Verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_verdicts_total",
			Help: "Total final verdicts by verdict and instrument kind",
		}, []string{"verdict", "kind"}),

		Warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_warnings_total",
			Help: "Total screening warnings by code",
		}, []string{"code"}),

		FinancialLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_financial_lookups_total",
			Help: "Financial ratio resolutions by outcome",
		}, []string{"outcome"}),

		Rejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "screener_requests_rejected_total",
			Help: "Screening requests rejected by validation",
		}),

		AuditFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "screener_audit_failures_total",
			Help: "Compliance audit events that failed to persist",
		}),
	}
}

func (m *Metrics) ObserveScreenLatency(d time.Duration) {
	if m != nil {
		m.ScreenLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveSymbolLatency(kind string, d time.Duration) {
	if m != nil {
		m.SymbolLatency.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// IncrementVerdict records a top-level final verdict.
func (m *Metrics) IncrementVerdict(verdict, kind string) {
	if m != nil {
		m.Verdicts.WithLabelValues(verdict, kind).Inc()
	}
}

func (m *Metrics) IncrementWarning(code string) {
	if m != nil {
		m.Warnings.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) IncrementFinancialLookup(outcome string) {
	if m != nil {
		m.FinancialLookups.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementRejected() {
	if m != nil {
		m.Rejected.Inc()
	}
}
