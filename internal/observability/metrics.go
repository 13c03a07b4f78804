package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a
// scoring run.
type Metrics struct {
	CandidatesAssembled  prometheus.Counter
	CandidatesScored     prometheus.Counter
	CandidatesEliminated prometheus.Counter
	GeometrySkips        prometheus.Counter
	RunActive            prometheus.Gauge

	// DataGaps counts neutral-default substitutions by source
	// (flood, contamination, habitat, generation, solar).
	DataGaps *prometheus.CounterVec

	ScoringDuration prometheus.Histogram
}

// NewMetrics creates and registers all run metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CandidatesAssembled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "site_scout",
			Name:      "candidates_assembled_total",
			Help:      "Candidate sites produced by the assembler.",
		}),
		CandidatesScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "site_scout",
			Name:      "candidates_scored_total",
			Help:      "Candidate sites carried through composite scoring.",
		}),
		CandidatesEliminated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "site_scout",
			Name:      "candidates_eliminated_total",
			Help:      "Candidate sites removed from ranking by a hard criterion.",
		}),
		GeometrySkips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "site_scout",
			Name:      "geometry_skips_total",
			Help:      "Input records dropped for malformed geometry.",
		}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "site_scout",
			Name:      "run_active",
			Help:      "1 while a scoring run is in progress, 0 otherwise.",
		}),
		DataGaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "site_scout",
			Name:      "data_gaps_total",
			Help:      "Neutral-default substitutions by missing source.",
		}, []string{"source"}),
		ScoringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "site_scout",
			Name:      "scoring_duration_seconds",
			Help:      "Duration of a complete assemble-screen-assess-rank run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}

	prometheus.MustRegister(
		m.CandidatesAssembled,
		m.CandidatesScored,
		m.CandidatesEliminated,
		m.GeometrySkips,
		m.RunActive,
		m.DataGaps,
		m.ScoringDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CandidatesAssembled:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "site_scout", Name: "candidates_assembled_total"}),
		CandidatesScored:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "site_scout", Name: "candidates_scored_total"}),
		CandidatesEliminated: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "site_scout", Name: "candidates_eliminated_total"}),
		GeometrySkips:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "site_scout", Name: "geometry_skips_total"}),
		RunActive:            prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "site_scout", Name: "run_active"}),
		DataGaps:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "site_scout", Name: "data_gaps_total"}, []string{"source"}),
		ScoringDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "site_scout", Name: "scoring_duration_seconds"}),
	}
}
