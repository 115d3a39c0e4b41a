// Package metrics records analyses, estimator fallbacks, sessions and
// alerts in a Prometheus registry and serves it at /metrics.
package metrics

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/obsidianstack/offpage/pkg/types"
)

const namespace = "offpage"

// severities are pre-initialised so alerts_fired_total always has a series
// per severity.
var severities = []string{"critical", "warning", "info"}

// Registry implements offpage.Observer and store.Observer. The zero value
// is not usable; call New.
type Registry struct {
	reg *prometheus.Registry

	analyses         prometheus.Counter
	degradedAnalyses prometheus.Counter
	analysisDuration prometheus.Histogram

	facetRuns      *prometheus.CounterVec
	facetFallbacks *prometheus.CounterVec
	facetDuration  *prometheus.HistogramVec

	sessionsCreated prometheus.Counter
	sessionsSwept   prometheus.Counter
	alertsFired     *prometheus.CounterVec

	statsOnce sync.Once
}

// New returns a Registry with every collector registered. Each facet and
// alert severity starts at zero.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		analyses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "analyses_total",
			Help: "Analyses completed.",
		}),
		degradedAnalyses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "analyses_degraded_total",
			Help: "Analyses with at least one facet on its fallback value.",
		}),
		analysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "analysis_duration_seconds",
			Help:    "Wall time of one analysis.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		}),
		facetRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "facet_runs_total",
			Help: "Estimator runs by facet.",
		}, []string{"facet"}),
		facetFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "facet_fallbacks_total",
			Help: "Estimator runs that fell back, by facet.",
		}, []string{"facet"}),
		facetDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "facet_duration_seconds",
			Help:    "Wall time of one estimator run, by facet.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"facet"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_created_total",
			Help: "Sessions created.",
		}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sessions_swept_total",
			Help: "Sessions removed by the idle sweep.",
		}),
		alertsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "alerts_fired_total",
			Help: "Alerts fired, by severity.",
		}, []string{"severity"}),
	}
	r.reg.MustRegister(
		r.analyses, r.degradedAnalyses, r.analysisDuration,
		r.facetRuns, r.facetFallbacks, r.facetDuration,
		r.sessionsCreated, r.sessionsSwept, r.alertsFired,
	)
	for _, f := range types.Facets {
		r.facetRuns.WithLabelValues(f)
		r.facetFallbacks.WithLabelValues(f)
	}
	for _, sev := range severities {
		r.alertsFired.WithLabelValues(sev)
	}
	return r
}

// SetStatsSource registers gauges read from fn at scrape time. Only the
// first call has an effect.
func (r *Registry) SetStatsSource(fn func() types.Stats) {
	r.statsOnce.Do(func() {
		gauge := func(name, help string, pick func(types.Stats) int) prometheus.Collector {
			return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: namespace, Name: name, Help: help,
			}, func() float64 { return float64(pick(fn())) })
		}
		r.reg.MustRegister(
			gauge("sessions", "Sessions currently held, including idle ones not yet swept.",
				func(s types.Stats) int { return s.TotalSessions }),
			gauge("sessions_active", "Sessions idle for less than the timeout.",
				func(s types.Stats) int { return s.ActiveSessions }),
			gauge("analyses_stored", "Analyses currently held.",
				func(s types.Stats) int { return s.TotalAnalyses }),
		)
	})
}

// ObserveFacet records one estimator run.
func (r *Registry) ObserveFacet(facet string, d time.Duration, degraded bool) {
	r.facetRuns.WithLabelValues(facet).Inc()
	r.facetDuration.WithLabelValues(facet).Observe(d.Seconds())
	if degraded {
		r.facetFallbacks.WithLabelValues(facet).Inc()
	}
}

// ObserveAnalysis records one completed analysis.
func (r *Registry) ObserveAnalysis(d time.Duration, degradedFacets int) {
	r.analyses.Inc()
	r.analysisDuration.Observe(d.Seconds())
	if degradedFacets > 0 {
		r.degradedAnalyses.Inc()
	}
}

func (r *Registry) SessionCreated() { r.sessionsCreated.Inc() }

// SessionsSwept records n sessions removed by the idle sweep.
func (r *Registry) SessionsSwept(n int) { r.sessionsSwept.Add(float64(n)) }

// AlertFired records one fired alert.
func (r *Registry) AlertFired(severity string) { r.alertsFired.WithLabelValues(severity).Inc() }

// Gather returns every metric family, sorted by name.
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	return r.reg.Gather()
}

// WriteText encodes every metric family to w in the text exposition format.
func (r *Registry) WriteText(w io.Writer) error {
	mfs, err := r.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the registry at GET /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
