package metrics

import (
	"net/http"
	"time"

	"github.com/mikey/phishgard/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "phishgard"

// Recorder collects pipeline metrics in its own registry
type Recorder struct {
	registry     *prometheus.Registry
	analyses     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	vetoes       *prometheus.CounterVec
	osintErrors  *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
}

// NewRecorder creates a Recorder with the Go and process collectors registered
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of analyses by verdict and source",
		}, []string{"verdict", "source"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time spent producing a verdict",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		vetoes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vetoes_total",
			Help:      "Total number of OSINT vetoes by rule",
		}, []string{"rule"}),
		osintErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "osint_errors_total",
			Help:      "Total number of failed reputation lookups by source",
		}, []string{"source"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of analysis cache lookups",
		}, []string{"result"}),
	}
	r.registry.MustRegister(
		r.analyses,
		r.duration,
		r.vetoes,
		r.osintErrors,
		r.cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// AnalysisCompleted counts a finished analysis
func (r *Recorder) AnalysisCompleted(verdict core.Verdict, source string, elapsed time.Duration) {
	r.analyses.WithLabelValues(string(verdict), source).Inc()
	r.duration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// VetoApplied counts a veto
func (r *Recorder) VetoApplied(rule string) {
	r.vetoes.WithLabelValues(rule).Inc()
}

// CacheLookup counts a hit or a miss
func (r *Recorder) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// LookupFailed counts a failed reputation lookup
func (r *Recorder) LookupFailed(source string) {
	r.osintErrors.WithLabelValues(source).Inc()
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
