package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Enrichment call outcomes
const (
	OutcomeOK          = "ok"
	OutcomeUnavailable = "unavailable"
	OutcomeCanceled    = "canceled"
)

// Collector exposes the simulator's Prometheus metrics. A nil collector is
// valid and records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	EnrichmentCalls   *prometheus.CounterVec
	CollectionCompute *prometheus.HistogramVec
	HTTPRequests      *prometheus.CounterVec
}

// NewCollector registers the metrics against the provided registerer
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	calls, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evsim_enrichment_calls_total",
		Help: "Outbound enrichment calls by call kind and outcome.",
	}, []string{"call", "outcome"}), "evsim_enrichment_calls_total")
	if err != nil {
		return nil, err
	}

	compute, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evsim_collection_compute_seconds",
		Help:    "Time spent computing a simulation collection.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"collection"}), "evsim_collection_compute_seconds")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evsim_http_requests_total",
		Help: "HTTP requests served by route and status code.",
	}, []string{"method", "route", "status"}), "evsim_http_requests_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:          gatherer,
		EnrichmentCalls:   calls,
		CollectionCompute: compute,
		HTTPRequests:      requests,
	}, nil
}

// Handler serves the registered metrics
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveEnrichment counts one outbound call
func (c *Collector) ObserveEnrichment(call, outcome string) {
	if c == nil || c.EnrichmentCalls == nil {
		return
	}
	c.EnrichmentCalls.WithLabelValues(call, outcome).Inc()
}

// ObserveCompute records how long a collection took to compute
func (c *Collector) ObserveCompute(collection string, d time.Duration) {
	if c == nil || c.CollectionCompute == nil {
		return
	}
	c.CollectionCompute.WithLabelValues(collection).Observe(d.Seconds())
}

// ObserveRequest counts one served HTTP request
func (c *Collector) ObserveRequest(method, route string, status int) {
	if c == nil || c.HTTPRequests == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, fmt.Sprintf("%d", status)).Inc()
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
