package httpx

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/asm0dey/java-version-checker-sub002/internal/domain"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

func (r *Router) initMetrics() {
	r.metricsOnce.Do(func() {
		r.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jdkcensus",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"})

		r.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jdkcensus",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"})

		r.rateLimitHits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jdkcensus",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by the rate limiter",
		}, []string{"route", "key_type"})

		r.analysisRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jdkcensus",
			Subsystem: "api",
			Name:      "analysis_runs_total",
			Help:      "Analysis runs by terminal status",
		}, []string{"status"})

		r.licenseDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jdkcensus",
			Subsystem: "api",
			Name:      "license_decisions_total",
			Help:      "License classifications by decision rule",
		}, []string{"rule", "requires_license"})

		r.requestTotal = registerCounterVec(r.requestTotal)
		r.requestDuration = registerHistogramVec(r.requestDuration)
		r.rateLimitHits = registerCounterVec(r.rateLimitHits)
		r.analysisRuns = registerCounterVec(r.analysisRuns)
		r.licenseDecisions = registerCounterVec(r.licenseDecisions)
		r.metricsInitialized = true
	})
}

// registerCounterVec registers the collector, reusing the existing one when
// another Router instance already claimed the name.
func registerCounterVec(c *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
	}
	return c
}

func registerHistogramVec(h *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(h); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing
			}
		}
	}
	return h
}

func (r *Router) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	if !r.metricsInitialized {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	r.requestTotal.With(labels).Inc()
	r.requestDuration.With(labels).Observe(duration.Seconds())
}

func (r *Router) recordRateLimitHit(route, keyType string) {
	if !r.metricsInitialized {
		return
	}
	r.rateLimitHits.With(prometheus.Labels{"route": route, "key_type": keyType}).Inc()
}

func (r *Router) recordAnalysisRun(status string) {
	if !r.metricsInitialized {
		return
	}
	r.analysisRuns.With(prometheus.Labels{"status": status}).Inc()
}

func (r *Router) recordLicenseDecisions(observations []domain.RuntimeObservation) {
	if !r.metricsInitialized {
		return
	}
	for _, obs := range observations {
		r.licenseDecisions.With(prometheus.Labels{
			"rule":             obs.LicenseRule,
			"requires_license": strconv.FormatBool(obs.RequiresLicense),
		}).Inc()
	}
}
