package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "scancheckout"

var (
	erpCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "erp_calls_total",
		Help:      "Outbound ERP JSON-RPC calls by model, method and outcome.",
	}, []string{"model", "method", "outcome"})

	erpCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "erp_call_duration_seconds",
		Help:      "Latency of outbound ERP JSON-RPC calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"model", "method"})

	checkoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Checkout attempts by target model and result.",
	}, []string{"target", "result"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// ObserveERPCall records one ERP call. outcome is "ok" or an error class.
func ObserveERPCall(model, method, outcome string, elapsed time.Duration) {
	erpCallsTotal.WithLabelValues(model, method, outcome).Inc()
	erpCallDuration.WithLabelValues(model, method).Observe(elapsed.Seconds())
}

// ObserveCheckout records one orchestrated checkout.
func ObserveCheckout(target string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	checkoutsTotal.WithLabelValues(target, result).Inc()
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route, status string, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
