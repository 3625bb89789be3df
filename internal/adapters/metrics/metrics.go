package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the CareLog collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	documentWrites  *prometheus.CounterVec
	documentLatency *prometheus.HistogramVec
	documentLoads   *prometheus.CounterVec
	painAlerts      *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		documentWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carelog",
			Name:      "document_writes_total",
			Help:      "Document saves by blob backend and result.",
		}, []string{"backend", "result"}),
		documentLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carelog",
			Name:      "document_write_seconds",
			Help:      "Time spent encoding, encrypting and writing the document.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		documentLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carelog",
			Name:      "document_loads_total",
			Help:      "Document loads by outcome.",
		}, []string{"outcome"}),
		painAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carelog",
			Name:      "pain_alerts_published_total",
			Help:      "Pain alert events handed to the broker by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carelog",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
	}
	reg.MustRegister(m.documentWrites, m.documentLatency, m.documentLoads, m.painAlerts, m.httpRequests)
	return m
}

func (m *Metrics) ObserveDocumentWrite(backend string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.documentWrites.WithLabelValues(backend, result(err)).Inc()
	m.documentLatency.WithLabelValues(backend).Observe(took.Seconds())
}

func (m *Metrics) ObserveDocumentLoad(outcome string) {
	if m == nil {
		return
	}
	m.documentLoads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObservePainAlert(err error) {
	if m == nil {
		return
	}
	m.painAlerts.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveHTTPRequest(method, route string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
