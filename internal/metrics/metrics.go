// Package metrics exposes Prometheus collectors for the agenda server.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "agendacal"

// Metrics holds the collectors and the gatherer they are served from.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	feedRefreshes    *prometheus.CounterVec
	addressLookups   *prometheus.CounterVec
	appointments     *prometheus.CounterVec
	userEventsAdded  prometheus.Counter
	lastRefreshStamp prometheus.Gauge
}

// MustNewMetrics registers every collector on reg and panics on a duplicate
// registration. Tests should pass a fresh prometheus.NewRegistry().
func MustNewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route and status code.",
			},
			[]string{"route", "code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		feedRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ics",
				Name:      "refreshes_total",
				Help:      "Baseline feed refresh runs by result.",
			},
			[]string{"result"},
		),
		addressLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "geocode",
				Name:      "lookups_total",
				Help:      "Address lookups by result (hit or empty).",
			},
			[]string{"result"},
		),
		appointments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "wizard",
				Name:      "appointments_total",
				Help:      "Appointments submitted through the wizard by event type.",
			},
			[]string{"event_type"},
		),
		userEventsAdded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "user_added_total",
				Help:      "User events appended to the repository.",
			},
		),
		lastRefreshStamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "ics",
				Name:      "last_refresh_timestamp_seconds",
				Help:      "Unix time of the last completed feed refresh.",
			},
		),
	}
	reg.MustRegister(
		m.httpRequests, m.httpDuration, m.feedRefreshes, m.addressLookups,
		m.appointments, m.userEventsAdded, m.lastRefreshStamp,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Instrument wraps next, counting requests under route.
func (m *Metrics) Instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next(rec, r)
		m.httpRequests.WithLabelValues(route, strconv.Itoa(rec.code)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// FeedRefresh records one refresh run; err is the joined per-feed failure.
func (m *Metrics) FeedRefresh(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "partial"
	}
	m.feedRefreshes.WithLabelValues(result).Inc()
	m.lastRefreshStamp.SetToCurrentTime()
}

func (m *Metrics) AddressLookup(candidates int) {
	if m == nil {
		return
	}
	result := "hit"
	if candidates == 0 {
		result = "empty"
	}
	m.addressLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) AppointmentCreated(eventType string) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "none"
	}
	m.appointments.WithLabelValues(eventType).Inc()
}

func (m *Metrics) UserEventAdded() {
	if m == nil {
		return
	}
	m.userEventsAdded.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}
