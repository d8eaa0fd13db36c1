package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Auth metrics
	LoginAttemptsTotal      *prometheus.CounterVec
	TokenVerificationsTotal *prometheus.CounterVec
	GateDenialsTotal        *prometheus.CounterVec

	// Database metrics
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge

	// Business metrics
	UsersTotal           prometheus.Gauge
	ActiveUsersTotal     prometheus.Gauge
	PatientsTotal        prometheus.Gauge
	DoctorsTotal         prometheus.Gauge
	MappingsTotal        prometheus.Gauge
	PendingIssuesTotal   prometheus.Gauge
	GaugeRefreshFailures prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carelink_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "carelink_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "carelink_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "carelink_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		LoginAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carelink_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		TokenVerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carelink_token_verifications_total",
				Help: "Bearer token verifications by outcome",
			},
			[]string{"outcome"},
		),
		GateDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carelink_gate_denials_total",
				Help: "Requests rejected by an authorization gate",
			},
			[]string{"gate"},
		),

		DBConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "carelink_db_connections_open",
			Help: "Open database connections",
		}),
		DBConnectionsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "carelink_db_connections_in_use",
			Help: "Database connections currently in use",
		}),

		UsersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "carelink_users_total",
			Help: "Stored user accounts",
		}),
		ActiveUsersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "carelink_active_users_total",
			Help: "Stored user accounts that are active",
		}),
		PatientsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "carelink_patients_total",
			Help: "Patient records",
		}),
		DoctorsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "carelink_doctors_total",
			Help: "Doctor records",
		}),
		MappingsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "carelink_mappings_total",
			Help: "Patient-doctor mappings",
		}),
		PendingIssuesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "carelink_pending_issues_total",
			Help: "Issue requests in pending status",
		}),
		GaugeRefreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carelink_gauge_refresh_failures_total",
			Help: "Failed business gauge refresh runs",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.LoginAttemptsTotal,
		m.TokenVerificationsTotal,
		m.GateDenialsTotal,
		m.DBConnectionsOpen,
		m.DBConnectionsInUse,
		m.UsersTotal,
		m.ActiveUsersTotal,
		m.PatientsTotal,
		m.DoctorsTotal,
		m.MappingsTotal,
		m.PendingIssuesTotal,
		m.GaugeRefreshFailures,
	)

	return m
}

// RecordLogin counts a login attempt. Safe on a nil receiver.
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttemptsTotal.WithLabelValues(outcome).Inc()
}

// RecordTokenVerification counts a token verification. Safe on a nil receiver.
func (m *Metrics) RecordTokenVerification(outcome string) {
	if m == nil {
		return
	}
	m.TokenVerificationsTotal.WithLabelValues(outcome).Inc()
}

// RecordGateDenial counts a rejected authorization check. Safe on a nil receiver.
func (m *Metrics) RecordGateDenial(gate string) {
	if m == nil {
		return
	}
	m.GateDenialsTotal.WithLabelValues(gate).Inc()
}

// BusinessSnapshot is a point-in-time view of record counts
type BusinessSnapshot struct {
	Users         int64
	ActiveUsers   int64
	Patients      int64
	Doctors       int64
	Mappings      int64
	PendingIssues int64
}

// SetBusinessGauges publishes a snapshot. Safe on a nil receiver.
func (m *Metrics) SetBusinessGauges(s BusinessSnapshot) {
	if m == nil {
		return
	}
	m.UsersTotal.Set(float64(s.Users))
	m.ActiveUsersTotal.Set(float64(s.ActiveUsers))
	m.PatientsTotal.Set(float64(s.Patients))
	m.DoctorsTotal.Set(float64(s.Doctors))
	m.MappingsTotal.Set(float64(s.Mappings))
	m.PendingIssuesTotal.Set(float64(s.PendingIssues))
}

// SetDBStats publishes connection pool stats. Safe on a nil receiver.
func (m *Metrics) SetDBStats(open, inUse int) {
	if m == nil {
		return
	}
	m.DBConnectionsOpen.Set(float64(open))
	m.DBConnectionsInUse.Set(float64(inUse))
}

// RecordGaugeRefreshFailure counts a failed gauge refresh. Safe on a nil receiver.
func (m *Metrics) RecordGaugeRefreshFailure() {
	if m == nil {
		return
	}
	m.GaugeRefreshFailures.Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// routeLabel returns the matched mux path template so ids do not explode
// label cardinality. Unmatched requests share one label.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Install it with Router.Use so the matched route is visible.
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := routeLabel(r)

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.WithLabelValues(r.Method, path).Observe(float64(r.ContentLength))
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, path).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
