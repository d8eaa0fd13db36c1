package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordLogin("success")
		m.RecordTokenVerification("TOKEN_INVALID")
		m.RecordGateDenial("admin")
		m.SetBusinessGauges(BusinessSnapshot{Users: 1})
		m.SetDBStats(1, 1)
	})
}

func TestMetrics_AuthCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordLogin("success")
	m.RecordLogin("success")
	m.RecordLogin("INVALID_CREDENTIALS")
	m.RecordGateDenial("permission:manage-patients")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.LoginAttemptsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LoginAttemptsTotal.WithLabelValues("INVALID_CREDENTIALS")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GateDenialsTotal.WithLabelValues("permission:manage-patients")))
}

func TestMetrics_BusinessGauges(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetBusinessGauges(BusinessSnapshot{Users: 4, ActiveUsers: 3, Patients: 10, Doctors: 2, Mappings: 7, PendingIssues: 1})

	assert.Equal(t, float64(4), testutil.ToFloat64(m.UsersTotal))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.ActiveUsersTotal))
	assert.Equal(t, float64(10), testutil.ToFloat64(m.PatientsTotal))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.MappingsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PendingIssuesTotal))
}

func TestHTTPMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(m))
	router.HandleFunc("/api/patients/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"Patient not found"}`)
	}).Methods(http.MethodGet)

	for _, id := range []string{"1", "2", "3"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/patients/"+id, nil))
		require.Equal(t, http.StatusNotFound, rr.Code)
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues("GET", "/api/patients/{id}", "404")))
}

func TestHTTPMetricsMiddleware_NilMetricsPassThrough(t *testing.T) {
	called := false
	h := HTTPMetricsMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.RecordLogin("success")

	mux := http.NewServeMux()
	RegisterMetricsEndpoint(mux, registry)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), `carelink_login_attempts_total{outcome="success"} 1`))
}
