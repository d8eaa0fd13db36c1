package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitOTel_Disabled(t *testing.T) {
	providers, err := InitOTel(context.Background(), OTelConfig{Enabled: false}, NopLogger())
	require.NoError(t, err)
	assert.Nil(t, providers)
}

func TestInitOTel_RequiresEndpoint(t *testing.T) {
	_, err := InitOTel(context.Background(), OTelConfig{Enabled: true}, NopLogger())
	assert.Error(t, err)
}

func TestInitOTel_UnreachableCollectorDoesNotBlock(t *testing.T) {
	providers, err := InitOTel(context.Background(), OTelConfig{
		Enabled:     true,
		Endpoint:    "127.0.0.1:1",
		ServiceName: "carelink-test",
		Insecure:    true,
	}, NopLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Flushing to a dead endpoint with a canceled context may error; it must not hang
	_ = ShutdownOTel(ctx, providers, NopLogger())
}

func TestShutdownOTel_NilProviders(t *testing.T) {
	assert.NoError(t, ShutdownOTel(context.Background(), nil, NopLogger()))
	assert.NoError(t, ShutdownOTel(context.Background(), &OTelProviders{}, NopLogger()))
}

func TestUpdateLoggerWithTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	t.Run("no span", func(t *testing.T) {
		assert.Same(t, logger, UpdateLoggerWithTraceContext(context.Background(), logger))
	})

	t.Run("recording span", func(t *testing.T) {
		buf.Reset()
		tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(tracetest.NewSpanRecorder()))
		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		UpdateLoggerWithTraceContext(ctx, logger).Info("traced")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
		assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
	})

	t.Run("nil logger", func(t *testing.T) {
		assert.Nil(t, UpdateLoggerWithTraceContext(context.Background(), nil))
	})
}

func TestResourceAttributes(t *testing.T) {
	attrs := ResourceAttributes(OTelConfig{
		ServiceName:     "carelink-api",
		ServiceVersion:  "2.1.0",
		Environment:     "staging",
		StorageBackend:  "postgres",
		SentinelEnabled: true,
	})
	got := make(map[string]string, len(attrs))
	for _, kv := range attrs {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, map[string]string{
		"service.name":                 "carelink-api",
		"service.namespace":            "carelink",
		"service.version":              "2.1.0",
		"deployment.environment":       "staging",
		"carelink.storage.backend":     "postgres",
		"carelink.super_admin.enabled": "true",
	}, got)
}

func TestResourceAttributes_Defaults(t *testing.T) {
	got := map[string]string{}
	for _, kv := range ResourceAttributes(OTelConfig{}) {
		got[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "carelink", got["service.name"])
	assert.Equal(t, "false", got["carelink.super_admin.enabled"])
	assert.NotContains(t, got, "service.version")
	assert.NotContains(t, got, "carelink.storage.backend")
}

func TestHTTPSpanName(t *testing.T) {
	tests := []struct {
		method, target, want string
	}{
		{http.MethodGet, "/api/patients", "GET /api/patients"},
		{http.MethodGet, "/api/patients/12", "GET /api/patients/{id}"},
		{http.MethodPost, "/api/admin/users/7/reset-password", "POST /api/admin/users/{id}/reset-password"},
		{http.MethodGet, "/api/admin/users/3/mappings/", "GET /api/admin/users/{id}/mappings/"},
		{http.MethodPost, "/api/auth/login", "POST /api/auth/login"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(tt.method, tt.target, nil)
		assert.Equal(t, tt.want, HTTPSpanName("carelink", r), tt.target)
	}
}

func TestNewSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), newSampler(1).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), newSampler(0).Description())
	assert.Contains(t, newSampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}
