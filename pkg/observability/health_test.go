package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

type stubPinger struct{ err error }

func (s stubPinger) HealthCheck(context.Context) error { return s.err }

func TestHealthChecker_Liveness(t *testing.T) {
	checker := NewHealthChecker(nil, nil, nil, "test")

	req := httptest.NewRequest("GET", "/health/live", nil)
	rr := httptest.NewRecorder()
	checker.Liveness(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Liveness returned %d, want %d", rr.Code, http.StatusOK)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", ct)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["status"] != StatusHealthy {
		t.Errorf("Expected status %s, got %v", StatusHealthy, response["status"])
	}
}

func TestHealthChecker_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		store      Pinger
		wantCode   int
		wantStatus string
	}{
		{"no dependencies", nil, http.StatusOK, StatusHealthy},
		{"store up", stubPinger{}, http.StatusOK, StatusHealthy},
		{"store down", stubPinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewHealthChecker(tt.store, nil, nil, "1.2.3")

			rr := httptest.NewRecorder()
			checker.Readiness(rr, httptest.NewRequest("GET", "/health/ready", nil))

			if rr.Code != tt.wantCode {
				t.Errorf("got code %d, want %d", rr.Code, tt.wantCode)
			}
			var status HealthStatus
			if err := json.NewDecoder(rr.Body).Decode(&status); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if status.Status != tt.wantStatus {
				t.Errorf("got status %s, want %s", status.Status, tt.wantStatus)
			}
			if status.Version != "1.2.3" {
				t.Errorf("got version %q", status.Version)
			}
		})
	}
}

func TestHealthChecker_UnboundedPoolIsHealthy(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	checker := NewHealthChecker(stubPinger{}, db, nil, "")
	status := checker.Check(context.Background())

	if got := status.Dependencies["database"].Status; got != StatusHealthy {
		t.Errorf("unbounded pool reported %s", got)
	}
}

func TestHealthChecker_RedisDownDegrades(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	checker := NewHealthChecker(stubPinger{}, nil, client, "")
	if got := checker.Check(context.Background()).Status; got != StatusHealthy {
		t.Fatalf("with redis up got %s", got)
	}

	mr.Close()

	status := checker.Check(context.Background())
	if status.Status != StatusDegraded {
		t.Errorf("with redis down got %s, want %s", status.Status, StatusDegraded)
	}
	if status.Dependencies["redis"].Status != StatusUnhealthy {
		t.Errorf("redis dependency got %s", status.Dependencies["redis"].Status)
	}
}

func TestRegisterHealthRoutes(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHealthRoutes(mux, NewHealthChecker(nil, nil, nil, ""))

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s returned %d", path, rr.Code)
		}
	}
}
