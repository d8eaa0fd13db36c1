package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/carelink/pkg/apperr"
	"github.com/platinummonkey/carelink/pkg/auth"
	"github.com/platinummonkey/carelink/pkg/contextkeys"
	"github.com/platinummonkey/carelink/pkg/models"
)

type fakeVerifier struct {
	principals map[string]*auth.Principal
	err        error
}

func (f *fakeVerifier) Verify(_ context.Context, token string) (*auth.Principal, error) {
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.principals[token]; ok {
		return p, nil
	}
	return nil, apperr.ErrTokenInvalid
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"  Bearer   abc  ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, bearerToken(tt.header))
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	user := auth.StoredPrincipal(&models.User{ID: 7, Role: models.RoleUser, IsActive: true})
	verifier := &fakeVerifier{principals: map[string]*auth.Principal{
		"sentinel": auth.SentinelPrincipal(),
		"user":     user,
	}}

	var got *auth.Principal
	var gotUserID string
	h := NewAuthMiddleware(verifier).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetPrincipal(r)
		gotUserID = contextkeys.GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantErr  string
		wantID   string
	}{
		{"missing", "", http.StatusUnauthorized, "No token provided", ""},
		{"wrong scheme", "Token user", http.StatusUnauthorized, "No token provided", ""},
		{"invalid", "Bearer nope", http.StatusUnauthorized, "Invalid token", ""},
		{"sentinel", "Bearer sentinel", http.StatusOK, "", "0"},
		{"user", "Bearer user", http.StatusOK, "", "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantCode, rr.Code)
			if tt.wantErr != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
				assert.Equal(t, tt.wantErr, body["error"])
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, gotUserID)
		})
	}
}

func TestAuthMiddleware_DisabledAccount(t *testing.T) {
	h := NewAuthMiddleware(&fakeVerifier{err: apperr.ErrAccountDisabled}).Handler(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run")
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer x")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestPrincipalFromContext_Empty(t *testing.T) {
	assert.Nil(t, PrincipalFromContext(context.Background()))
}
