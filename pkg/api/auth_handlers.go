package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/carelink/pkg/accounts"
	"github.com/platinummonkey/carelink/pkg/auth"
	"github.com/platinummonkey/carelink/pkg/httputil"
	"github.com/platinummonkey/carelink/pkg/middleware"
)

// AuthHandlers handles login and the caller's own account
type AuthHandlers struct {
	resolver *auth.Resolver
	accounts *accounts.Service
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(resolver *auth.Resolver, accounts *accounts.Service) *AuthHandlers {
	return &AuthHandlers{resolver: resolver, accounts: accounts}
}

// RegisterRoutes registers the authenticated auth routes
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/profile", h.getProfile).Methods(http.MethodGet)
	router.HandleFunc("/auth/profile", h.updateProfile).Methods(http.MethodPut)
	router.HandleFunc("/auth/change-password", h.changePassword).Methods(http.MethodPost)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message   string                `json:"message"`
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expiresAt"`
	User      *accounts.ProfileView `json:"user"`
}

// login handles POST /auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := h.resolver.Login(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	user, err := h.accounts.SessionUser(r.Context(), result.Principal)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}

	message := "Login successful"
	if result.Principal.IsSentinel() {
		message = "Login successful (Default Admin)"
	}

	httputil.WriteSuccess(w, loginResponse{
		Message:   message,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      user,
	})
}

// register handles POST /auth/register
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	httputil.WriteAppError(w, r, h.accounts.Register(r.Context()))
}

// getProfile handles GET /auth/profile
func (h *AuthHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.accounts.Profile(r.Context(), middleware.GetPrincipal(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, profile)
}

// updateProfile handles PUT /auth/profile
func (h *AuthHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Contact *string `json:"contact"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	profile, err := h.accounts.UpdateProfile(r.Context(), middleware.GetPrincipal(r), req.Contact)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, struct {
		Message string                `json:"message"`
		User    *accounts.ProfileView `json:"user"`
	}{"Profile updated successfully", profile})
}

// changePassword handles POST /auth/change-password
func (h *AuthHandlers) changePassword(w http.ResponseWriter, r *http.Request) {
	var req accounts.ChangePasswordInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), middleware.GetPrincipal(r), req); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteMessage(w, "Password changed successfully")
}
