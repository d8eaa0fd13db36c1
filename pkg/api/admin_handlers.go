package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/carelink/pkg/accounts"
	"github.com/platinummonkey/carelink/pkg/httputil"
	"github.com/platinummonkey/carelink/pkg/middleware"
	"github.com/platinummonkey/carelink/pkg/records"
)

// AdminHandlers handles the admin console. Routes are mounted behind the
// admin role gate.
type AdminHandlers struct {
	accounts *accounts.Service
	records  *records.Service
}

// NewAdminHandlers creates admin handlers
func NewAdminHandlers(accounts *accounts.Service, records *records.Service) *AdminHandlers {
	return &AdminHandlers{accounts: accounts, records: records}
}

// RegisterRoutes registers admin routes
func (h *AdminHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/dashboard/stats", h.dashboardStats).Methods(http.MethodGet)

	// User routes
	router.HandleFunc("/users", h.listUsers).Methods(http.MethodGet)
	router.HandleFunc("/users", h.createUser).Methods(http.MethodPost)
	router.HandleFunc("/users/{id}", h.getUser).Methods(http.MethodGet)
	router.HandleFunc("/users/{id}", h.updateUser).Methods(http.MethodPut)
	router.HandleFunc("/users/{id}", h.deleteUser).Methods(http.MethodDelete)
	router.HandleFunc("/users/{id}/reset-password", h.resetPassword).Methods(http.MethodPost)
	router.HandleFunc("/users/{id}/patients", h.userPatients).Methods(http.MethodGet)
	router.HandleFunc("/users/{id}/mappings", h.userMappings).Methods(http.MethodGet)

	// Global record views
	router.HandleFunc("/patients", h.allPatients).Methods(http.MethodGet)
	router.HandleFunc("/doctors", h.allDoctors).Methods(http.MethodGet)
	router.HandleFunc("/mappings", h.allMappings).Methods(http.MethodGet)
}

func (h *AdminHandlers) dashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.accounts.DashboardStats(r.Context(), middleware.GetPrincipal(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, stats)
}

func (h *AdminHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.ListUsers(r.Context(), middleware.GetPrincipal(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, users)
}

func (h *AdminHandlers) createUser(w http.ResponseWriter, r *http.Request) {
	var req accounts.CreateUserInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := h.accounts.CreateUser(r.Context(), middleware.GetPrincipal(r), req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteCreated(w, result)
}

func (h *AdminHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	user, err := h.accounts.GetUser(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (h *AdminHandlers) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req accounts.UpdateUserInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.accounts.UpdateUser(r.Context(), middleware.GetPrincipal(r), id, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, struct {
		Message string             `json:"message"`
		User    *accounts.UserView `json:"user"`
	}{"User updated successfully", user})
}

func (h *AdminHandlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	// The self-action guard compares against the raw id, so id 0 must parse
	// for the super-admin's own delete to be rejected as such.
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}

	if err := h.accounts.DeleteUser(r.Context(), middleware.GetPrincipal(r), id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteMessage(w, "User deleted successfully")
}

func (h *AdminHandlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	result, err := h.accounts.ResetPassword(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (h *AdminHandlers) userPatients(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	patients, err := h.records.UserPatients(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, patients)
}

func (h *AdminHandlers) userMappings(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	mappings, err := h.records.UserMappings(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, mappings)
}

func (h *AdminHandlers) allPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.records.AllPatients(r.Context(), middleware.GetPrincipal(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, patients)
}

func (h *AdminHandlers) allDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.records.AllDoctors(r.Context(), middleware.GetPrincipal(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, doctors)
}

func (h *AdminHandlers) allMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.records.AllMappings(r.Context(), middleware.GetPrincipal(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, mappings)
}
