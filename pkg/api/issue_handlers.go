package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/carelink/pkg/httputil"
	"github.com/platinummonkey/carelink/pkg/issues"
	"github.com/platinummonkey/carelink/pkg/middleware"
	"github.com/platinummonkey/carelink/pkg/rbac"
)

// IssueHandlers handles issue requests
type IssueHandlers struct {
	issues *issues.Service
}

// NewIssueHandlers creates issue handlers
func NewIssueHandlers(issues *issues.Service) *IssueHandlers {
	return &IssueHandlers{issues: issues}
}

// RegisterRoutes registers issue routes. Updates are admin only.
func (h *IssueHandlers) RegisterRoutes(router *mux.Router, gates *rbac.Middleware) {
	router.HandleFunc("/issues", h.create).Methods(http.MethodPost)
	router.HandleFunc("/issues", h.list).Methods(http.MethodGet)
	router.HandleFunc("/issues/pending/count", h.pendingCount).Methods(http.MethodGet)
	router.HandleFunc("/issues/{id}", h.get).Methods(http.MethodGet)
	router.Handle("/issues/{id}", gates.RequireAdmin()(http.HandlerFunc(h.update))).Methods(http.MethodPut)
	router.HandleFunc("/issues/{id}", h.delete).Methods(http.MethodDelete)
}

func (h *IssueHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req issues.CreateInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	issue, err := h.issues.Create(r.Context(), middleware.GetPrincipal(r), req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteCreated(w, issue)
}

func (h *IssueHandlers) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.issues.List(r.Context(), middleware.GetPrincipal(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, list)
}

func (h *IssueHandlers) pendingCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.issues.PendingCount(r.Context(), middleware.GetPrincipal(r))
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, map[string]int64{"count": count})
}

func (h *IssueHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	issue, err := h.issues.Get(r.Context(), middleware.GetPrincipal(r), id)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, issue)
}

func (h *IssueHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req issues.UpdateInput
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	issue, err := h.issues.Update(r.Context(), middleware.GetPrincipal(r), id, req)
	if err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteSuccess(w, issue)
}

func (h *IssueHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.issues.Delete(r.Context(), middleware.GetPrincipal(r), id); err != nil {
		httputil.WriteAppError(w, r, err)
		return
	}
	httputil.WriteMessage(w, "Issue deleted successfully")
}
