package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/carelink/pkg/accounts"
	"github.com/platinummonkey/carelink/pkg/auth"
	"github.com/platinummonkey/carelink/pkg/httputil"
	"github.com/platinummonkey/carelink/pkg/issues"
	"github.com/platinummonkey/carelink/pkg/middleware"
	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/observability"
	"github.com/platinummonkey/carelink/pkg/rbac"
	"github.com/platinummonkey/carelink/pkg/records"
)

// Services are the domain services behind the HTTP surface
type Services struct {
	Resolver *auth.Resolver
	Gate     *rbac.Gate
	Accounts *accounts.Service
	Records  *records.Service
	Issues   *issues.Service
}

// Options configures the HTTP surface
type Options struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics

	CORSOrigins  []string
	MaxBodyBytes int64

	// LoginLimiter throttles login attempts per client IP. Nil disables.
	LoginLimiter middleware.Limiter
	// APILimiter throttles authenticated calls per principal. Nil disables.
	APILimiter middleware.Limiter
	TrustProxy bool
}

// Server represents our API server
type Server struct {
	router *mux.Router
	opts   Options

	authHandlers   *AuthHandlers
	adminHandlers  *AdminHandlers
	recordHandlers *RecordHandlers
	issueHandlers  *IssueHandlers
	authMiddleware *middleware.AuthMiddleware
	rbacMiddleware *rbac.Middleware
}

// NewServer creates a new API server
func NewServer(svc Services, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}

	s := &Server{
		router:         mux.NewRouter(),
		opts:           opts,
		authHandlers:   NewAuthHandlers(svc.Resolver, svc.Accounts),
		adminHandlers:  NewAdminHandlers(svc.Accounts, svc.Records),
		recordHandlers: NewRecordHandlers(svc.Records),
		issueHandlers:  NewIssueHandlers(svc.Issues),
		authMiddleware: middleware.NewAuthMiddleware(svc.Resolver),
		rbacMiddleware: rbac.NewMiddleware(svc.Gate),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(observability.HTTPMetricsMiddleware(s.opts.Metrics))
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusNotFound, "Route not found")
	})

	api := s.router.PathPrefix("/api").Subrouter()

	// Public routes
	login := http.Handler(http.HandlerFunc(s.authHandlers.login))
	if s.opts.LoginLimiter != nil {
		login = middleware.RateLimit(s.opts.LoginLimiter, middleware.ClientIPKey(s.opts.TrustProxy))(login)
	}
	api.Handle("/auth/login", login).Methods(http.MethodPost)
	api.HandleFunc("/auth/register", s.authHandlers.register).Methods(http.MethodPost)

	// Authenticated routes
	protected := api.NewRoute().Subrouter()
	protected.Use(s.authMiddleware.Handler)
	if s.opts.APILimiter != nil {
		protected.Use(middleware.RateLimit(s.opts.APILimiter, middleware.PrincipalKey(s.opts.TrustProxy)))
	}

	s.authHandlers.RegisterRoutes(protected)

	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(s.rbacMiddleware.RequireAdmin())
	s.adminHandlers.RegisterRoutes(admin)

	s.recordHandlers.RegisterRoutes(protected, s.rbacMiddleware)
	s.issueHandlers.RegisterRoutes(protected, s.rbacMiddleware)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the router wrapped in the request middleware stack:
// recovery, request id, logging, CORS and body limits.
func (s *Server) Handler() http.Handler {
	return httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.opts.Logger),
		httputil.RecoveryMiddleware,
		httputil.CORSMiddleware(s.opts.CORSOrigins),
		httputil.MaxBytesMiddleware(s.opts.MaxBodyBytes),
	)(s.router)
}

// gated wraps h in a capability check
func gated(m *rbac.Middleware, c models.Capability, h http.HandlerFunc) http.Handler {
	return m.RequirePermission(c)(h)
}
