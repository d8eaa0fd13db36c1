package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/carelink/pkg/apperr"
	"github.com/platinummonkey/carelink/pkg/models"
	"github.com/platinummonkey/carelink/pkg/observability"
	"github.com/platinummonkey/carelink/pkg/storage"
)

// SentinelCredentials is the configured super-admin login.
// Sentinel login is disabled unless both fields are non-empty.
type SentinelCredentials struct {
	Username string
	Password string
}

func (c SentinelCredentials) enabled() bool {
	return c.Username != "" && c.Password != ""
}

// matches compares in constant time
func (c SentinelCredentials) matches(username, password string) bool {
	if !c.enabled() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	return userOK && passOK
}

// UserReader is the slice of the credential store the resolver needs
type UserReader interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Principal *Principal
}

// Resolver turns credentials and tokens into Principals
type Resolver struct {
	users    UserReader
	tokens   *TokenManager
	sentinel SentinelCredentials
	metrics  *observability.Metrics
	tracer   trace.Tracer
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithMetrics records login and verification outcomes
func WithMetrics(m *observability.Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver creates a resolver
func NewResolver(users UserReader, tokens *TokenManager, sentinel SentinelCredentials, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		users:    users,
		tokens:   tokens,
		sentinel: sentinel,
		tracer:   otel.Tracer("github.com/platinummonkey/carelink/pkg/auth"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Login authenticates a username and password and issues a token
func (r *Resolver) Login(ctx context.Context, username, password string) (result *LoginResult, err error) {
	ctx, span := r.tracer.Start(ctx, "auth.Login")
	defer func() {
		endSpan(span, err)
		r.metrics.RecordLogin(outcome(err))
	}()

	if username == "" || password == "" {
		return nil, apperr.Validation("Username and password are required")
	}

	if r.sentinel.matches(username, password) {
		span.SetAttributes(attribute.Bool("auth.sentinel", true))
		return r.issue(SentinelPrincipal())
	}

	user, err := r.users.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		burnCompare(password)
		return nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.Internal("Server error", fmt.Errorf("login lookup: %w", err))
	}

	if !user.IsActive {
		return nil, apperr.ErrAccountDisabled
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, apperr.ErrInvalidCredentials
	}

	span.SetAttributes(attribute.Int64("auth.user_id", user.ID))
	return r.issue(StoredPrincipal(user))
}

func (r *Resolver) issue(p *Principal) (*LoginResult, error) {
	token, expiresAt, err := r.tokens.Issue(p.ID, p.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Principal: p}, nil
}

// Verify resolves a bearer token into a Principal. Stored users are re-read
// so deactivation and deletion take effect immediately.
func (r *Resolver) Verify(ctx context.Context, token string) (p *Principal, err error) {
	ctx, span := r.tracer.Start(ctx, "auth.Verify")
	defer func() {
		endSpan(span, err)
		r.metrics.RecordTokenVerification(outcome(err))
	}()

	if token == "" {
		return nil, apperr.ErrTokenMissing
	}

	claims, err := r.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	if claims.ID == SentinelID {
		if claims.Role != models.RoleAdmin {
			return nil, apperr.ErrTokenInvalid
		}
		span.SetAttributes(attribute.Bool("auth.sentinel", true))
		return SentinelPrincipal(), nil
	}

	user, err := r.users.GetUser(ctx, claims.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, apperr.Internal("Server error", fmt.Errorf("verify lookup: %w", err))
	}

	if !user.IsActive {
		return nil, apperr.ErrAccountDisabled
	}

	span.SetAttributes(attribute.Int64("auth.user_id", user.ID))
	return StoredPrincipal(user), nil
}

// outcome labels an error for metrics
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if e := apperr.From(err); e.Code != "" {
		return e.Code
	}
	return apperr.CodeInternal
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
