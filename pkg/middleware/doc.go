// Package middleware provides HTTP middleware for authentication and rate limiting.
//
// AuthMiddleware resolves the bearer token through an auth.Resolver and
// stores the *auth.Principal in the request context:
//
//	authMW := middleware.NewAuthMiddleware(resolver)
//	protected.Use(authMW.Handler)
//	p := middleware.GetPrincipal(r)
//
// Rate limiting comes in two backends sharing the Limiter interface. The
// local limiter keeps token buckets in an expiring LRU; the distributed one
// counts fixed windows in Redis and fails open when Redis is unreachable.
//
//	login := middleware.RateLimit(middleware.NewLocalRateLimiter(middleware.LoginRateLimitConfig()),
//		middleware.ClientIPKey(false))
package middleware
