// Package auth resolves callers into Principals for CareLink.
//
// # Overview
//
// Two kinds of principal exist:
//
//   - The super-admin sentinel: id 0, role ADMIN, always active, all
//     capabilities. Its credentials come from configuration and it is never
//     stored. Resolving it never touches the credential store.
//   - Stored users: rows in the credential store with a role and an active flag.
//
// # Key Components
//
// Resolver: Login with username and password, Verify bearer tokens
//
//	resolver := auth.NewResolver(store, tokens, auth.SentinelCredentials{
//		Username: cfg.Auth.AdminUsername,
//		Password: cfg.Auth.AdminPassword,
//	})
//	result, err := resolver.Login(ctx, "jane_doe", "Jane123")
//	principal, err := resolver.Verify(ctx, result.Token)
//
// TokenManager: HS256 JWTs carrying {id, role}, 8 hour default lifetime
//
// Password helpers: bcrypt hashing and the FirstName+"123" initial password
//
// Username helpers: first_last generation with numeric suffixes on collision
//
// # Verification Rules
//
// A token whose id is 0 and role is ADMIN resolves to the sentinel. Any other
// id 0 token is rejected. Stored users are re-read on every request, so a
// deactivated or deleted account is rejected even while its token is unexpired,
// and the stored role wins over the role in the token.
//
// # Related Packages
//
//   - pkg/rbac: decides what a Principal may do
//   - pkg/middleware: extracts bearer tokens and calls Verify
package auth
