// Package auth provides authentication and authorization for projectcamp.
//
// # Secrets
//
// Passwords are stored as bcrypt hashes (HashPassword, CheckPassword).
// Email verification and password reset links carry opaque tokens from
// GenerateToken: 32 random bytes, hex encoded.
//
// # Access Tokens
//
// A TokenCodec issues HS256 JWTs with claims sub (user id), role (global user
// role), iat and exp. The secret and lifetime are passed in explicitly:
//
//	codec, err := NewTokenCodec([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
//	token, err := codec.Issue(user.ID, user.Role)
//	claims, err := codec.Verify(token)
//
// Verify fails with ErrInvalidToken for every kind of bad token.
//
// # Gates
//
// Authenticator resolves the user behind a request. The token is read from the
// "token" cookie first, then from an Authorization: Bearer header.
//
// Authorizer resolves a user's role inside a project. The per-project role in
// project_members is the only role it consults; the global role in the token
// plays no part.
//
// RequireUser and RequireProjectRole wrap the two gates as net/http
// middleware:
//
//	mux.Handle("PUT /projects/{projectId}",
//	    RequireUser(authn, writeError)(
//	        RequireProjectRole(authz, writeError, store.RoleAdmin)(h)))
//
// # Errors
//
// Every client-facing failure is an *Error of kind BadRequest, Unauthorized,
// Forbidden, NotFound, Conflict or Internal. StatusCode maps any error to its
// HTTP status; errors that are not *Error are Internal.
package auth
