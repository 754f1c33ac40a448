// ABOUTME: HTTP middleware for token authentication and project role checks
// ABOUTME: Reads the token cookie before the Authorization header and adds the user to context

package auth

import (
	"net/http"
	"strings"
)

// TokenCookieName is the cookie carrying the access token.
const TokenCookieName = "token"

// ErrorWriter renders a gate failure and ends the request.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// ExtractToken returns the access token from the token cookie or, when the
// cookie is absent or empty, from an Authorization bearer header.
func ExtractToken(r *http.Request) string {
	if c, err := r.Cookie(TokenCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return bearerToken(r.Header.Get("Authorization"))
}

// bearerToken returns the token of a "Bearer <token>" header, or "" for any other value.
func bearerToken(authHeader string) string {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireUser creates an HTTP middleware that authenticates the request and
// attaches the user to its context.
func RequireUser(a *Authenticator, onError ErrorWriter) func(http.Handler) http.Handler {
	onError = orPlainError(onError)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := a.Authenticate(r.Context(), r)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireProjectRole creates an HTTP middleware that admits members of the
// {projectId} path segment whose role is in allowed. Must be used after RequireUser.
func RequireProjectRole(z *Authorizer, onError ErrorWriter, allowed ...string) func(http.Handler) http.Handler {
	onError = orPlainError(onError)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				onError(w, r, Unauthorized(msgUnauthorized))
				return
			}

			role, err := z.Authorize(r.Context(), user.ID, r.PathValue("projectId"), allowed)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithProjectRole(r.Context(), role)))
		})
	}
}

func orPlainError(onError ErrorWriter) ErrorWriter {
	if onError != nil {
		return onError
	}
	return func(w http.ResponseWriter, r *http.Request, err error) {
		msg, _ := Describe(err)
		http.Error(w, msg, StatusCode(err))
	}
}
