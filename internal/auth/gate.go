// ABOUTME: Authentication and membership authorization gates
// ABOUTME: Pure (value, error) checks; http.go wraps them as middleware

package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/google/uuid"

	"github.com/2389/projectcamp/internal/store"
)

// UserLoader loads a user with secret fields cleared.
type UserLoader interface {
	GetUserProfile(ctx context.Context, id string) (*store.User, error)
}

// MemberLookup resolves a user's membership in a project.
type MemberLookup interface {
	GetMember(ctx context.Context, projectID, userID string) (*store.ProjectMember, error)
}

// Gate messages.
const (
	msgUnauthorized     = "Unauthorized request"
	msgInvalidToken     = "Invalid access token"
	msgMissingProjectID = "Project id is missing"
	msgInvalidProjectID = "Invalid project id"
	msgProjectNotFound  = "Project not found"
	msgNoPermission     = "You do not have permission to perform this action"
)

// Authenticator resolves the user behind a request's access token.
type Authenticator struct {
	codec *TokenCodec
	users UserLoader
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(codec *TokenCodec, users UserLoader) *Authenticator {
	return &Authenticator{codec: codec, users: users}
}

// Authenticate returns the user owning the request's token. The cookie token
// takes precedence over an Authorization bearer header. Every failure is
// Unauthorized.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) (*store.User, error) {
	token := ExtractToken(r)
	if token == "" {
		return nil, Unauthorized(msgUnauthorized)
	}

	claims, err := a.codec.Verify(token)
	if err != nil {
		return nil, Unauthorized(msgInvalidToken)
	}

	user, err := a.users.GetUserProfile(ctx, claims.UserID)
	if err != nil {
		e := Unauthorized(msgInvalidToken)
		if !errors.Is(err, store.ErrNotFound) {
			e.Err = err
		}
		return nil, e
	}
	return user, nil
}

// Authorizer checks a user's role inside a project.
type Authorizer struct {
	members MemberLookup
}

// NewAuthorizer creates an Authorizer.
func NewAuthorizer(members MemberLookup) *Authorizer {
	return &Authorizer{members: members}
}

// Authorize returns the user's role in projectID if it is one of allowed.
// The membership is read on every call.
func (z *Authorizer) Authorize(ctx context.Context, userID, projectID string, allowed []string) (string, error) {
	if projectID == "" {
		return "", BadRequest(msgMissingProjectID)
	}
	if _, err := uuid.Parse(projectID); err != nil {
		return "", BadRequest(msgInvalidProjectID)
	}

	member, err := z.members.GetMember(ctx, projectID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", Forbidden(msgProjectNotFound)
	}
	if err != nil {
		return "", Internal(err)
	}

	if !slices.Contains(allowed, member.Role) {
		return "", Forbidden(msgNoPermission)
	}
	return member.Role, nil
}
