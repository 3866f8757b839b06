package context

import (
	"context"
	"net/http"

	"github.com/cradoe/puddle/internal/auth"
	"github.com/cradoe/puddle/internal/models"
)

type contextKey string

const (
	authenticatedUserContextKey = contextKey("authenticatedUser")
	identityContextKey          = contextKey("identity")
)

// ContextSetIdentity stores the verified token identity. The user row may
// not exist yet; GET /auth/user creates it.
func ContextSetIdentity(r *http.Request, identity *auth.Identity) *http.Request {
	ctx := context.WithValue(r.Context(), identityContextKey, identity)
	return r.WithContext(ctx)
}

func ContextGetIdentity(r *http.Request) *auth.Identity {
	identity, ok := r.Context().Value(identityContextKey).(*auth.Identity)
	if !ok {
		return nil
	}

	return identity
}

func ContextSetAuthenticatedUser(r *http.Request, user *models.User) *http.Request {
	ctx := context.WithValue(r.Context(), authenticatedUserContextKey, user)
	return r.WithContext(ctx)
}

func ContextGetAuthenticatedUser(r *http.Request) *models.User {
	user, ok := r.Context().Value(authenticatedUserContextKey).(*models.User)
	if !ok {
		return nil
	}

	return user
}
