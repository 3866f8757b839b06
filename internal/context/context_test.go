package context

import (
	"net/http/httptest"
	"testing"

	"github.com/cradoe/puddle/internal/auth"
	"github.com/cradoe/puddle/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestAuthenticatedUserRoundTrip(t *testing.T) {
	r := httptest.NewRequest("GET", "/piggy-banks", nil)
	assert.Nil(t, ContextGetAuthenticatedUser(r))

	user := &models.User{ID: "u1"}
	r = ContextSetAuthenticatedUser(r, user)
	assert.Same(t, user, ContextGetAuthenticatedUser(r))
}

func TestIdentityRoundTrip(t *testing.T) {
	r := httptest.NewRequest("GET", "/auth/user", nil)
	assert.Nil(t, ContextGetIdentity(r))

	identity := &auth.Identity{Key: "did:privy:abc"}
	r = ContextSetIdentity(r, identity)
	assert.Same(t, identity, ContextGetIdentity(r))
}
