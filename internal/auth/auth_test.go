package auth

import (
	"context"
	"testing"
	"time"

	"github.com/pascaldekloe/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test_secret"
	testIssuer   = "http://localhost:4444"
	testAudience = "http://localhost:4444"
)

func TestResolveIssuedToken(t *testing.T) {
	res := NewJWTResolver(testSecret, testIssuer, testAudience)

	token, err := res.Issue(&Identity{
		Key:           "did:privy:alice",
		WalletAddress: "0xDE709F2102306220921060314715629080E2FB77",
		Email:         "alice@example.com",
	}, time.Hour)
	require.NoError(t, err)

	identity, err := res.Resolve(context.Background(), string(token))
	require.NoError(t, err)

	assert.Equal(t, "did:privy:alice", identity.Key)
	assert.Equal(t, "0xde709f2102306220921060314715629080e2fb77", identity.WalletAddress)
	assert.Equal(t, "alice@example.com", identity.Email)
}

func TestResolveAddressClaimFallback(t *testing.T) {
	var claims jwt.Claims
	claims.Subject = "did:privy:bob"
	claims.Issuer = testIssuer
	claims.Audiences = []string{testAudience}
	claims.Expires = jwt.NewNumericTime(time.Now().Add(time.Hour))
	claims.Set = map[string]any{"address": "0x52908400098527886E0F7030069857D2E4169EE7"}

	token, err := claims.HMACSign(jwt.HS256, []byte(testSecret))
	require.NoError(t, err)

	identity, err := NewJWTResolver(testSecret, testIssuer, testAudience).Resolve(context.Background(), string(token))
	require.NoError(t, err)
	assert.Equal(t, "0x52908400098527886e0f7030069857d2e4169ee7", identity.WalletAddress)
	assert.Empty(t, identity.Email)
}

func TestResolveRejects(t *testing.T) {
	res := NewJWTResolver(testSecret, testIssuer, testAudience)

	expired, err := res.Issue(&Identity{Key: "did:privy:alice"}, -time.Minute)
	require.NoError(t, err)

	otherIssuer, err := NewJWTResolver(testSecret, "http://evil", testAudience).Issue(&Identity{Key: "did:privy:alice"}, time.Hour)
	require.NoError(t, err)

	otherSecret, err := NewJWTResolver("another_secret", testIssuer, testAudience).Issue(&Identity{Key: "did:privy:alice"}, time.Hour)
	require.NoError(t, err)

	noSubject, err := res.Issue(&Identity{}, time.Hour)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":    "not-a-token",
		"expired":    string(expired),
		"issuer":     string(otherIssuer),
		"signature":  string(otherSecret),
		"no subject": string(noSubject),
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := res.Resolve(context.Background(), token)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
