package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pascaldekloe/jwt"
)

var ErrInvalidToken = errors.New("invalid authentication token")

// Identity is what a verified bearer token says about its holder.
type Identity struct {
	Key           string
	WalletAddress string
	Email         string
}

// Resolver turns a bearer token into an Identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}

// JWTResolver verifies HS256 tokens. The subject is the identity key; the
// wallet comes from the "wallet_address" claim (or "address"), the e-mail
// from "email".
type JWTResolver struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

func NewJWTResolver(secret, issuer, audience string) *JWTResolver {
	return &JWTResolver{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}
}

func (res *JWTResolver) Resolve(_ context.Context, token string) (*Identity, error) {
	claims, err := jwt.HMACCheck([]byte(token), res.secret)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if !claims.Valid(res.now()) {
		return nil, ErrInvalidToken
	}

	if claims.Issuer != res.issuer {
		return nil, ErrInvalidToken
	}

	if !claims.AcceptAudience(res.audience) {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	identity := &Identity{
		Key:           claims.Subject,
		WalletAddress: strings.ToLower(stringClaim(claims, "wallet_address", "address")),
		Email:         stringClaim(claims, "email"),
	}

	return identity, nil
}

// Issue signs a token for identity. Used by the seeder and tests; production
// tokens come from the external identity provider.
func (res *JWTResolver) Issue(identity *Identity, ttl time.Duration) ([]byte, error) {
	var claims jwt.Claims
	claims.Subject = identity.Key

	now := res.now()
	claims.Issued = jwt.NewNumericTime(now)
	claims.NotBefore = jwt.NewNumericTime(now)
	claims.Expires = jwt.NewNumericTime(now.Add(ttl))

	claims.Issuer = res.issuer
	claims.Audiences = []string{res.audience}

	claims.Set = map[string]any{}
	if identity.WalletAddress != "" {
		claims.Set["wallet_address"] = identity.WalletAddress
	}
	if identity.Email != "" {
		claims.Set["email"] = identity.Email
	}

	return claims.HMACSign(jwt.HS256, res.secret)
}

func stringClaim(claims *jwt.Claims, names ...string) string {
	for _, name := range names {
		if v, ok := claims.Set[name].(string); ok && v != "" {
			return v
		}
	}

	return ""
}
