package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the default lifetime for session tokens. Sessions are
// not a cache of account state - handlers re-resolve the account on every
// request - so a longer lifetime is acceptable here.
const DefaultSessionTTL = 7 * 24 * time.Hour

// Claims are session-token claims. The subject is the account id; everything
// else is informational and must not be used for authorization decisions.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the account at mint time.
	Email string `json:"email,omitempty"`

	// DisplayName of the account at mint time.
	DisplayName string `json:"display_name,omitempty"`
}

// NewSessionClaims builds minimally-correct session claims bound to an
// account id with an expiry.
func NewSessionClaims(
	accountID, email, displayName, issuer string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email:       email,
		DisplayName: displayName,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
