package service

import (
	"time"

	"github.com/yakshxo/snapstudy/internal/snapstudy/domain"
	"github.com/yakshxo/snapstudy/pkg/jwtx"
)

// TokenService mints signed session tokens for verified accounts.
type TokenService struct {
	Signer     jwtx.Signer
	Issuer     string
	SessionTTL time.Duration
}

func (s *TokenService) ttl() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return jwtx.DefaultSessionTTL
}

// IssueSession signs a session token bound to the account id.
func (s *TokenService) IssueSession(a domain.Account) (string, error) {
	claims := jwtx.NewSessionClaims(
		a.ID, a.Email, a.DisplayName,
		s.Issuer, s.ttl(), time.Now(),
	)
	return s.Signer.Sign(claims)
}
