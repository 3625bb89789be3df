package services

import (
	"context"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/carelog-g8/carelog/internal/core/domain"
	"github.com/carelog-g8/carelog/internal/core/ports"
)

const sessionTTL = 24 * time.Hour

var ErrTokenRevoked = errors.New("token revoked")

// SessionClaims are carried by every CareLog session token.
type SessionClaims struct {
	Role     domain.Role `json:"role"`
	Hospital string      `json:"hospital"`
	jwt.RegisteredClaims
}

func (c *SessionClaims) Caller() domain.Caller {
	return domain.Caller{Username: c.Subject, Role: c.Role, Hospital: c.Hospital}
}

// SessionService issues RS256 session tokens after a successful login and
// revokes them on logout.
type SessionService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	revoker    ports.TokenRevoker
	now        func() time.Time
}

func NewSessionService(privateKey *rsa.PrivateKey, revoker ports.TokenRevoker) *SessionService {
	return &SessionService{
		privateKey: privateKey,
		publicKey:  &privateKey.PublicKey,
		revoker:    revoker,
		now:        time.Now,
	}
}

func (s *SessionService) IssueToken(user domain.User, hospitalID string) (string, error) {
	now := s.now()
	claims := SessionClaims{
		Role:     user.Role,
		Hospital: hospitalID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.privateKey)
}

// Verify parses tokenString and rejects it when it was revoked.
func (s *SessionService) Verify(ctx context.Context, tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" || !claims.Role.Valid() {
		return nil, jwt.ErrTokenInvalidClaims
	}

	if s.revoker != nil && claims.ID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *SessionService) Logout(ctx context.Context, claims *SessionClaims) error {
	if s.revoker == nil || claims.ID == "" {
		return nil
	}
	ttl := sessionTTL
	if claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Sub(s.now())
	}
	if ttl <= 0 {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, ttl)
}
