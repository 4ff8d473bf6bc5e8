// Package session issues and validates the signed tokens that bind a
// dashboard client to its alert lifecycle session.
//
// A session token is an HS256 JWT whose subject is the session id. Tokens
// are not refreshed: when one expires the client starts a new session, which
// begins in the Idle state with no alerts.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultTTL is how long a session token is valid.
const DefaultTTL = 12 * time.Hour

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrTokenExpired = errors.New("session token has expired")
	ErrMissingKey   = errors.New("session signing key is required")
)

// Claims are the claims carried in a session token.
type Claims struct {
	jwt.RegisteredClaims

	// SessionID is the lifecycle session this token is bound to.
	SessionID string `json:"sid"`
}

// TokenConfig holds configuration for the token service.
type TokenConfig struct {
	// SigningKey is the HMAC secret (required).
	SigningKey string

	// Issuer and Audience are checked on every validation.
	Issuer   string
	Audience string

	// TTL is the token lifetime (default: DefaultTTL).
	TTL time.Duration

	// Clock is the time source (default: real clock).
	Clock clockwork.Clock
}

// TokenService issues and validates session tokens.
type TokenService struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
	clock      clockwork.Clock
}

// NewTokenService creates a new token service.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.SigningKey == "" {
		return nil, ErrMissingKey
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &TokenService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		ttl:        ttl,
		clock:      clock,
	}, nil
}

// Issue signs a token for a session id.
func (s *TokenService) Issue(sessionID string) (string, time.Time, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   sessionID,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		SessionID: sessionID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses a token and returns its claims.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.SessionID == "" || claims.SessionID != claims.Subject {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
