// Package auth issues and checks the tokens that identify a NeuroTune user.
//
// Two kinds of HS256 JWT are signed with the same secret:
//
//   - session tokens, sent back in the "token" HttpOnly cookie (or as a
//     Bearer header) on every API call;
//   - OAuth state tokens, embedded in the Spotify authorization URL so the
//     public callback can tell which user started the flow.
//
// The two are told apart by audience, so a state token can never be replayed
// as a session and vice versa.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer = "neurotune"

	audienceSession = "neurotune-session"
	audienceState   = "neurotune-spotify-state"

	// StateTTL bounds how long a user may sit on the Spotify consent screen.
	StateTTL = 10 * time.Minute
)

// ErrTokenExpired is returned by Validate for a well-formed but expired token.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService whose session tokens live for ttl.
// The secret should be at least 32 bytes of random data in production.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: session lifetime must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is the session token lifetime, used for the cookie Max-Age.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate creates and signs a session token for userID.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.sign(userID, audienceSession, s.ttl)
}

// GenerateWithDuration signs a session token with a custom lifetime.
// Negative durations produce already-expired tokens, which tests rely on.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	return s.sign(userID, audienceSession, d)
}

// Validate verifies a session token and returns the user ID in its subject.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	return s.parse(tokenStr, audienceSession)
}

// GenerateState signs the OAuth state parameter for userID.
func (s *TokenService) GenerateState(userID string) (string, error) {
	return s.sign(userID, audienceState, StateTTL)
}

// ValidateState verifies an OAuth state parameter and returns the user ID.
func (s *TokenService) ValidateState(state string) (string, error) {
	return s.parse(state, audienceState)
}

func (s *TokenService) sign(userID, audience string, d time.Duration) (string, error) {
	now := s.now()

	c := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// parse rejects anything that isn't HS256, issued by us, for the given
// audience, and unexpired. Pinning the method blocks "alg: none" tokens.
func (s *TokenService) parse(tokenStr, audience string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", errors.New("auth: token has no subject")
	}
	return c.Subject, nil
}
