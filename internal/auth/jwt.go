// Package auth issues and validates access tokens, hashes passwords, and
// carries the authenticated subject through request contexts.
//
// TOKEN FLOW:
//  1. A client logs in (password, master passphrase, or GitHub) and receives
//     a signed JWT whose "sub" claim is the user's email.
//  2. The client sends it back as "Authorization: Bearer <jwt>" (or in the
//     "token" cookie set by the GitHub callback).
//  3. Middleware validates the token and stores the subject in the context.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"someone@college.edu","exp":1234567890,"iss":"resource-hub"}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// Validation needs only the secret, no Datastore lookup.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/resource-hub/internal/apperror"
)

const (
	// DefaultTokenTTL applies whenever a caller passes no lifetime. It is 30
	// minutes rather than the common 15 so a long upload finishes inside one
	// session.
	DefaultTokenTTL = 30 * time.Minute

	issuer = "resource-hub"
)

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret used to sign and verify tokens, and the lifetime
// given to tokens issued through Generate.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret.
// ttl <= 0 selects DefaultTokenTTL.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock replaces the time source used for issuing and validating.
// Tests use it to step past expiry without sleeping.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// TTL is the lifetime Generate gives to new tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims is the JWT payload. "sub" carries the user's email.
type claims struct {
	jwt.RegisteredClaims
}

// Generate issues a token for subject with the service's configured lifetime.
func (s *TokenService) Generate(subject string) (string, error) {
	return s.Issue(subject, s.ttl)
}

// Issue creates and signs a token carrying subject and an absolute expiry of
// now+ttl. A ttl of zero (or less) means DefaultTokenTTL.
//
// Signing algorithm: HS256 (HMAC-SHA256), symmetric, one server holds the key.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("auth: token subject must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := s.now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns its subject.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid
//   - Token is not expired (strictly: now must not be after exp)
//   - Issuer is "resource-hub"
//   - Algorithm is HS256 (blocks the "alg: none" confusion attack)
//
// Failures come back as apperror.ErrExpiredToken or apperror.ErrInvalidToken.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", apperror.InvalidToken("token is empty")
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperror.ExpiredToken()
		}
		return "", apperror.InvalidToken(fmt.Sprintf("invalid token: %v", err))
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", apperror.InvalidToken("invalid token claims")
	}

	if c.Subject == "" {
		return "", apperror.InvalidToken("token has no subject")
	}

	return c.Subject, nil
}
