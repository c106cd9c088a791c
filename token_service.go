package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService signs and verifies session tokens. The signing key is
// process-wide secret material captured once at construction; it is never
// embedded in tokens and never re-read per call.
//
// There is no revocation list: a leaked token stays valid until its expiry,
// and rotating the signing key invalidates every outstanding session at
// once. That trade-off is deliberate; see the package documentation.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

// TokenServiceOption customizes a TokenService.
type TokenServiceOption func(*TokenService)

// WithTokenLogger overrides the service logger.
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithTokenClock overrides the time source, mostly for tests.
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenService) {
		if now != nil {
			ts.now = now
		}
	}
}

// NewTokenService creates a TokenService from config. Token lifetime comes
// from Config.GetTokenExpiration (hours, default 24).
func NewTokenService(cfg Config, opts ...TokenServiceOption) *TokenService {
	ts := &TokenService{
		signingKey: []byte(cfg.GetSigningKey()),
		ttl:        time.Duration(cfg.GetTokenExpiration()) * time.Hour,
		issuer:     cfg.GetIssuer(),
		audience:   cfg.GetAudience(),
		logger:     defLogger{},
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

// TTL returns the configured token lifetime.
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Generate signs a session token for userID, returning the token and its
// absolute expiry so carriers can align cookie lifetimes with it.
func (ts *TokenService) Generate(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, ErrNoEmptyString
	}

	now := ts.now()
	claims := newSessionClaims(userID, ts.issuer, ts.audience, now, ts.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		ts.logger.Error("token service failed to sign session token", "error", err)
		return "", time.Time{}, err
	}

	return signed, claims.ExpiresAt(), nil
}

// Validate parses and verifies a session token, returning the bound user id.
// Expired, malformed, and forged tokens all fail with ErrTokenInvalid; the
// distinction is logged but never exposed to callers.
func (ts *TokenService) Validate(raw string) (string, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(ts.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		ts.logger.Debug("token service rejected session token", "error", err)
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.UserID() == "" {
		ts.logger.Debug("token service could not decode session claims")
		return "", ErrTokenInvalid
	}

	return claims.UserID(), nil
}
