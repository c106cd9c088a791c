package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionUser is the principal reference carried in a session token.
type SessionUser struct {
	ID string `json:"id"`
}

// SessionClaims is the signed session payload: the user reference plus an
// absolute expiry mirrored into both the registered exp claim and a
// human-readable expires field.
type SessionClaims struct {
	jwt.RegisteredClaims
	User    SessionUser `json:"user"`
	Expires string      `json:"expires"`
}

// UserID returns the principal identifier bound to the token.
func (c *SessionClaims) UserID() string {
	if c.User.ID != "" {
		return c.User.ID
	}
	return c.RegisteredClaims.Subject
}

// ExpiresAt returns the absolute expiry instant, zero when unset.
func (c *SessionClaims) ExpiresAt() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	if c.Expires == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, c.Expires)
	if err != nil {
		return time.Time{}
	}
	return t
}

func newSessionClaims(userID string, issuer string, audience []string, now time.Time, ttl time.Duration) *SessionClaims {
	expiry := now.Add(ttl)

	var aud jwt.ClaimStrings
	if len(audience) > 0 {
		aud = make(jwt.ClaimStrings, len(audience))
		copy(aud, audience)
	}

	return &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
		User:    SessionUser{ID: userID},
		Expires: expiry.UTC().Format(time.RFC3339),
	}
}
