package identity

import "fmt"

// Logger is the minimal logging surface this package needs. Pass your own
// implementation; components fall back to defLogger when given nil.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds identity options. Values are read once at construction time;
// the signing key in particular is captured into TokenService and never
// re-read per call.
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int // hours
	GetSessionCookieName() string
	GetIssuer() string
	GetAudience() []string
}

// SimpleConfig is a plain Config implementation for callers that load
// configuration themselves.
type SimpleConfig struct {
	SigningKey        string   `json:"signing_key"`
	TokenExpiration   int      `json:"token_expiration"`
	SessionCookieName string   `json:"session_cookie_name"`
	Issuer            string   `json:"issuer"`
	Audience          []string `json:"audience"`
}

func (c SimpleConfig) GetSigningKey() string { return c.SigningKey }

func (c SimpleConfig) GetTokenExpiration() int {
	if c.TokenExpiration <= 0 {
		return 24
	}
	return c.TokenExpiration
}

func (c SimpleConfig) GetSessionCookieName() string {
	if c.SessionCookieName == "" {
		return DefaultSessionCookieName
	}
	return c.SessionCookieName
}

func (c SimpleConfig) GetIssuer() string { return c.Issuer }

func (c SimpleConfig) GetAudience() []string { return c.Audience }

// DefaultSessionCookieName is the transport slot holding the session token.
const DefaultSessionCookieName = "session"

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
