package identity

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// SessionStore is the lookup the session carrier needs to turn a verified
// token into a live user. Soft-deleted users must not be returned.
type SessionStore interface {
	Lookup(ctx context.Context, id uuid.UUID) (*User, error)
}

// SessionManager persists the session token in a cookie and resolves the
// current user from it. The cookie is httpOnly, secure, and same-site
// restricted; its expiry tracks the token's.
type SessionManager struct {
	tokens     *TokenService
	store      SessionStore
	cookieName string
	logger     Logger
}

// NewSessionManager wires the carrier. cfg supplies the cookie name.
func NewSessionManager(cfg Config, tokens *TokenService, store SessionStore, logger Logger) *SessionManager {
	if logger == nil {
		logger = defLogger{}
	}
	return &SessionManager{
		tokens:     tokens,
		store:      store,
		cookieName: cfg.GetSessionCookieName(),
		logger:     logger,
	}
}

// Establish issues a token for user and stores it in the transport slot.
func (s *SessionManager) Establish(c *fiber.Ctx, user *User) error {
	if user == nil || user.ID == uuid.Nil {
		return errors.New("cannot establish a session without a user", errors.CategoryInternal)
	}

	token, expires, err := s.tokens.Generate(user.ID.String())
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to issue session token")
	}

	s.setCookieToken(c, token, expires)
	return nil
}

// Current reads the raw token from the transport slot. A missing cookie is
// not an error; it reports false.
func (s *SessionManager) Current(c *fiber.Ctx) (string, bool) {
	token := c.Cookies(s.cookieName)
	if token == "" {
		return "", false
	}
	return token, true
}

// Clear removes the transport slot. Clearing an absent session is a no-op.
func (s *SessionManager) Clear(c *fiber.Ctx) {
	s.cookieDel(c, s.cookieName)
}

// ResolveUser composes Current, token verification, and a store lookup.
// It returns (nil, nil) when there is no usable session: absent cookie,
// invalid or expired token, unknown or soft-deleted user. Only store
// round-trip failures surface as errors.
func (s *SessionManager) ResolveUser(c *fiber.Ctx) (*User, error) {
	raw, ok := s.Current(c)
	if !ok {
		return nil, nil
	}

	userID, err := s.tokens.Validate(raw)
	if err != nil {
		// collapsed token failure; the session is simply not there
		return nil, nil
	}

	id, err := uuid.Parse(userID)
	if err != nil {
		s.logger.Debug("session token carried a non-uuid subject", "subject", userID)
		return nil, nil
	}

	user, err := s.store.Lookup(c.UserContext(), id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve session user")
	}

	if user == nil || user.DeletedAt != nil {
		return nil, nil
	}

	return user, nil
}

func (s *SessionManager) setCookieToken(c *fiber.Ctx, val string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cookieName,
		Value:    val,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (s *SessionManager) cookieDel(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
