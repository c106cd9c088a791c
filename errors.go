package identity

import (
	"github.com/goliatone/go-errors"
)

// ErrAuthenticationRequired is returned when an authenticated action runs
// without a resolvable session. It is the one failure that interrupts the
// action pipeline instead of coming back as data.
var ErrAuthenticationRequired = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode("AUTH_REQUIRED").
	WithCode(errors.CodeUnauthorized)

// ErrTokenInvalid covers expired, malformed, and forged session tokens.
// The three cases are deliberately indistinguishable to callers.
var ErrTokenInvalid = errors.New("not authenticated", errors.CategoryAuth).
	WithTextCode("AUTH_TOKEN_INVALID").
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the credential verification failure.
var ErrMismatchedHashAndPassword = errors.New("credentials do not match", errors.CategoryAuth).
	WithTextCode("AUTH_CREDENTIALS")

// ErrNoEmptyString rejects empty secrets before they reach bcrypt.
var ErrNoEmptyString = errors.New("value must not be empty", errors.CategoryValidation)

// ErrIdentityNotFound is the error we return for non found identities.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode("IDENTITY_NOT_FOUND")

// IsAuthenticationRequired reports whether err is the pipeline's
// authentication interrupt.
func IsAuthenticationRequired(err error) bool {
	return errors.Is(err, ErrAuthenticationRequired)
}

// IsTokenInvalid reports whether err is a collapsed token failure.
func IsTokenInvalid(err error) bool {
	return errors.Is(err, ErrTokenInvalid)
}

// IsWorkflowFailure reports whether err is a recoverable precondition or
// store failure surfaced by a workflow handler, i.e. safe to map to an
// ActionState error message.
func IsWorkflowFailure(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return false
	}
	switch rich.Category {
	case errors.CategoryAuth, errors.CategoryConflict, errors.CategoryOperation,
		errors.CategoryNotFound, errors.CategoryValidation:
		return true
	default:
		return false
	}
}
