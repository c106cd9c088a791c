package identity

import (
	"encoding/json"
	"sort"

	"github.com/gofiber/fiber/v2"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/mitchellh/mapstructure"
)

// Form is the untyped, string-keyed input an action validates against.
type Form map[string]any

// Get returns the string value for key, empty when absent or non-string.
func (f Form) Get(key string) string {
	if f == nil {
		return ""
	}
	if v, ok := f[key].(string); ok {
		return v
	}
	return ""
}

// ActionState is the discriminated action result: either Error is set, or
// the success fields are. Never both.
type ActionState struct {
	Error    string         `json:"error,omitempty"`
	Success  string         `json:"success,omitempty"`
	Redirect string         `json:"redirect,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Payload is a declared input shape; Validate reports the first rule
// violation via ozzo-validation.
type Payload interface {
	Validate() error
}

// ActionFunc is a business operation invoked with the parsed payload and
// the raw form it was parsed from.
type ActionFunc[T Payload] func(c *fiber.Ctx, data T, form Form) *ActionState

// UserActionFunc additionally receives the resolved session user.
type UserActionFunc[T Payload] func(c *fiber.Ctx, data T, form Form, user *User) *ActionState

// ActionHandler is a bound action. The error return is reserved for
// ErrAuthenticationRequired; every other failure is data in ActionState.
type ActionHandler func(c *fiber.Ctx) (*ActionState, error)

// PrincipalResolver resolves the calling user from the request transport.
// SessionManager implements it.
type PrincipalResolver interface {
	ResolveUser(c *fiber.Ctx) (*User, error)
}

// Validated wraps op with form binding and validation. On the first rule
// violation it short-circuits with the violation message and never invokes
// op.
func Validated[T Payload](op ActionFunc[T]) ActionHandler {
	return func(c *fiber.Ctx) (*ActionState, error) {
		form := FormFromRequest(c)

		var data T
		if err := bindForm(form, &data); err != nil {
			return &ActionState{Error: "Failed to parse form"}, nil
		}

		if err := data.Validate(); err != nil {
			return &ActionState{Error: firstViolation(err)}, nil
		}

		return op(c, data, form), nil
	}
}

// ValidatedWithUser is Validated gated on an authenticated session. The
// principal is resolved before any parsing happens; an absent session is a
// contract violation surfaced as ErrAuthenticationRequired rather than
// returned as data.
func ValidatedWithUser[T Payload](sessions PrincipalResolver, op UserActionFunc[T]) ActionHandler {
	return func(c *fiber.Ctx) (*ActionState, error) {
		user, err := sessions.ResolveUser(c)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "principal resolution failed")
		}
		if user == nil {
			return nil, ErrAuthenticationRequired
		}

		c.SetUserContext(WithUserContext(c.UserContext(), user))

		form := FormFromRequest(c)

		var data T
		if err := bindForm(form, &data); err != nil {
			return &ActionState{Error: "Failed to parse form"}, nil
		}

		if err := data.Validate(); err != nil {
			return &ActionState{Error: firstViolation(err)}, nil
		}

		return op(c, data, form, user), nil
	}
}

// FormFromRequest flattens the request input into a Form: JSON bodies are
// decoded as-is, otherwise post args and query args are collected with post
// args winning on conflict.
func FormFromRequest(c *fiber.Ctx) Form {
	form := Form{}

	if c.Is("json") {
		if err := json.Unmarshal(c.Body(), &form); err != nil {
			return Form{}
		}
		return form
	}

	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		form[string(k)] = string(v)
	})
	c.Request().PostArgs().VisitAll(func(k, v []byte) {
		form[string(k)] = string(v)
	})

	return form
}

func bindForm(form Form, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "form",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]any(form))
}

// firstViolation extracts a single, deterministic violation message from an
// ozzo-validation error: the lowest field name wins.
func firstViolation(err error) string {
	verrs, ok := err.(validation.Errors)
	if !ok {
		return err.Error()
	}

	fields := make([]string, 0, len(verrs))
	for field := range verrs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		if verr := verrs[field]; verr != nil {
			return field + ": " + verr.Error()
		}
	}

	return err.Error()
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match", errors.CategoryValidation)
		}
		return nil
	}
}
