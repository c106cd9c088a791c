package identity

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// IdentityControllerRoutes names the mount points for the identity surface.
type IdentityControllerRoutes struct {
	SignUp        string
	SignIn        string
	SignOut       string
	Account       string
	Password      string
	DeleteAccount string
	Activity      string
	Team          string
	RemoveMember  string
	InviteMember  string
	AfterSignIn   string
	AfterSignOut  string
}

// IdentityController exposes the workflows over fiber. Every mutating route
// goes through the action pipeline; reads resolve the principal directly.
type IdentityController struct {
	Debug    bool
	Logger   Logger
	Flows    *Workflows
	Sessions *SessionManager
	Checkout CheckoutStarter
	Routes   *IdentityControllerRoutes
}

type IdentityControllerOption func(*IdentityController) *IdentityController

func WithControllerLogger(logger Logger) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Logger = logger
		return c
	}
}

func WithCheckoutStarter(starter CheckoutStarter) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Checkout = starter
		return c
	}
}

func WithControllerDebug(debug bool) IdentityControllerOption {
	return func(c *IdentityController) *IdentityController {
		c.Debug = debug
		return c
	}
}

// NewIdentityController wires the controller. flows and sessions are
// required; checkout defaults to a no-op starter.
func NewIdentityController(flows *Workflows, sessions *SessionManager, opts ...IdentityControllerOption) *IdentityController {
	c := &IdentityController{
		Logger:   defLogger{},
		Flows:    flows,
		Sessions: sessions,
		Routes: &IdentityControllerRoutes{
			SignUp:        "/sign-up",
			SignIn:        "/sign-in",
			SignOut:       "/sign-out",
			Account:       "/account",
			Password:      "/account/password",
			DeleteAccount: "/account/delete",
			Activity:      "/account/activity",
			Team:          "/team",
			RemoveMember:  "/team/members/remove",
			InviteMember:  "/team/invitations",
			AfterSignIn:   "/dashboard",
			AfterSignOut:  "/sign-in",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Flows == nil {
		panic("Missing Workflows in identity controller...")
	}

	if c.Sessions == nil {
		panic("Missing SessionManager in identity controller...")
	}

	c.Checkout = normalizeCheckoutStarter(c.Checkout)

	return c
}

// RegisterRoutes mounts the identity surface on app.
func RegisterRoutes(app fiber.Router, controller *IdentityController) {
	app.Post(controller.Routes.SignUp, controller.handle(controller.SignUpPost()))
	app.Post(controller.Routes.SignIn, controller.handle(controller.SignInPost()))
	app.Post(controller.Routes.SignOut, controller.handle(controller.SignOutPost))

	app.Get(controller.Routes.Account, controller.AccountGet)
	app.Put(controller.Routes.Account, controller.handle(controller.AccountPut()))
	app.Post(controller.Routes.Password, controller.handle(controller.PasswordPost()))
	app.Post(controller.Routes.DeleteAccount, controller.handle(controller.DeletePost()))
	app.Get(controller.Routes.Activity, controller.ActivityGet)

	app.Get(controller.Routes.Team, controller.TeamGet)
	app.Post(controller.Routes.RemoveMember, controller.handle(controller.RemoveMemberPost()))
	app.Post(controller.Routes.InviteMember, controller.handle(controller.InviteMemberPost()))
}

// handle adapts an ActionHandler to fiber. An ActionState with an Error
// renders as 400; ErrAuthenticationRequired renders as 401; anything else
// on the error channel is a 500.
func (a *IdentityController) handle(h ActionHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state, err := h(c)
		if err != nil {
			if IsAuthenticationRequired(err) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Authentication required",
				})
			}
			a.Logger.Error("action failed: %s", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Something went wrong. Please try again.",
			})
		}

		if state == nil {
			state = &ActionState{}
		}

		if state.Error != "" {
			return c.Status(fiber.StatusBadRequest).JSON(state)
		}

		return c.JSON(state)
	}
}

// SignUpPayload mirrors the sign up form.
type SignUpPayload struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	InviteID string `form:"inviteId" json:"inviteId"`
}

// Validate will run validation rules
func (r SignUpPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(0, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.InviteID, is.UUIDv4),
	)
}

func (a *IdentityController) SignUpPost() ActionHandler {
	return Validated(func(c *fiber.Ctx, data SignUpPayload, form Form) *ActionState {
		if a.Debug {
			fmt.Println("======= SIGN UP ======")
			fmt.Println(print.MaybePrettyJSON(data))
			fmt.Println("======================")
		}

		result, err := a.Flows.SignUp(c.UserContext(), SignUpMessage{
			Name:      data.Name,
			Email:     data.Email,
			Password:  data.Password,
			InviteID:  data.InviteID,
			IPAddress: c.IP(),
		})
		if err != nil {
			return a.failure(err, "Registration failed. Please try again.")
		}

		if err := a.Sessions.Establish(c, result.User); err != nil {
			a.Logger.Error("sign up session: %s", err)
			return &ActionState{Error: "Registration failed. Please try again."}
		}

		return a.afterAuth(c, form, result.Team)
	})
}

// SignInPayload mirrors the sign in form.
type SignInPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r SignInPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *IdentityController) SignInPost() ActionHandler {
	return Validated(func(c *fiber.Ctx, data SignInPayload, form Form) *ActionState {
		result, err := a.Flows.SignIn(c.UserContext(), SignInMessage{
			Email:     data.Email,
			Password:  data.Password,
			IPAddress: c.IP(),
		})
		if err != nil {
			return a.failure(err, "Invalid email or password. Please try again.")
		}

		if err := a.Sessions.Establish(c, result.User); err != nil {
			a.Logger.Error("sign in session: %s", err)
			return &ActionState{Error: "Invalid email or password. Please try again."}
		}

		return a.afterAuth(c, form, result.Team)
	})
}

// afterAuth finishes an authenticated entry point: either hand the caller
// off to checkout or send them to the app.
func (a *IdentityController) afterAuth(c *fiber.Ctx, form Form, team *Team) *ActionState {
	if form.Get("redirect") == "checkout" {
		url, err := a.Checkout.StartCheckout(c.UserContext(), CheckoutRequest{
			Team:    team,
			PriceID: form.Get("priceId"),
		})
		if err != nil {
			a.Logger.Error("checkout handoff: %s", err)
			return &ActionState{Error: "Checkout is unavailable. Please try again."}
		}
		if url != "" {
			return &ActionState{Redirect: url}
		}
	}

	return &ActionState{Redirect: a.Routes.AfterSignIn}
}

func (a *IdentityController) SignOutPost(c *fiber.Ctx) (*ActionState, error) {
	user, err := a.Sessions.ResolveUser(c)
	if err != nil {
		return nil, err
	}

	if user != nil {
		if err := a.Flows.SignOut(c.UserContext(), SignOutMessage{
			UserID:    user.ID,
			IPAddress: c.IP(),
		}); err != nil {
			a.Logger.Warn("sign out audit: %s", err)
		}
	}

	a.Sessions.Clear(c)

	return &ActionState{Redirect: a.Routes.AfterSignOut}, nil
}

// UpdatePasswordPayload mirrors the password change form.
type UpdatePasswordPayload struct {
	CurrentPassword string `form:"currentPassword" json:"currentPassword"`
	NewPassword     string `form:"newPassword" json:"newPassword"`
	ConfirmPassword string `form:"confirmPassword" json:"confirmPassword"`
}

// Validate will run validation rules
func (r UpdatePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(8, 100),
			validation.By(ValidateStringEquals(r.NewPassword)),
		),
	)
}

func (a *IdentityController) PasswordPost() ActionHandler {
	return ValidatedWithUser(a.Sessions, func(c *fiber.Ctx, data UpdatePasswordPayload, form Form, user *User) *ActionState {
		err := a.Flows.UpdatePassword(c.UserContext(), UpdatePasswordMessage{
			UserID:          user.ID,
			CurrentPassword: data.CurrentPassword,
			NewPassword:     data.NewPassword,
			IPAddress:       c.IP(),
		})
		if err != nil {
			return a.failure(err, "Failed to update password.")
		}

		return &ActionState{Success: "Password updated successfully."}
	})
}

// DeleteAccountPayload mirrors the account deletion form.
type DeleteAccountPayload struct {
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r DeleteAccountPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

func (a *IdentityController) DeletePost() ActionHandler {
	return ValidatedWithUser(a.Sessions, func(c *fiber.Ctx, data DeleteAccountPayload, form Form, user *User) *ActionState {
		err := a.Flows.DeleteAccount(c.UserContext(), DeleteAccountMessage{
			UserID:    user.ID,
			Password:  data.Password,
			IPAddress: c.IP(),
		})
		if err != nil {
			return a.failure(err, "Account deletion failed.")
		}

		a.Sessions.Clear(c)

		return &ActionState{Redirect: a.Routes.SignUp}
	})
}

// UpdateAccountPayload mirrors the account settings form.
type UpdateAccountPayload struct {
	Name  string `form:"name" json:"name"`
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r UpdateAccountPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 255), is.Email),
	)
}

func (a *IdentityController) AccountPut() ActionHandler {
	return ValidatedWithUser(a.Sessions, func(c *fiber.Ctx, data UpdateAccountPayload, form Form, user *User) *ActionState {
		_, err := a.Flows.UpdateAccount(c.UserContext(), UpdateAccountMessage{
			UserID:    user.ID,
			Name:      data.Name,
			Email:     data.Email,
			IPAddress: c.IP(),
		})
		if err != nil {
			return a.failure(err, "Failed to update account.")
		}

		return &ActionState{Success: "Account updated successfully."}
	})
}

// RemoveMemberPayload mirrors the member removal form.
type RemoveMemberPayload struct {
	MemberID string `form:"memberId" json:"memberId"`
}

// Validate will run validation rules
func (r RemoveMemberPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MemberID, validation.Required, is.UUIDv4),
	)
}

func (a *IdentityController) RemoveMemberPost() ActionHandler {
	return ValidatedWithUser(a.Sessions, func(c *fiber.Ctx, data RemoveMemberPayload, form Form, user *User) *ActionState {
		memberID, err := uuid.Parse(data.MemberID)
		if err != nil {
			return &ActionState{Error: "Member not found"}
		}

		if err := a.Flows.RemoveTeamMember(c.UserContext(), RemoveTeamMemberMessage{
			UserID:    user.ID,
			MemberID:  memberID,
			IPAddress: c.IP(),
		}); err != nil {
			return a.failure(err, "Failed to remove team member.")
		}

		return &ActionState{Success: "Team member removed successfully"}
	})
}

// InviteMemberPayload mirrors the invitation form.
type InviteMemberPayload struct {
	Email string `form:"email" json:"email"`
	Role  string `form:"role" json:"role"`
}

// Validate will run validation rules
func (r InviteMemberPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Role, validation.Required, validation.In(RoleMember, RoleOwner)),
	)
}

func (a *IdentityController) InviteMemberPost() ActionHandler {
	return ValidatedWithUser(a.Sessions, func(c *fiber.Ctx, data InviteMemberPayload, form Form, user *User) *ActionState {
		if _, err := a.Flows.CreateInvitation(c.UserContext(), CreateInvitationMessage{
			UserID:    user.ID,
			Email:     data.Email,
			Role:      data.Role,
			IPAddress: c.IP(),
		}); err != nil {
			return a.failure(err, "Failed to invite team member.")
		}

		return &ActionState{Success: "Invitation sent successfully"}
	})
}

func (a *IdentityController) AccountGet(c *fiber.Ctx) error {
	user, err := a.requireUser(c)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	out, err := a.Flows.GetUserWithTeam(c.UserContext(), user.ID)
	if err != nil {
		a.Logger.Error("account get: %s", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Something went wrong. Please try again.",
		})
	}

	return c.JSON(out)
}

func (a *IdentityController) TeamGet(c *fiber.Ctx) error {
	user, err := a.requireUser(c)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	out, err := a.Flows.GetTeamWithMembers(c.UserContext(), user.ID)
	if err != nil {
		if goerrors.Is(err, ErrIdentityNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Team not found",
			})
		}
		a.Logger.Error("team get: %s", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Something went wrong. Please try again.",
		})
	}

	return c.JSON(out)
}

func (a *IdentityController) ActivityGet(c *fiber.Ctx) error {
	user, err := a.requireUser(c)
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	logs, err := a.Flows.RecentActivity(c.UserContext(), user.ID, c.QueryInt("limit", 10))
	if err != nil {
		a.Logger.Error("activity get: %s", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Something went wrong. Please try again.",
		})
	}

	return c.JSON(fiber.Map{"activity": logs})
}

// requireUser resolves the session principal for read routes. When nil is
// returned with a nil error the 401 response has already been written.
func (a *IdentityController) requireUser(c *fiber.Ctx) (*User, error) {
	user, err := a.Sessions.ResolveUser(c)
	if err != nil {
		a.Logger.Error("resolve user: %s", err)
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Something went wrong. Please try again.",
		})
	}
	if user == nil {
		return nil, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
		})
	}
	return user, nil
}

// failure maps a workflow error to an ActionState message, falling back to
// a generic message for anything not safe to show.
func (a *IdentityController) failure(err error, fallback string) *ActionState {
	if IsWorkflowFailure(err) {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Message != "" {
			return &ActionState{Error: richErr.Message}
		}
		return &ActionState{Error: err.Error()}
	}

	a.Logger.Error("workflow failed: %s", err)
	return &ActionState{Error: fallback}
}
