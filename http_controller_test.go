package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type controllerFixture struct {
	app      *fiber.App
	flows    *identity.Workflows
	repo     identity.RepositoryManager
	checkout identity.CheckoutStarterFunc
}

func setupController(t *testing.T) *controllerFixture {
	t.Helper()

	repo, _ := setupRepoManager(t)
	flows := identity.NewWorkflows(repo)

	cfg := identity.SimpleConfig{
		SigningKey:      "controller-test-key",
		TokenExpiration: 24,
	}

	tokens := identity.NewTokenService(cfg)
	sessions := identity.NewSessionManager(cfg, tokens, repo.Users(), nil)

	fx := &controllerFixture{flows: flows, repo: repo}

	controller := identity.NewIdentityController(flows, sessions,
		identity.WithCheckoutStarter(identity.CheckoutStarterFunc(func(ctx context.Context, req identity.CheckoutRequest) (string, error) {
			if fx.checkout != nil {
				return fx.checkout(ctx, req)
			}
			return "", nil
		})),
	)

	app := fiber.New()
	identity.RegisterRoutes(app, controller)
	fx.app = app

	return fx
}

func postJSON(t *testing.T, app *fiber.App, path, body string, cookies ...*http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	// routes that hash credentials outlive fiber's default test timeout
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func stateFrom(t *testing.T, resp *http.Response) identity.ActionState {
	t.Helper()
	var state identity.ActionState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	return state
}

func signUpSession(t *testing.T, fx *controllerFixture, email string) *http.Cookie {
	t.Helper()
	resp := postJSON(t, fx.app, "/sign-up", `{"email":"`+email+`","password":"secretPassword1!"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cookie := sessionCookie(t, resp)
	require.NotNil(t, cookie)
	return cookie
}

func TestSignUpRouteEstablishesSession(t *testing.T) {
	fx := setupController(t)

	resp := postJSON(t, fx.app, "/sign-up", `{"email":"ada@example.com","password":"secretPassword1!"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	state := stateFrom(t, resp)
	assert.Equal(t, "/dashboard", state.Redirect)
	assert.Empty(t, state.Error)

	cookie := sessionCookie(t, resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
}

func TestSignUpRouteValidatesPayload(t *testing.T) {
	fx := setupController(t)

	resp := postJSON(t, fx.app, "/sign-up", `{"email":"not-an-email","password":"secretPassword1!"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	state := stateFrom(t, resp)
	assert.NotEmpty(t, state.Error)
	assert.Nil(t, sessionCookie(t, resp))
}

func TestSignUpRouteChecksPasswordLength(t *testing.T) {
	fx := setupController(t)

	resp := postJSON(t, fx.app, "/sign-up", `{"email":"ada@example.com","password":"short"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSignInRouteWrongPassword(t *testing.T) {
	fx := setupController(t)
	signUpSession(t, fx, "ada@example.com")

	resp := postJSON(t, fx.app, "/sign-in", `{"email":"ada@example.com","password":"wrongPassword1!"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	state := stateFrom(t, resp)
	assert.Contains(t, state.Error, "Invalid email or password")
}

func TestSignInRouteCheckoutHandoff(t *testing.T) {
	fx := setupController(t)
	signUpSession(t, fx, "ada@example.com")

	var gotPrice string
	fx.checkout = func(ctx context.Context, req identity.CheckoutRequest) (string, error) {
		gotPrice = req.PriceID
		return "https://pay.example.com/session/abc", nil
	}

	resp := postJSON(t, fx.app, "/sign-in",
		`{"email":"ada@example.com","password":"secretPassword1!","redirect":"checkout","priceId":"price_123"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	state := stateFrom(t, resp)
	assert.Equal(t, "https://pay.example.com/session/abc", state.Redirect)
	assert.Equal(t, "price_123", gotPrice)
}

func TestPasswordRouteRequiresSession(t *testing.T) {
	fx := setupController(t)

	resp := postJSON(t, fx.app, "/account/password",
		`{"currentPassword":"secretPassword1!","newPassword":"rotatedPassword2!","confirmPassword":"rotatedPassword2!"}`)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestPasswordRouteRotatesCredential(t *testing.T) {
	fx := setupController(t)
	cookie := signUpSession(t, fx, "ada@example.com")

	resp := postJSON(t, fx.app, "/account/password",
		`{"currentPassword":"secretPassword1!","newPassword":"rotatedPassword2!","confirmPassword":"rotatedPassword2!"}`,
		cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	state := stateFrom(t, resp)
	assert.Equal(t, "Password updated successfully.", state.Success)

	// old password no longer signs in
	fail := postJSON(t, fx.app, "/sign-in", `{"email":"ada@example.com","password":"secretPassword1!"}`)
	assert.Equal(t, fiber.StatusBadRequest, fail.StatusCode)

	ok := postJSON(t, fx.app, "/sign-in", `{"email":"ada@example.com","password":"rotatedPassword2!"}`)
	assert.Equal(t, fiber.StatusOK, ok.StatusCode)
}

func TestPasswordRouteConfirmMismatch(t *testing.T) {
	fx := setupController(t)
	cookie := signUpSession(t, fx, "ada@example.com")

	resp := postJSON(t, fx.app, "/account/password",
		`{"currentPassword":"secretPassword1!","newPassword":"rotatedPassword2!","confirmPassword":"somethingElse3!"}`,
		cookie)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDeleteRouteClearsSession(t *testing.T) {
	fx := setupController(t)
	cookie := signUpSession(t, fx, "ada@example.com")

	resp := postJSON(t, fx.app, "/account/delete", `{"password":"secretPassword1!"}`, cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	state := stateFrom(t, resp)
	assert.Equal(t, "/sign-up", state.Redirect)

	cleared := sessionCookie(t, resp)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	// the old cookie no longer resolves
	req := httptest.NewRequest(fiber.MethodGet, "/account", nil)
	req.AddCookie(cookie)
	me, err := fx.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, me.StatusCode)
}

func TestAccountGetReturnsUserWithTeam(t *testing.T) {
	fx := setupController(t)
	cookie := signUpSession(t, fx, "ada@example.com")

	req := httptest.NewRequest(fiber.MethodGet, "/account", nil)
	req.AddCookie(cookie)

	resp, err := fx.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out identity.UserWithTeam
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotNil(t, out.User)
	require.NotNil(t, out.Team)
	assert.Equal(t, "ada@example.com", out.User.Email)
	assert.Equal(t, "ada@example.com's Team", out.Team.Name)
}

func TestInviteAndRemoveMemberRoutes(t *testing.T) {
	fx := setupController(t)
	ownerCookie := signUpSession(t, fx, "owner@example.com")

	resp := postJSON(t, fx.app, "/team/invitations",
		`{"email":"member@example.com","role":"member"}`, ownerCookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	state := stateFrom(t, resp)
	assert.Equal(t, "Invitation sent successfully", state.Success)

	dup := postJSON(t, fx.app, "/team/invitations",
		`{"email":"member@example.com","role":"member"}`, ownerCookie)
	assert.Equal(t, fiber.StatusBadRequest, dup.StatusCode)
}

func TestSignOutRoute(t *testing.T) {
	fx := setupController(t)
	cookie := signUpSession(t, fx, "ada@example.com")

	resp := postJSON(t, fx.app, "/sign-out", "", cookie)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	state := stateFrom(t, resp)
	assert.Equal(t, "/sign-in", state.Redirect)

	cleared := sessionCookie(t, resp)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}
