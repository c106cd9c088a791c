package identity_test

import (
	"context"
	"testing"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdatePasswordRotatesCredential(t *testing.T) {
	flows, repo, db := setupWorkflows(t)
	ctx := context.Background()

	result, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "ada@example.com",
		Password: "originalPassword1!",
	})
	require.NoError(t, err)

	require.NoError(t, flows.UpdatePassword(ctx, identity.UpdatePasswordMessage{
		UserID:          result.User.ID,
		CurrentPassword: "originalPassword1!",
		NewPassword:     "rotatedPassword2!",
	}))

	require.NoError(t, repo.Credentials().Verify(ctx, result.User.ID, "rotatedPassword2!"))
	require.Error(t, repo.Credentials().Verify(ctx, result.User.ID, "originalPassword1!"))

	assert.Equal(t, 1, countActivity(t, db, identity.ActivityUpdatePassword))
}

func TestUpdatePasswordWrongCurrentLeavesCredentialAlone(t *testing.T) {
	flows, repo, db := setupWorkflows(t)
	ctx := context.Background()

	result, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "ada@example.com",
		Password: "originalPassword1!",
	})
	require.NoError(t, err)

	err = flows.UpdatePassword(ctx, identity.UpdatePasswordMessage{
		UserID:          result.User.ID,
		CurrentPassword: "notTheCurrent1!",
		NewPassword:     "rotatedPassword2!",
	})
	require.Error(t, err)
	assertFailureMessage(t, err, "Current password is incorrect.")

	require.NoError(t, repo.Credentials().Verify(ctx, result.User.ID, "originalPassword1!"))
	assert.Equal(t, 0, countActivity(t, db, identity.ActivityUpdatePassword))
}

func TestDeleteAccountSoftDeletesAndReleasesEmail(t *testing.T) {
	flows, repo, db := setupWorkflows(t)
	ctx := context.Background()

	result, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "ada@example.com",
		Password: "secretPassword1!",
	})
	require.NoError(t, err)

	require.NoError(t, flows.DeleteAccount(ctx, identity.DeleteAccountMessage{
		UserID:   result.User.ID,
		Password: "secretPassword1!",
	}))

	_, err = repo.Users().Lookup(ctx, result.User.ID)
	require.Error(t, err)

	member, err := repo.Members().FirstForUser(ctx, result.User.ID)
	require.NoError(t, err)
	assert.Nil(t, member)

	assert.Equal(t, 1, countActivity(t, db, identity.ActivityDeleteAccount))

	// a fresh sign up can take the email again
	_, err = flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "ada@example.com",
		Password: "secondLifePassword1!",
	})
	require.NoError(t, err)
}

func TestDeleteAccountWrongPasswordMutatesNothing(t *testing.T) {
	flows, repo, db := setupWorkflows(t)
	ctx := context.Background()

	result, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "ada@example.com",
		Password: "secretPassword1!",
	})
	require.NoError(t, err)

	err = flows.DeleteAccount(ctx, identity.DeleteAccountMessage{
		UserID:   result.User.ID,
		Password: "wrongPassword1!",
	})
	require.Error(t, err)
	assertFailureMessage(t, err, "Incorrect password. Account deletion failed.")

	user, err := repo.Users().Lookup(ctx, result.User.ID)
	require.NoError(t, err)
	assert.Nil(t, user.DeletedAt)

	member, err := repo.Members().FirstForUser(ctx, result.User.ID)
	require.NoError(t, err)
	require.NotNil(t, member)

	assert.Equal(t, 0, countActivity(t, db, identity.ActivityDeleteAccount))
}

func TestUpdateAccountChangesProfile(t *testing.T) {
	flows, _, db := setupWorkflows(t)
	ctx := context.Background()

	result, err := flows.SignUp(ctx, identity.SignUpMessage{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "secretPassword1!",
	})
	require.NoError(t, err)

	updated, err := flows.UpdateAccount(ctx, identity.UpdateAccountMessage{
		UserID: result.User.ID,
		Name:   "Ada Lovelace",
		Email:  "lovelace@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)
	assert.Equal(t, "lovelace@example.com", updated.Email)

	assert.Equal(t, 1, countActivity(t, db, identity.ActivityUpdateAccount))
}

func TestUpdateAccountRejectsTakenEmail(t *testing.T) {
	flows, _, _ := setupWorkflows(t)
	ctx := context.Background()

	_, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "first@example.com",
		Password: "secretPassword1!",
	})
	require.NoError(t, err)

	second, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "second@example.com",
		Password: "secretPassword1!",
	})
	require.NoError(t, err)

	_, err = flows.UpdateAccount(ctx, identity.UpdateAccountMessage{
		UserID: second.User.ID,
		Name:   "Second",
		Email:  "first@example.com",
	})
	require.Error(t, err)
	assertFailureMessage(t, err, "That email is already in use.")
}
