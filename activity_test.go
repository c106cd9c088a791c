package identity_test

import (
	"testing"

	identity "github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityTypeValid(t *testing.T) {
	known := []identity.ActivityType{
		identity.ActivitySignUp,
		identity.ActivitySignIn,
		identity.ActivitySignOut,
		identity.ActivityUpdatePassword,
		identity.ActivityDeleteAccount,
		identity.ActivityUpdateAccount,
		identity.ActivityCreateTeam,
		identity.ActivityRemoveTeamMember,
		identity.ActivityInviteTeamMember,
		identity.ActivityAcceptInvitation,
	}

	for _, action := range known {
		assert.True(t, action.Valid(), "expected %s to be valid", action)
	}

	assert.False(t, identity.ActivityType("MADE_UP").Valid())
	assert.False(t, identity.ActivityType("").Valid())
}

func TestNewActivityLog(t *testing.T) {
	teamID := uuid.New()
	userID := uuid.New()

	t.Run("builds a record", func(t *testing.T) {
		record, err := identity.NewActivityLog(teamID, userID, identity.ActivitySignIn, "10.0.0.1")
		require.NoError(t, err)

		assert.Equal(t, teamID, record.TeamID)
		require.NotNil(t, record.UserID)
		assert.Equal(t, userID, *record.UserID)
		assert.Equal(t, identity.ActivitySignIn, record.Action)
		assert.Equal(t, "10.0.0.1", record.IPAddress)
		assert.NotNil(t, record.OccurredAt)
	})

	t.Run("nil user means system attribution", func(t *testing.T) {
		record, err := identity.NewActivityLog(teamID, uuid.Nil, identity.ActivitySignOut, "")
		require.NoError(t, err)
		assert.Nil(t, record.UserID)
	})

	t.Run("rejects unknown kinds", func(t *testing.T) {
		_, err := identity.NewActivityLog(teamID, userID, identity.ActivityType("NOPE"), "")
		require.Error(t, err)
	})

	t.Run("rejects missing team", func(t *testing.T) {
		_, err := identity.NewActivityLog(uuid.Nil, userID, identity.ActivitySignIn, "")
		require.Error(t, err)
	})
}

func TestDefaultTeamName(t *testing.T) {
	assert.Equal(t, "ada@example.com's Team", identity.DefaultTeamName("ada@example.com"))
}
