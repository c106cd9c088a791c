package identity_test

import (
	"context"
	"sync"
	"testing"

	identity "github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateInvitationRejectsDuplicates(t *testing.T) {
	flows, _, db := setupWorkflows(t)
	ctx := context.Background()

	owner, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "owner@example.com",
		Password: "secretPassword1!",
	})
	require.NoError(t, err)

	_, err = flows.CreateInvitation(ctx, identity.CreateInvitationMessage{
		UserID: owner.User.ID,
		Email:  "friend@example.com",
		Role:   identity.RoleMember,
	})
	require.NoError(t, err)

	_, err = flows.CreateInvitation(ctx, identity.CreateInvitationMessage{
		UserID: owner.User.ID,
		Email:  "friend@example.com",
		Role:   identity.RoleMember,
	})
	require.Error(t, err)
	assertFailureMessage(t, err, "An invitation has already been sent to this email")

	assert.Equal(t, 1, countActivity(t, db, identity.ActivityInviteTeamMember))
}

func TestCreateInvitationRejectsExistingMember(t *testing.T) {
	flows, _, _ := setupWorkflows(t)
	ctx := context.Background()

	owner, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "owner@example.com",
		Password: "secretPassword1!",
	})
	require.NoError(t, err)

	invitation, err := flows.CreateInvitation(ctx, identity.CreateInvitationMessage{
		UserID: owner.User.ID,
		Email:  "member@example.com",
		Role:   identity.RoleMember,
	})
	require.NoError(t, err)

	_, err = flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "member@example.com",
		Password: "secretPassword1!",
		InviteID: invitation.ID.String(),
	})
	require.NoError(t, err)

	_, err = flows.CreateInvitation(ctx, identity.CreateInvitationMessage{
		UserID: owner.User.ID,
		Email:  "member@example.com",
		Role:   identity.RoleMember,
	})
	require.Error(t, err)
	assertFailureMessage(t, err, "User is already a member of this team")
}

func TestAcceptInvitationIsSingleShot(t *testing.T) {
	flows, _, db := setupWorkflows(t)
	ctx := context.Background()

	owner, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "owner@example.com",
		Password: "secretPassword1!",
	})
	require.NoError(t, err)

	invitation, err := flows.CreateInvitation(ctx, identity.CreateInvitationMessage{
		UserID: owner.User.ID,
		Email:  "joiner@example.com",
		Role:   identity.RoleMember,
	})
	require.NoError(t, err)

	joiner, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "joiner@example.com",
		Password: "secretPassword1!",
	})
	require.NoError(t, err)

	team, err := flows.AcceptInvitation(ctx, identity.AcceptInvitationMessage{
		User:     joiner.User,
		InviteID: invitation.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, owner.Team.ID, team.ID)

	_, err = flows.AcceptInvitation(ctx, identity.AcceptInvitationMessage{
		User:     joiner.User,
		InviteID: invitation.ID.String(),
	})
	require.Error(t, err)
	assertFailureMessage(t, err, "Invalid or expired invitation.")

	assert.Equal(t, 1, countActivity(t, db, identity.ActivityAcceptInvitation))
}

func TestAcceptInvitationConcurrentAttemptsHaveOneWinner(t *testing.T) {
	flows, _, db := setupWorkflows(t)
	ctx := context.Background()

	owner, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "owner@example.com",
		Password: "secretPassword1!",
	})
	require.NoError(t, err)

	invitation, err := flows.CreateInvitation(ctx, identity.CreateInvitationMessage{
		UserID: owner.User.ID,
		Email:  "joiner@example.com",
		Role:   identity.RoleMember,
	})
	require.NoError(t, err)

	joiner, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "joiner@example.com",
		Password: "secretPassword1!",
	})
	require.NoError(t, err)

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := flows.AcceptInvitation(ctx, identity.AcceptInvitationMessage{
				User:     joiner.User,
				InviteID: invitation.ID.String(),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	winners := 0
	for err := range errs {
		if err == nil {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, countActivity(t, db, identity.ActivityAcceptInvitation))
}

func TestPendingInvitationUniquePerTeamAndEmail(t *testing.T) {
	flows, repo, _ := setupWorkflows(t)
	ctx := context.Background()

	owner, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "owner@example.com",
		Password: "secretPassword1!",
	})
	require.NoError(t, err)

	_, err = repo.Invitations().Create(ctx, &identity.Invitation{
		TeamID:      owner.Team.ID,
		Email:       "friend@example.com",
		InvitedByID: owner.User.ID,
	})
	require.NoError(t, err)

	// the store rejects a second open invitation even without the
	// workflow's pending check
	_, err = repo.Invitations().Create(ctx, &identity.Invitation{
		TeamID:      owner.Team.ID,
		Email:       "friend@example.com",
		InvitedByID: owner.User.ID,
	})
	require.Error(t, err)
}

func TestRemoveTeamMember(t *testing.T) {
	flows, repo, db := setupWorkflows(t)
	ctx := context.Background()

	owner, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "owner@example.com",
		Password: "secretPassword1!",
	})
	require.NoError(t, err)

	invitation, err := flows.CreateInvitation(ctx, identity.CreateInvitationMessage{
		UserID: owner.User.ID,
		Email:  "member@example.com",
		Role:   identity.RoleMember,
	})
	require.NoError(t, err)

	member, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "member@example.com",
		Password: "secretPassword1!",
		InviteID: invitation.ID.String(),
	})
	require.NoError(t, err)

	membership, err := repo.Members().FirstForUser(ctx, member.User.ID)
	require.NoError(t, err)
	require.NotNil(t, membership)

	require.NoError(t, flows.RemoveTeamMember(ctx, identity.RemoveTeamMemberMessage{
		UserID:   owner.User.ID,
		MemberID: membership.ID,
	}))

	gone, err := repo.Members().FirstForUser(ctx, member.User.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	assert.Equal(t, 1, countActivity(t, db, identity.ActivityRemoveTeamMember))
}

func TestRemoveTeamMemberFromAnotherTeamReadsAsNotFound(t *testing.T) {
	flows, repo, _ := setupWorkflows(t)
	ctx := context.Background()

	owner, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "owner@example.com",
		Password: "secretPassword1!",
	})
	require.NoError(t, err)

	outsider, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "outsider@example.com",
		Password: "secretPassword1!",
	})
	require.NoError(t, err)

	outsiderMembership, err := repo.Members().FirstForUser(ctx, outsider.User.ID)
	require.NoError(t, err)
	require.NotNil(t, outsiderMembership)

	err = flows.RemoveTeamMember(ctx, identity.RemoveTeamMemberMessage{
		UserID:   owner.User.ID,
		MemberID: outsiderMembership.ID,
	})
	require.Error(t, err)
	assertFailureMessage(t, err, "Member not found")

	// the outsider keeps their membership
	still, err := repo.Members().FirstForUser(ctx, outsider.User.ID)
	require.NoError(t, err)
	require.NotNil(t, still)
}

func TestRemoveTeamMemberUnknownID(t *testing.T) {
	flows, _, _ := setupWorkflows(t)
	ctx := context.Background()

	owner, err := flows.SignUp(ctx, identity.SignUpMessage{
		Email:    "owner@example.com",
		Password: "secretPassword1!",
	})
	require.NoError(t, err)

	err = flows.RemoveTeamMember(ctx, identity.RemoveTeamMemberMessage{
		UserID:   owner.User.ID,
		MemberID: uuid.New(),
	})
	require.Error(t, err)
	assertFailureMessage(t, err, "Member not found")
}
