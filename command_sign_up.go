package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type SignUpMessage struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	InviteID  string `json:"invite_id"`
	IPAddress string `json:"ip_address"`
	UseHashid bool
}

func (e SignUpMessage) Type() string { return "identity.sign_up" }

// SignUpResult is what the caller needs to establish a session and hand off
// to checkout.
type SignUpResult struct {
	User *User
	Team *Team
}

type SignUpHandler struct {
	repo RepositoryManager
}

func NewSignUpHandler(repo RepositoryManager) *SignUpHandler {
	return &SignUpHandler{repo: repo}
}

func (h *SignUpHandler) Execute(ctx context.Context, event SignUpMessage) (*SignUpResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during sign up",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignUpHandler) execute(ctx context.Context, event SignUpMessage) (*SignUpResult, error) {
	result := &SignUpResult{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().LookupByEmailTx(ctx, tx, event.Email); err == nil {
			return goerrors.New("Registration failed. Please try again.", goerrors.CategoryConflict).
				WithTextCode("SIGN_UP_EMAIL_TAKEN")
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing account")
		}

		// invited users join with the invitation's role, everyone else
		// owns the team created for them
		role := RoleOwner
		var invitation *Invitation
		if event.InviteID != "" {
			inv, err := loadPendingInvitationTx(ctx, tx, h.repo, event.InviteID, event.Email)
			if err != nil {
				return err
			}
			invitation = inv
			role = inv.Role
		}

		user := &User{
			Name:  event.Name,
			Email: event.Email,
			Role:  role,
		}
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		user, err := h.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "Registration failed. Please try again.")
		}

		if err := h.repo.Credentials().CreateTx(ctx, tx, user.ID, event.Password); err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryValidation {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store credentials")
		}

		result.User = user

		if invitation != nil {
			team, err := finalizeInvitationTx(ctx, tx, h.repo, user, invitation, event.IPAddress)
			if err != nil {
				return err
			}
			result.Team = team
		} else {
			team, err := h.repo.Teams().CreateTx(ctx, tx, &Team{
				Name: DefaultTeamName(user.Email),
			})
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create team")
			}

			if _, err := h.repo.Members().CreateTx(ctx, tx, &TeamMember{
				TeamID: team.ID,
				UserID: user.ID,
				Role:   RoleOwner,
			}); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create membership")
			}

			if err := recordActivityTx(ctx, tx, h.repo, team.ID, user.ID, ActivityCreateTeam, event.IPAddress); err != nil {
				return err
			}
			result.Team = team
		}

		return recordActivityTx(ctx, tx, h.repo, result.Team.ID, user.ID, ActivitySignUp, event.IPAddress)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "sign up transaction failed")
	}

	return result, nil
}

func invitationInvalid() error {
	return goerrors.New("Invalid or expired invitation.", goerrors.CategoryAuth).
		WithTextCode("INVITATION_INVALID")
}

// loadPendingInvitationTx resolves inviteID to a pending invitation
// addressed to email. Unknown, consumed, and mismatched invitations all
// collapse to the same caller facing message.
func loadPendingInvitationTx(ctx context.Context, tx bun.Tx, repo RepositoryManager, inviteID, email string) (*Invitation, error) {
	id, err := uuid.Parse(inviteID)
	if err != nil {
		return nil, invitationInvalid()
	}

	invitation, err := repo.Invitations().LookupTx(ctx, tx, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, invitationInvalid()
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load invitation")
	}

	if invitation.Status != InvitationPending || invitation.Email != email {
		return nil, invitationInvalid()
	}

	return invitation, nil
}

// finalizeInvitationTx consumes a pending invitation and joins the user to
// the inviting team. The status guard in MarkAcceptedTx keeps acceptance
// single-shot even when two transactions race on the same invitation.
func finalizeInvitationTx(ctx context.Context, tx bun.Tx, repo RepositoryManager, user *User, invitation *Invitation, ipAddress string) (*Team, error) {
	accepted, err := repo.Invitations().MarkAcceptedTx(ctx, tx, invitation.ID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to accept invitation")
	}
	if !accepted {
		return nil, invitationInvalid()
	}

	if _, err := repo.Members().CreateTx(ctx, tx, &TeamMember{
		TeamID: invitation.TeamID,
		UserID: user.ID,
		Role:   invitation.Role,
	}); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create membership")
	}

	team, err := repo.Teams().LookupTx(ctx, tx, invitation.TeamID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load team")
	}

	if err := recordActivityTx(ctx, tx, repo, team.ID, user.ID, ActivityAcceptInvitation, ipAddress); err != nil {
		return nil, err
	}

	return team, nil
}

func recordActivityTx(ctx context.Context, tx bun.Tx, repo RepositoryManager, teamID, userID uuid.UUID, action ActivityType, ipAddress string) error {
	record, err := NewActivityLog(teamID, userID, action, ipAddress)
	if err != nil {
		return err
	}

	if err := repo.Activity().RecordTx(ctx, tx, record); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record activity")
	}

	return nil
}
