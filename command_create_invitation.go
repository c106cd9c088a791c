package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type CreateInvitationMessage struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	IPAddress string    `json:"ip_address"`
}

func (e CreateInvitationMessage) Type() string { return "identity.create_invitation" }

type CreateInvitationHandler struct {
	repo RepositoryManager
}

func NewCreateInvitationHandler(repo RepositoryManager) *CreateInvitationHandler {
	return &CreateInvitationHandler{repo: repo}
}

func (h *CreateInvitationHandler) Execute(ctx context.Context, event CreateInvitationMessage) (*Invitation, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invitation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateInvitationHandler) execute(ctx context.Context, event CreateInvitationMessage) (*Invitation, error) {
	var invitation *Invitation
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if !ValidRole(event.Role) {
		return nil, goerrors.New("invalid role", goerrors.CategoryValidation).
			WithTextCode("INVALID_ROLE")
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		caller, err := h.repo.Members().FirstForUserTx(ctx, tx, event.UserID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load membership")
		}
		if caller == nil {
			return goerrors.New("User is not part of a team", goerrors.CategoryOperation).
				WithTextCode("NO_TEAM")
		}

		if invitee, err := h.repo.Users().LookupByEmailTx(ctx, tx, event.Email); err == nil {
			member, err := h.repo.Members().ExistsTx(ctx, tx, caller.TeamID, invitee.ID)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check membership")
			}
			if member {
				return goerrors.New("User is already a member of this team", goerrors.CategoryConflict).
					WithTextCode("ALREADY_MEMBER")
			}
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check invitee")
		}

		pending, err := h.repo.Invitations().PendingExistsTx(ctx, tx, caller.TeamID, event.Email)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check pending invitations")
		}
		if pending {
			return goerrors.New("An invitation has already been sent to this email", goerrors.CategoryConflict).
				WithTextCode("INVITATION_PENDING")
		}

		invitation, err = h.repo.Invitations().CreateTx(ctx, tx, &Invitation{
			TeamID:      caller.TeamID,
			Email:       event.Email,
			Role:        event.Role,
			InvitedByID: event.UserID,
			Status:      InvitationPending,
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create invitation")
		}

		return recordActivityTx(ctx, tx, h.repo, caller.TeamID, event.UserID, ActivityInviteTeamMember, event.IPAddress)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "invitation transaction failed")
	}

	return invitation, nil
}
