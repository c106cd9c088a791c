package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type RemoveTeamMemberMessage struct {
	UserID    uuid.UUID `json:"user_id"`
	MemberID  uuid.UUID `json:"member_id"`
	IPAddress string    `json:"ip_address"`
}

func (e RemoveTeamMemberMessage) Type() string { return "identity.remove_team_member" }

type RemoveTeamMemberHandler struct {
	repo RepositoryManager
}

func NewRemoveTeamMemberHandler(repo RepositoryManager) *RemoveTeamMemberHandler {
	return &RemoveTeamMemberHandler{repo: repo}
}

// Execute removes a membership row from the caller's team. MemberID is the
// membership id, not the user id; a membership in another team reads as not
// found.
func (h *RemoveTeamMemberHandler) Execute(ctx context.Context, event RemoveTeamMemberMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during member removal",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RemoveTeamMemberHandler) execute(ctx context.Context, event RemoveTeamMemberMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		caller, err := h.repo.Members().FirstForUserTx(ctx, tx, event.UserID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load membership")
		}
		if caller == nil {
			return goerrors.New("User is not part of a team", goerrors.CategoryOperation).
				WithTextCode("NO_TEAM")
		}

		target, err := h.repo.Members().LookupTx(ctx, tx, event.MemberID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return goerrors.New("Member not found", goerrors.CategoryNotFound).
					WithTextCode("MEMBER_NOT_FOUND")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load member")
		}

		if target.TeamID != caller.TeamID {
			return goerrors.New("Member not found", goerrors.CategoryNotFound).
				WithTextCode("MEMBER_NOT_FOUND")
		}

		if err := h.repo.Members().RemoveTx(ctx, tx, target.ID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove member")
		}

		return recordActivityTx(ctx, tx, h.repo, caller.TeamID, event.UserID, ActivityRemoveTeamMember, event.IPAddress)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "member removal transaction failed")
	}

	return nil
}
