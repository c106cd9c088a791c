package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type AcceptInvitationMessage struct {
	User      *User  `json:"user"`
	InviteID  string `json:"invite_id"`
	IPAddress string `json:"ip_address"`
}

func (e AcceptInvitationMessage) Type() string { return "identity.accept_invitation" }

type AcceptInvitationHandler struct {
	repo RepositoryManager
}

func NewAcceptInvitationHandler(repo RepositoryManager) *AcceptInvitationHandler {
	return &AcceptInvitationHandler{repo: repo}
}

// Execute joins an existing user to the inviting team. The invitation must
// be pending and addressed to the user's email; acceptance happens at most
// once regardless of concurrent attempts.
func (h *AcceptInvitationHandler) Execute(ctx context.Context, event AcceptInvitationMessage) (*Team, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during invitation acceptance",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *AcceptInvitationHandler) execute(ctx context.Context, event AcceptInvitationMessage) (*Team, error) {
	if event.User == nil {
		return nil, goerrors.New("invitation acceptance requires a user", goerrors.CategoryValidation)
	}

	var team *Team
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		invitation, err := loadPendingInvitationTx(ctx, tx, h.repo, event.InviteID, event.User.Email)
		if err != nil {
			return err
		}

		t, err := finalizeInvitationTx(ctx, tx, h.repo, event.User, invitation, event.IPAddress)
		if err != nil {
			return err
		}
		team = t
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "invitation acceptance transaction failed")
	}

	return team, nil
}
