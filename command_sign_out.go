package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type SignOutMessage struct {
	UserID    uuid.UUID `json:"user_id"`
	IPAddress string    `json:"ip_address"`
}

func (e SignOutMessage) Type() string { return "identity.sign_out" }

type SignOutHandler struct {
	repo RepositoryManager
}

func NewSignOutHandler(repo RepositoryManager) *SignOutHandler {
	return &SignOutHandler{repo: repo}
}

// Execute records the sign out in the audit trail. Clearing the session
// cookie is the transport's job; a user with no team signs out silently.
func (h *SignOutHandler) Execute(ctx context.Context, event SignOutMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during sign out",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignOutHandler) execute(ctx context.Context, event SignOutMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		team, err := h.repo.Teams().ForUserTx(ctx, tx, event.UserID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load team")
		}
		if team == nil {
			return nil
		}

		return recordActivityTx(ctx, tx, h.repo, team.ID, event.UserID, ActivitySignOut, event.IPAddress)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "sign out transaction failed")
	}

	return nil
}
