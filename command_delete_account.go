package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type DeleteAccountMessage struct {
	UserID    uuid.UUID `json:"user_id"`
	Password  string    `json:"password"`
	IPAddress string    `json:"ip_address"`
}

func (e DeleteAccountMessage) Type() string { return "identity.delete_account" }

type DeleteAccountHandler struct {
	repo RepositoryManager
}

func NewDeleteAccountHandler(repo RepositoryManager) *DeleteAccountHandler {
	return &DeleteAccountHandler{repo: repo}
}

// Execute soft deletes the account after re-verifying the password. The
// audit entry, membership removal, and the delete itself commit together or
// not at all.
func (h *DeleteAccountHandler) Execute(ctx context.Context, event DeleteAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account deletion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteAccountHandler) execute(ctx context.Context, event DeleteAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.repo.Credentials().VerifyTx(ctx, tx, event.UserID, event.Password); err != nil {
			if goerrors.Is(err, ErrMismatchedHashAndPassword) {
				return goerrors.New("Incorrect password. Account deletion failed.", goerrors.CategoryAuth).
					WithTextCode("PASSWORD_MISMATCH")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify credentials")
		}

		team, err := h.repo.Teams().ForUserTx(ctx, tx, event.UserID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load team")
		}

		if team != nil {
			if err := recordActivityTx(ctx, tx, h.repo, team.ID, event.UserID, ActivityDeleteAccount, event.IPAddress); err != nil {
				return err
			}
		}

		if err := h.repo.Members().RemoveAllForUserTx(ctx, tx, event.UserID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove memberships")
		}

		if err := h.repo.Users().SoftDeleteTx(ctx, tx, event.UserID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete account")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account deletion transaction failed")
	}

	return nil
}
