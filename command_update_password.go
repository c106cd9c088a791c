package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UpdatePasswordMessage struct {
	UserID          uuid.UUID `json:"user_id"`
	CurrentPassword string    `json:"current_password"`
	NewPassword     string    `json:"new_password"`
	IPAddress       string    `json:"ip_address"`
}

func (e UpdatePasswordMessage) Type() string { return "identity.update_password" }

type UpdatePasswordHandler struct {
	repo RepositoryManager
}

func NewUpdatePasswordHandler(repo RepositoryManager) *UpdatePasswordHandler {
	return &UpdatePasswordHandler{repo: repo}
}

func (h *UpdatePasswordHandler) Execute(ctx context.Context, event UpdatePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdatePasswordHandler) execute(ctx context.Context, event UpdatePasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.repo.Credentials().VerifyTx(ctx, tx, event.UserID, event.CurrentPassword); err != nil {
			if goerrors.Is(err, ErrMismatchedHashAndPassword) {
				return goerrors.New("Current password is incorrect.", goerrors.CategoryAuth).
					WithTextCode("PASSWORD_MISMATCH")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify credentials")
		}

		if err := h.repo.Credentials().UpdateTx(ctx, tx, event.UserID, event.NewPassword); err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryValidation {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to rotate credentials")
		}

		team, err := h.repo.Teams().ForUserTx(ctx, tx, event.UserID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load team")
		}
		if team == nil {
			return nil
		}

		return recordActivityTx(ctx, tx, h.repo, team.ID, event.UserID, ActivityUpdatePassword, event.IPAddress)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password update transaction failed")
	}

	return nil
}
