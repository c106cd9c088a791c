package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type UpdateAccountMessage struct {
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IPAddress string    `json:"ip_address"`
}

func (e UpdateAccountMessage) Type() string { return "identity.update_account" }

type UpdateAccountHandler struct {
	repo RepositoryManager
}

func NewUpdateAccountHandler(repo RepositoryManager) *UpdateAccountHandler {
	return &UpdateAccountHandler{repo: repo}
}

func (h *UpdateAccountHandler) Execute(ctx context.Context, event UpdateAccountMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateAccountHandler) execute(ctx context.Context, event UpdateAccountMessage) (*User, error) {
	var updated *User
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if existing, err := h.repo.Users().LookupByEmailTx(ctx, tx, event.Email); err == nil {
			if existing.ID != event.UserID {
				return goerrors.New("That email is already in use.", goerrors.CategoryConflict).
					WithTextCode("EMAIL_TAKEN")
			}
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
		}

		user, err := h.repo.Users().UpdateProfileTx(ctx, tx, event.UserID, event.Name, event.Email)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update account")
		}
		updated = user

		team, err := h.repo.Teams().ForUserTx(ctx, tx, event.UserID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load team")
		}
		if team == nil {
			return nil
		}

		return recordActivityTx(ctx, tx, h.repo, team.ID, event.UserID, ActivityUpdateAccount, event.IPAddress)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "account update transaction failed")
	}

	return updated, nil
}
