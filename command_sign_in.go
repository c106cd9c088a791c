package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type SignInMessage struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IPAddress string `json:"ip_address"`
}

func (e SignInMessage) Type() string { return "identity.sign_in" }

type SignInResult struct {
	User *User
	Team *Team
}

type SignInHandler struct {
	repo RepositoryManager
}

func NewSignInHandler(repo RepositoryManager) *SignInHandler {
	return &SignInHandler{repo: repo}
}

func (h *SignInHandler) Execute(ctx context.Context, event SignInMessage) (*SignInResult, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during sign in",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignInHandler) execute(ctx context.Context, event SignInMessage) (*SignInResult, error) {
	result := &SignInResult{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	invalid := func() error {
		return goerrors.New("Invalid email or password. Please try again.", goerrors.CategoryAuth).
			WithTextCode("SIGN_IN_FAILED")
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().LookupByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				// keep unknown accounts as slow as wrong passwords
				_ = ComparePasswordAndHash(event.Password, randomPasswordHash())
				return invalid()
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load account")
		}

		if err := h.repo.Credentials().VerifyTx(ctx, tx, user.ID, event.Password); err != nil {
			if goerrors.Is(err, ErrMismatchedHashAndPassword) {
				return invalid()
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify credentials")
		}

		result.User = user

		team, err := h.repo.Teams().ForUserTx(ctx, tx, user.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load team")
		}
		result.Team = team

		if team == nil {
			return nil
		}

		return recordActivityTx(ctx, tx, h.repo, team.ID, user.ID, ActivitySignIn, event.IPAddress)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "sign in transaction failed")
	}

	return result, nil
}
