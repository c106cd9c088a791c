package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// Workflows bundles the identity command handlers behind one facade. Each
// workflow runs atomically inside a single store transaction, audit entry
// included.
type Workflows struct {
	repo RepositoryManager

	signUp           *SignUpHandler
	signIn           *SignInHandler
	signOut          *SignOutHandler
	acceptInvitation *AcceptInvitationHandler
	updatePassword   *UpdatePasswordHandler
	deleteAccount    *DeleteAccountHandler
	updateAccount    *UpdateAccountHandler
	removeMember     *RemoveTeamMemberHandler
	createInvitation *CreateInvitationHandler
}

// NewWorkflows wires every handler over repo.
func NewWorkflows(repo RepositoryManager) *Workflows {
	if err := repo.Validate(); err != nil {
		panic(err)
	}

	return &Workflows{
		repo:             repo,
		signUp:           NewSignUpHandler(repo),
		signIn:           NewSignInHandler(repo),
		signOut:          NewSignOutHandler(repo),
		acceptInvitation: NewAcceptInvitationHandler(repo),
		updatePassword:   NewUpdatePasswordHandler(repo),
		deleteAccount:    NewDeleteAccountHandler(repo),
		updateAccount:    NewUpdateAccountHandler(repo),
		removeMember:     NewRemoveTeamMemberHandler(repo),
		createInvitation: NewCreateInvitationHandler(repo),
	}
}

func (w *Workflows) SignUp(ctx context.Context, msg SignUpMessage) (*SignUpResult, error) {
	return w.signUp.Execute(ctx, msg)
}

func (w *Workflows) SignIn(ctx context.Context, msg SignInMessage) (*SignInResult, error) {
	return w.signIn.Execute(ctx, msg)
}

func (w *Workflows) SignOut(ctx context.Context, msg SignOutMessage) error {
	return w.signOut.Execute(ctx, msg)
}

func (w *Workflows) AcceptInvitation(ctx context.Context, msg AcceptInvitationMessage) (*Team, error) {
	return w.acceptInvitation.Execute(ctx, msg)
}

func (w *Workflows) UpdatePassword(ctx context.Context, msg UpdatePasswordMessage) error {
	return w.updatePassword.Execute(ctx, msg)
}

func (w *Workflows) DeleteAccount(ctx context.Context, msg DeleteAccountMessage) error {
	return w.deleteAccount.Execute(ctx, msg)
}

func (w *Workflows) UpdateAccount(ctx context.Context, msg UpdateAccountMessage) (*User, error) {
	return w.updateAccount.Execute(ctx, msg)
}

func (w *Workflows) RemoveTeamMember(ctx context.Context, msg RemoveTeamMemberMessage) error {
	return w.removeMember.Execute(ctx, msg)
}

func (w *Workflows) CreateInvitation(ctx context.Context, msg CreateInvitationMessage) (*Invitation, error) {
	return w.createInvitation.Execute(ctx, msg)
}

// GetUser resolves a user by ID. Soft-deleted accounts are invisible here.
func (w *Workflows) GetUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	user, err := w.repo.Users().Lookup(ctx, userID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}
	return user, nil
}

// GetUserByEmail resolves a user by email address.
func (w *Workflows) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user, err := w.repo.Users().LookupByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}
	return user, nil
}

// GetTeamForUser returns the user's team, nil when they have none.
func (w *Workflows) GetTeamForUser(ctx context.Context, userID uuid.UUID) (*Team, error) {
	return w.repo.Teams().ForUser(ctx, userID)
}

// GetUserWithTeam is the read path for the account page.
func (w *Workflows) GetUserWithTeam(ctx context.Context, userID uuid.UUID) (*UserWithTeam, error) {
	user, err := w.repo.Users().Lookup(ctx, userID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	team, err := w.repo.Teams().ForUser(ctx, userID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load team")
	}

	return &UserWithTeam{User: user, Team: team}, nil
}

// GetTeamWithMembers is the read path for the team settings page.
func (w *Workflows) GetTeamWithMembers(ctx context.Context, userID uuid.UUID) (*TeamWithMembers, error) {
	team, err := w.repo.Teams().ForUser(ctx, userID)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load team")
	}
	if team == nil {
		return nil, ErrIdentityNotFound
	}

	return w.repo.Teams().WithMembers(ctx, team.ID)
}

// RecentActivity lists the user's latest audit entries, newest first.
func (w *Workflows) RecentActivity(ctx context.Context, userID uuid.UUID, limit int) ([]*ActivityLog, error) {
	return w.repo.Activity().ListForUser(ctx, userID, limit)
}

// GetTeamByCustomerID resolves a team from the payment collaborator's
// customer reference.
func (w *Workflows) GetTeamByCustomerID(ctx context.Context, customerID string) (*Team, error) {
	team, err := w.repo.Teams().ByCustomerID(ctx, customerID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return team, nil
}

// UpdateTeamSubscription applies an opaque billing payload to a team. The
// attributes are stored verbatim; nothing here interprets them.
func (w *Workflows) UpdateTeamSubscription(ctx context.Context, teamID uuid.UUID, attrs SubscriptionAttrs) (*Team, error) {
	return w.repo.Teams().UpdateSubscription(ctx, teamID, attrs)
}
