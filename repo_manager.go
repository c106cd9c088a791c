package identity

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories plus the transaction manager
// workflows run inside. It is the single synchronization point: every
// workflow executes its checks and mutations in one RunInTx call.
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Teams() Teams
	Members() TeamMembers
	Invitations() Invitations
	Credentials() Credentials
	Activity() ActivityLogs
}

type mngr struct {
	db          *bun.DB
	users       Users
	teams       Teams
	members     TeamMembers
	invitations Invitations
	credentials Credentials
	activity    ActivityLogs
}

// NewRepositoryManager builds the repository set over a Bun DB.
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:          db,
		users:       NewUsersRepository(db),
		teams:       NewTeamsRepository(db),
		members:     NewTeamMembersRepository(db),
		invitations: NewInvitationsRepository(db),
		credentials: NewCredentialsRepository(db),
		activity:    NewActivityLogsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.teams == nil {
		return errors.New("repository teams should be initialized")
	}

	if m.members == nil {
		return errors.New("repository members should be initialized")
	}

	if m.invitations == nil {
		return errors.New("repository invitations should be initialized")
	}

	if m.credentials == nil {
		return errors.New("repository credentials should be initialized")
	}

	if m.activity == nil {
		return errors.New("repository activity should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users { return m.users }

func (m mngr) Teams() Teams { return m.teams }

func (m mngr) Members() TeamMembers { return m.members }

func (m mngr) Invitations() Invitations { return m.invitations }

func (m mngr) Credentials() Credentials { return m.credentials }

func (m mngr) Activity() ActivityLogs { return m.activity }
