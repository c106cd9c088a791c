package identity_test

import (
	"context"
	"database/sql"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const sqliteCreateIdentityTables = `
CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    name TEXT,
    email TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'member',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    deleted_at TIMESTAMP
);
CREATE UNIQUE INDEX users_email_active_uq ON users (email) WHERE deleted_at IS NULL;
CREATE TABLE teams (
    id TEXT NOT NULL PRIMARY KEY,
    name TEXT NOT NULL,
    customer_id TEXT,
    subscription_id TEXT,
    product_id TEXT,
    plan_name TEXT,
    subscription_status TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE team_members (
    id TEXT NOT NULL PRIMARY KEY,
    team_id TEXT NOT NULL REFERENCES teams (id),
    user_id TEXT NOT NULL REFERENCES users (id),
    role TEXT NOT NULL DEFAULT 'member',
    joined_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (team_id, user_id)
);
CREATE TABLE invitations (
    id TEXT NOT NULL PRIMARY KEY,
    team_id TEXT NOT NULL REFERENCES teams (id),
    email TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'member',
    invited_by_id TEXT NOT NULL REFERENCES users (id),
    status TEXT NOT NULL DEFAULT 'pending',
    invited_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE UNIQUE INDEX invitations_pending_uq ON invitations (team_id, email) WHERE status = 'pending';
CREATE TABLE credentials (
    id TEXT NOT NULL PRIMARY KEY,
    user_id TEXT NOT NULL UNIQUE REFERENCES users (id),
    password_hash TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE activity_logs (
    id TEXT NOT NULL PRIMARY KEY,
    team_id TEXT NOT NULL REFERENCES teams (id),
    user_id TEXT REFERENCES users (id),
    action TEXT NOT NULL,
    ip_address TEXT,
    occurred_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

func setupRepoManager(t *testing.T) (identity.RepositoryManager, *bun.DB) {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	_, err = bunDB.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	_, err = bunDB.Exec(sqliteCreateIdentityTables)
	require.NoError(t, err)

	return identity.NewRepositoryManager(bunDB), bunDB
}

func setupWorkflows(t *testing.T) (*identity.Workflows, identity.RepositoryManager, *bun.DB) {
	t.Helper()
	repo, db := setupRepoManager(t)
	return identity.NewWorkflows(repo), repo, db
}

// assertFailureMessage checks the message a caller would see. Workflow
// failures carry it on the rich error, not on the rendered Error() string.
func assertFailureMessage(t *testing.T, err error, want string) {
	t.Helper()
	var rich *goerrors.Error
	require.ErrorAs(t, err, &rich)
	require.Equal(t, want, rich.Message)
}

func countActivity(t *testing.T, db *bun.DB, action identity.ActivityType) int {
	t.Helper()
	count, err := db.NewSelect().
		Model((*identity.ActivityLog)(nil)).
		Where("action = ?", action).
		Count(context.Background())
	require.NoError(t, err)
	return count
}
