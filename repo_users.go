package identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the account repository. Lookups are soft-delete aware: deleted
// users never come back from Lookup or LookupByEmail.
type Users interface {
	repository.Repository[*User]

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	Lookup(ctx context.Context, id uuid.UUID) (*User, error)
	LookupTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	LookupByEmail(ctx context.Context, email string) (*User, error)
	LookupByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)

	UpdateProfileTx(ctx context.Context, tx bun.IDB, id uuid.UUID, name, email string) (*User, error)
	SoftDeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

// NewUsersRepository builds the Users repository over db.
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) Lookup(ctx context.Context, id uuid.UUID) (*User, error) {
	return a.LookupTx(ctx, a.db, id)
}

func (a *users) LookupTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, wrapUserNotFound(err, id.String())
	}

	return record, nil
}

func (a *users) LookupByEmail(ctx context.Context, email string) (*User, error) {
	return a.LookupByEmailTx(ctx, a.db, email)
}

func (a *users) LookupByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", strings.TrimSpace(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, wrapUserNotFound(err, email)
	}

	return record, nil
}

func (a *users) UpdateProfileTx(ctx context.Context, tx bun.IDB, id uuid.UUID, name, email string) (*User, error) {
	record := &User{
		ID:    id,
		Name:  name,
		Email: strings.TrimSpace(email),
	}

	_, err := tx.NewUpdate().
		Model(record).
		Column("name", "email").
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return a.LookupTx(ctx, tx, id)
}

func (a *users) SoftDeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	// the soft_delete tag turns this into deleted_at = now()
	_, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleMember
	}

	record.Email = strings.TrimSpace(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

func wrapUserNotFound(err error, identifier string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"identifier": identifier,
			})
	}
	return err
}
