package identity

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TeamMembers is the membership repository.
type TeamMembers interface {
	repository.Repository[*TeamMember]

	Create(ctx context.Context, record *TeamMember, criteria ...repository.InsertCriteria) (*TeamMember, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *TeamMember, criteria ...repository.InsertCriteria) (*TeamMember, error)

	LookupTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*TeamMember, error)

	// FirstForUser returns the membership created earliest for userID, nil
	// when the user has none.
	FirstForUser(ctx context.Context, userID uuid.UUID) (*TeamMember, error)
	FirstForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*TeamMember, error)

	ExistsTx(ctx context.Context, tx bun.IDB, teamID, userID uuid.UUID) (bool, error)
	RemoveTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	RemoveAllForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type members struct {
	repository.Repository[*TeamMember]
	db *bun.DB
}

var _ TeamMembers = (*members)(nil)

// NewTeamMembersRepository builds the TeamMembers repository over db.
func NewTeamMembersRepository(db *bun.DB) TeamMembers {
	repo := repository.NewRepository[*TeamMember](db, repository.ModelHandlers[*TeamMember]{
		NewRecord: func() *TeamMember { return &TeamMember{} },
		GetID: func(m *TeamMember) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *TeamMember, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
		GetIdentifier: func() string {
			return "user_id"
		},
	})

	return &members{
		Repository: repo,
		db:         db,
	}
}

func (r *members) Create(ctx context.Context, record *TeamMember, criteria ...repository.InsertCriteria) (*TeamMember, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *members) CreateTx(ctx context.Context, tx bun.IDB, record *TeamMember, criteria ...repository.InsertCriteria) (*TeamMember, error) {
	if record != nil {
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		if record.Role == "" {
			record.Role = RoleMember
		}
	}
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (r *members) LookupTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*TeamMember, error) {
	record := &TeamMember{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"identifier": id.String(),
			})
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *members) FirstForUser(ctx context.Context, userID uuid.UUID) (*TeamMember, error) {
	return r.FirstForUserTx(ctx, r.db, userID)
}

func (r *members) FirstForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*TeamMember, error) {
	record := &TeamMember{}
	err := tx.NewSelect().
		Model(record).
		Relation("Team").
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.joined_at ASC").
		Limit(1).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return record, nil
}

func (r *members) ExistsTx(ctx context.Context, tx bun.IDB, teamID, userID uuid.UUID) (bool, error) {
	return tx.NewSelect().
		Model((*TeamMember)(nil)).
		Where("?TableAlias.team_id = ?", teamID).
		Where("?TableAlias.user_id = ?", userID).
		Exists(ctx)
}

func (r *members) RemoveTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*TeamMember)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

func (r *members) RemoveAllForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*TeamMember)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)
	return err
}
