package identity

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Invitations is the invitation repository. Acceptance is a guarded state
// transition: MarkAcceptedTx flips pending to accepted and reports whether
// this call won the transition.
type Invitations interface {
	repository.Repository[*Invitation]

	Create(ctx context.Context, record *Invitation, criteria ...repository.InsertCriteria) (*Invitation, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Invitation, criteria ...repository.InsertCriteria) (*Invitation, error)

	Lookup(ctx context.Context, id uuid.UUID) (*Invitation, error)
	LookupTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Invitation, error)

	PendingExistsTx(ctx context.Context, tx bun.IDB, teamID uuid.UUID, email string) (bool, error)
	MarkAcceptedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error)
}

type invitations struct {
	repository.Repository[*Invitation]
	db *bun.DB
}

var _ Invitations = (*invitations)(nil)

// NewInvitationsRepository builds the Invitations repository over db.
func NewInvitationsRepository(db *bun.DB) Invitations {
	repo := repository.NewRepository[*Invitation](db, repository.ModelHandlers[*Invitation]{
		NewRecord: func() *Invitation { return &Invitation{} },
		GetID: func(i *Invitation) uuid.UUID {
			if i == nil {
				return uuid.Nil
			}
			return i.ID
		},
		SetID: func(i *Invitation, id uuid.UUID) {
			if i != nil {
				i.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &invitations{
		Repository: repo,
		db:         db,
	}
}

func (r *invitations) Create(ctx context.Context, record *Invitation, criteria ...repository.InsertCriteria) (*Invitation, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *invitations) CreateTx(ctx context.Context, tx bun.IDB, record *Invitation, criteria ...repository.InsertCriteria) (*Invitation, error) {
	if record != nil {
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		if record.Status == "" {
			record.Status = InvitationPending
		}
		if record.Role == "" {
			record.Role = RoleMember
		}
	}
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (r *invitations) Lookup(ctx context.Context, id uuid.UUID) (*Invitation, error) {
	return r.LookupTx(ctx, r.db, id)
}

func (r *invitations) LookupTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Invitation, error) {
	record := &Invitation{}
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

func (r *invitations) PendingExistsTx(ctx context.Context, tx bun.IDB, teamID uuid.UUID, email string) (bool, error) {
	return tx.NewSelect().
		Model((*Invitation)(nil)).
		Where("?TableAlias.team_id = ?", teamID).
		Where("?TableAlias.email = ?", email).
		Where("?TableAlias.status = ?", InvitationPending).
		Exists(ctx)
}

// MarkAcceptedTx flips a pending invitation to accepted. The status guard in
// the WHERE clause makes acceptance single-shot even under concurrent
// attempts: only the transaction that matched the pending row reports true.
func (r *invitations) MarkAcceptedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error) {
	res, err := tx.NewUpdate().
		Model((*Invitation)(nil)).
		Set("status = ?", InvitationAccepted).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.status = ?", InvitationPending).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}
