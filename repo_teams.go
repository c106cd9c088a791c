package identity

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Teams is the team repository. Subscription attributes are stored opaque;
// nothing here interprets them.
type Teams interface {
	repository.Repository[*Team]

	Create(ctx context.Context, record *Team, criteria ...repository.InsertCriteria) (*Team, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Team, criteria ...repository.InsertCriteria) (*Team, error)

	Lookup(ctx context.Context, id uuid.UUID) (*Team, error)
	LookupTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Team, error)

	// ForUser returns the team attached to the user's first membership,
	// nil when the user belongs to no team.
	ForUser(ctx context.Context, userID uuid.UUID) (*Team, error)
	ForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Team, error)

	ByCustomerID(ctx context.Context, customerID string) (*Team, error)
	UpdateSubscription(ctx context.Context, teamID uuid.UUID, attrs SubscriptionAttrs) (*Team, error)
	WithMembers(ctx context.Context, teamID uuid.UUID) (*TeamWithMembers, error)
}

type teams struct {
	repository.Repository[*Team]
	db *bun.DB
}

var _ Teams = (*teams)(nil)

// NewTeamsRepository builds the Teams repository over db.
func NewTeamsRepository(db *bun.DB) Teams {
	repo := repository.NewRepository[*Team](db, repository.ModelHandlers[*Team]{
		NewRecord: func() *Team { return &Team{} },
		GetID: func(t *Team) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *Team, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})

	return &teams{
		Repository: repo,
		db:         db,
	}
}

func (r *teams) Create(ctx context.Context, record *Team, criteria ...repository.InsertCriteria) (*Team, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *teams) CreateTx(ctx context.Context, tx bun.IDB, record *Team, criteria ...repository.InsertCriteria) (*Team, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (r *teams) Lookup(ctx context.Context, id uuid.UUID) (*Team, error) {
	return r.LookupTx(ctx, r.db, id)
}

func (r *teams) LookupTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Team, error) {
	record := &Team{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, wrapTeamNotFound(err, id.String())
	}

	return record, nil
}

func (r *teams) ForUser(ctx context.Context, userID uuid.UUID) (*Team, error) {
	return r.ForUserTx(ctx, r.db, userID)
}

func (r *teams) ForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (*Team, error) {
	record := &Team{}
	err := tx.NewSelect().
		Model(record).
		Join("JOIN team_members AS mbr ON mbr.team_id = ?TableAlias.id").
		Where("mbr.user_id = ?", userID).
		OrderExpr("mbr.joined_at ASC").
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

func (r *teams) ByCustomerID(ctx context.Context, customerID string) (*Team, error) {
	record := &Team{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.customer_id = ?", customerID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, wrapTeamNotFound(err, customerID)
	}

	return record, nil
}

func (r *teams) UpdateSubscription(ctx context.Context, teamID uuid.UUID, attrs SubscriptionAttrs) (*Team, error) {
	record := &Team{
		ID:                 teamID,
		CustomerID:         attrs.CustomerID,
		SubscriptionID:     attrs.SubscriptionID,
		ProductID:          attrs.ProductID,
		PlanName:           attrs.PlanName,
		SubscriptionStatus: attrs.SubscriptionStatus,
	}

	_, err := r.db.NewUpdate().
		Model(record).
		Column("customer_id", "subscription_id", "product_id", "plan_name", "subscription_status").
		Where("?TableAlias.id = ?", teamID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	return r.Lookup(ctx, teamID)
}

func (r *teams) WithMembers(ctx context.Context, teamID uuid.UUID) (*TeamWithMembers, error) {
	team, err := r.Lookup(ctx, teamID)
	if err != nil {
		return nil, err
	}

	var memberships []*TeamMember
	err = r.db.NewSelect().
		Model(&memberships).
		Relation("User").
		Where("?TableAlias.team_id = ?", teamID).
		OrderExpr("?TableAlias.joined_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	members := make([]*User, 0, len(memberships))
	for _, m := range memberships {
		if m.User != nil {
			members = append(members, m.User)
		}
	}

	return &TeamWithMembers{
		Team:    team,
		Members: members,
	}, nil
}

func wrapTeamNotFound(err error, identifier string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"identifier": identifier,
			})
	}
	return err
}
