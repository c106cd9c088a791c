package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivityLogs is the append-only audit repository. There is no update or
// delete path on purpose.
type ActivityLogs interface {
	RecordTx(ctx context.Context, tx bun.IDB, record *ActivityLog) error
	// ListForUser returns the user's most recent entries, newest first.
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*ActivityLog, error)
	ListForTeam(ctx context.Context, teamID uuid.UUID, limit int) ([]*ActivityLog, error)
}

type activityLogs struct {
	db *bun.DB
}

var _ ActivityLogs = (*activityLogs)(nil)

// NewActivityLogsRepository builds the ActivityLogs repository over db.
func NewActivityLogsRepository(db *bun.DB) ActivityLogs {
	return &activityLogs{db: db}
}

func (r *activityLogs) RecordTx(ctx context.Context, tx bun.IDB, record *ActivityLog) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	_, err := tx.NewInsert().Model(record).Exec(ctx)
	return err
}

func (r *activityLogs) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*ActivityLog, error) {
	if limit <= 0 {
		limit = 10
	}

	var records []*ActivityLog
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.occurred_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *activityLogs) ListForTeam(ctx context.Context, teamID uuid.UUID, limit int) ([]*ActivityLog, error) {
	if limit <= 0 {
		limit = 10
	}

	var records []*ActivityLog
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.team_id = ?", teamID).
		OrderExpr("?TableAlias.occurred_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}
