package identity

import (
	"context"
	"database/sql"
	"errors"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Credentials stores one salted hash per user. The hash never leaves this
// repository: callers create, rotate, and verify, nothing else.
type Credentials interface {
	CreateTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, plaintext string) error
	UpdateTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, plaintext string) error
	// VerifyTx compares plaintext against the stored hash. A missing
	// credential row and a wrong password both come back as
	// ErrMismatchedHashAndPassword.
	VerifyTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, plaintext string) error
	Verify(ctx context.Context, userID uuid.UUID, plaintext string) error
}

type credentials struct {
	db *bun.DB
}

var _ Credentials = (*credentials)(nil)

// NewCredentialsRepository builds the Credentials repository over db.
func NewCredentialsRepository(db *bun.DB) Credentials {
	return &credentials{db: db}
}

func (r *credentials) CreateTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, plaintext string) error {
	hash, err := HashPassword(plaintext)
	if err != nil {
		return err
	}

	record := &Credential{
		ID:           uuid.New(),
		UserID:       userID,
		PasswordHash: hash,
	}

	_, err = tx.NewInsert().Model(record).Exec(ctx)
	return err
}

func (r *credentials) UpdateTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, plaintext string) error {
	hash, err := HashPassword(plaintext)
	if err != nil {
		return err
	}

	res, err := tx.NewUpdate().
		Model((*Credential)(nil)).
		Set("password_hash = ?", hash).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("?TableAlias.user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"identifier": userID.String(),
			})
	}

	return nil
}

func (r *credentials) Verify(ctx context.Context, userID uuid.UUID, plaintext string) error {
	return r.VerifyTx(ctx, r.db, userID, plaintext)
}

func (r *credentials) VerifyTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, plaintext string) error {
	record := &Credential{}
	err := tx.NewSelect().
		Model(record).
		Column("password_hash").
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)

	if errors.Is(err, sql.ErrNoRows) {
		// burn a comparison so missing rows cost the same as wrong passwords
		_ = ComparePasswordAndHash(plaintext, randomPasswordHash())
		return ErrMismatchedHashAndPassword
	}
	if err != nil {
		return err
	}

	return ComparePasswordAndHash(plaintext, record.PasswordHash)
}

// randomPasswordHash hashes a throwaway secret so verification against an
// absent credential pays the same cost as a real comparison.
func randomPasswordHash() string {
	h, err := HashPassword(uuid.NewString())
	if err != nil {
		return randomPasswordHash()
	}
	return h
}
