package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/irgordon/locker/api/internal/core/domain"
)

// EntryRepository implements domain.EntryRepository on the pgx pool.
// 🛡️ Every statement carries user_id in its WHERE clause (IDOR protection at the query level).
type EntryRepository struct {
	pool *pgxpool.Pool
}

func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

const entryColumns = `id, user_id, title, username, encrypted_password, notes_ciphertext, created_at, updated_at`

func (r *EntryRepository) Create(ctx context.Context, rec *domain.EntryRecord) error {
	const query = `
		INSERT INTO vault_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.UserID, rec.Title, rec.Username,
		rec.EncryptedPassword, rec.NotesCiphertext, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

func (r *EntryRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.EntryRecord, error) {
	const query = `SELECT ` + entryColumns + ` FROM vault_entries WHERE user_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}

	records, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("failed to scan entries: %w", err)
	}
	return records, nil
}

func (r *EntryRepository) GetByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*domain.EntryRecord, error) {
	const query = `SELECT ` + entryColumns + ` FROM vault_entries WHERE id = $1 AND user_id = $2`

	rows, err := r.pool.Query(ctx, query, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entry: %w", err)
	}

	rec, err := pgx.CollectExactlyOneRow(rows, scanEntry)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}
	return &rec, nil
}

func (r *EntryRepository) Update(ctx context.Context, rec *domain.EntryRecord) error {
	const query = `
		UPDATE vault_entries SET
			title = $3,
			username = $4,
			encrypted_password = $5,
			notes_ciphertext = $6,
			updated_at = $7
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.pool.Exec(ctx, query,
		rec.ID, rec.UserID, rec.Title, rec.Username,
		rec.EncryptedPassword, rec.NotesCiphertext, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *EntryRepository) Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM vault_entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanEntry(row pgx.CollectableRow) (domain.EntryRecord, error) {
	var rec domain.EntryRecord
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Title, &rec.Username,
		&rec.EncryptedPassword, &rec.NotesCiphertext, &rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}
