package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kislikjeka/moneybuckets/internal/platform/keyword"
)

// KeywordRepository implements keyword.Repository using PostgreSQL
type KeywordRepository struct {
	pool *pgxpool.Pool
}

// NewKeywordRepository creates a new PostgreSQL keyword repository
func NewKeywordRepository(pool *pgxpool.Pool) *KeywordRepository {
	return &KeywordRepository{pool: pool}
}

// Create inserts a mapping
func (r *KeywordRepository) Create(ctx context.Context, m *keyword.Mapping) error {
	query := `
		INSERT INTO keyword_mappings (id, user_id, keyword, bucket_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query, m.ID, m.UserID, m.Keyword, m.BucketID, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return keyword.ErrDuplicateKeyword
		}
		return fmt.Errorf("failed to create keyword mapping: %w", err)
	}
	return nil
}

// Upsert inserts a mapping or repoints the user's existing keyword
func (r *KeywordRepository) Upsert(ctx context.Context, m *keyword.Mapping) error {
	query := `
		INSERT INTO keyword_mappings (id, user_id, keyword, bucket_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, keyword)
		DO UPDATE SET bucket_id = EXCLUDED.bucket_id, updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query, m.ID, m.UserID, m.Keyword, m.BucketID, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert keyword mapping: %w", err)
	}
	return nil
}

// GetByUserID lists a user's mappings by keyword
func (r *KeywordRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*keyword.Mapping, error) {
	query := `
		SELECT id, user_id, keyword, bucket_id, created_at, updated_at
		FROM keyword_mappings
		WHERE user_id = $1
		ORDER BY keyword
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list keyword mappings: %w", err)
	}
	defer rows.Close()

	mappings := make([]*keyword.Mapping, 0)
	for rows.Next() {
		var m keyword.Mapping
		if err := rows.Scan(&m.ID, &m.UserID, &m.Keyword, &m.BucketID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan keyword mapping: %w", err)
		}
		mappings = append(mappings, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate keyword mappings: %w", err)
	}
	return mappings, nil
}

// Delete removes the user's mapping and reports whether one was there
func (r *KeywordRepository) Delete(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM keyword_mappings WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete keyword mapping: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
