package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/moneybuckets/internal/platform/bucket"
)

// BucketRepository implements bucket.Repository using PostgreSQL
type BucketRepository struct {
	txManager
}

// NewBucketRepository creates a new PostgreSQL bucket repository
func NewBucketRepository(pool *pgxpool.Pool) *BucketRepository {
	return &BucketRepository{txManager: txManager{pool: pool}}
}

const bucketColumns = `id, user_id, account_id, name, type, bucket_category_id, bucket_location_id,
	contributed_amount, market_value, total_units, is_hidden, created_at, updated_at`

// Create inserts a bucket
func (r *BucketRepository) Create(ctx context.Context, b *bucket.Bucket) error {
	query := `
		INSERT INTO buckets (` + bucketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.q(ctx).Exec(ctx, query,
		b.ID,
		b.UserID,
		b.AccountID,
		b.Name,
		string(b.Type),
		b.CategoryID,
		b.LocationID,
		b.ContributedAmount,
		b.MarketValue,
		b.TotalUnits,
		b.IsHidden,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// GetByID retrieves a bucket by ID
func (r *BucketRepository) GetByID(ctx context.Context, id uuid.UUID) (*bucket.Bucket, error) {
	query := `SELECT ` + bucketColumns + ` FROM buckets WHERE id = $1`

	b, err := scanBucket(r.q(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, bucket.ErrBucketNotFound
		}
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}
	return b, nil
}

// GetByUserID lists a user's buckets by name
func (r *BucketRepository) GetByUserID(ctx context.Context, userID uuid.UUID, includeHidden bool) ([]*bucket.Bucket, error) {
	query := `
		SELECT ` + bucketColumns + `
		FROM buckets
		WHERE user_id = $1 AND ($2 OR NOT is_hidden)
		ORDER BY name, id
	`

	rows, err := r.q(ctx).Query(ctx, query, userID, includeHidden)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	defer rows.Close()

	buckets := make([]*bucket.Bucket, 0)
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate buckets: %w", err)
	}
	return buckets, nil
}

// UpdateIdentity writes the user-editable fields. The ledger projection
// columns are owned by the ledger and left alone.
func (r *BucketRepository) UpdateIdentity(ctx context.Context, b *bucket.Bucket) error {
	query := `
		UPDATE buckets
		SET name = $2, type = $3, account_id = $4, bucket_category_id = $5,
		    bucket_location_id = $6, is_hidden = $7, updated_at = $8
		WHERE id = $1
	`

	result, err := r.q(ctx).Exec(ctx, query,
		b.ID,
		b.Name,
		string(b.Type),
		b.AccountID,
		b.CategoryID,
		b.LocationID,
		b.IsHidden,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update bucket: %w", err)
	}
	if result.RowsAffected() == 0 {
		return bucket.ErrBucketNotFound
	}
	return nil
}

// Delete removes a bucket together with its transactions and history
func (r *BucketRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.q(ctx).Exec(ctx, `DELETE FROM buckets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bucket: %w", err)
	}
	if result.RowsAffected() == 0 {
		return bucket.ErrBucketNotFound
	}
	return nil
}

func scanBucket(row pgx.Row) (*bucket.Bucket, error) {
	var (
		b                             bucket.Bucket
		typ                           string
		accountID, category, location uuid.NullUUID
		units                         decimal.NullDecimal
	)
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&accountID,
		&b.Name,
		&typ,
		&category,
		&location,
		&b.ContributedAmount,
		&b.MarketValue,
		&units,
		&b.IsHidden,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Type = bucket.Type(typ)
	b.AccountID = nullUUID(accountID)
	b.CategoryID = nullUUID(category)
	b.LocationID = nullUUID(location)
	b.TotalUnits = nullDecimal(units)
	return &b, nil
}
