package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/moneybuckets/internal/ledger"
)

// LedgerRepository implements ledger.Repository using PostgreSQL
type LedgerRepository struct {
	txManager
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{txManager: txManager{pool: pool}}
}

const transactionColumns = `id, user_id, from_bucket_id, to_bucket_id, amount, transaction_date, notes, created_at, updated_at`

const historyColumns = `id, bucket_id, recorded_at, contributed_amount, market_value, total_units, source_type, source_id, notes, created_at, updated_at`

// Transaction operations

// CreateTransaction inserts a transaction row
func (r *LedgerRepository) CreateTransaction(ctx context.Context, tx *ledger.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q(ctx).Exec(ctx, query,
		tx.ID,
		tx.UserID,
		tx.FromBucketID,
		tx.ToBucketID,
		tx.Amount,
		tx.TransactionDate,
		tx.Notes,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetTransaction retrieves a transaction by ID
func (r *LedgerRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.q(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// UpdateTransaction rewrites the mutable fields of a transaction row
func (r *LedgerRepository) UpdateTransaction(ctx context.Context, tx *ledger.Transaction) error {
	query := `
		UPDATE transactions
		SET from_bucket_id = $2, to_bucket_id = $3, amount = $4,
		    transaction_date = $5, notes = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.q(ctx).Exec(ctx, query,
		tx.ID,
		tx.FromBucketID,
		tx.ToBucketID,
		tx.Amount,
		tx.TransactionDate,
		tx.Notes,
		tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ledger.ErrTransactionNotFound
	}
	return nil
}

// DeleteTransaction removes a transaction. History rows sourced from it are
// removed by the foreign key cascade.
func (r *LedgerRepository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	result, err := r.q(ctx).Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ledger.ErrTransactionNotFound
	}
	return nil
}

// ListTransactions returns a user's transactions, newest first
func (r *LedgerRepository) ListTransactions(ctx context.Context, filter ledger.TransactionFilter) ([]*ledger.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		  AND ($2::uuid IS NULL OR from_bucket_id = $2::uuid OR to_bucket_id = $2::uuid)
		ORDER BY transaction_date DESC, id
		LIMIT $3 OFFSET $4
	`

	var limit *int
	if filter.Limit > 0 {
		limit = &filter.Limit
	}

	rows, err := r.q(ctx).Query(ctx, query, filter.UserID, filter.BucketID, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]*ledger.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

// ExistsTransaction reports whether a transaction with exactly these fields exists
func (r *LedgerRepository) ExistsTransaction(ctx context.Context, check ledger.DuplicateCheck) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM transactions
			WHERE user_id = $1
			  AND transaction_date = $2
			  AND amount = $3
			  AND from_bucket_id IS NOT DISTINCT FROM $4::uuid
			  AND to_bucket_id IS NOT DISTINCT FROM $5::uuid
			  AND notes IS NOT DISTINCT FROM $6::text
		)
	`

	var exists bool
	err := r.q(ctx).QueryRow(ctx, query,
		check.UserID,
		check.TransactionDate,
		check.Amount,
		check.FromBucketID,
		check.ToBucketID,
		check.Notes,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate transaction: %w", err)
	}
	return exists, nil
}

// History operations

// GetLastHistoryBefore returns the newest entry strictly before the given time
func (r *LedgerRepository) GetLastHistoryBefore(ctx context.Context, bucketID uuid.UUID, before time.Time) (*ledger.BucketValueHistory, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM bucket_value_history
		WHERE bucket_id = $1 AND recorded_at < $2
		ORDER BY recorded_at DESC, seq DESC
		LIMIT 1
	`
	return r.optionalHistory(ctx, query, bucketID, before)
}

// GetHistoriesAfter returns entries strictly after the given time, oldest first
func (r *LedgerRepository) GetHistoriesAfter(ctx context.Context, bucketID uuid.UUID, after time.Time) ([]*ledger.BucketValueHistory, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM bucket_value_history
		WHERE bucket_id = $1 AND recorded_at > $2
		ORDER BY recorded_at, seq
	`
	return r.queryHistory(ctx, query, bucketID, after)
}

// GetLatestHistory returns the bucket's newest entry
func (r *LedgerRepository) GetLatestHistory(ctx context.Context, bucketID uuid.UUID) (*ledger.BucketValueHistory, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM bucket_value_history
		WHERE bucket_id = $1
		ORDER BY recorded_at DESC, seq DESC
		LIMIT 1
	`
	return r.optionalHistory(ctx, query, bucketID)
}

// GetHistory retrieves a history entry by ID
func (r *LedgerRepository) GetHistory(ctx context.Context, id uuid.UUID) (*ledger.BucketValueHistory, error) {
	query := `SELECT ` + historyColumns + ` FROM bucket_value_history WHERE id = $1`

	h, err := scanHistory(r.q(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrHistoryNotFound
		}
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}
	return h, nil
}

// ListHistory returns the bucket's whole ledger, oldest first
func (r *LedgerRepository) ListHistory(ctx context.Context, bucketID uuid.UUID) ([]*ledger.BucketValueHistory, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM bucket_value_history
		WHERE bucket_id = $1
		ORDER BY recorded_at, seq
	`
	return r.queryHistory(ctx, query, bucketID)
}

// CreateHistory inserts a history entry. seq is assigned by the database.
func (r *LedgerRepository) CreateHistory(ctx context.Context, h *ledger.BucketValueHistory) error {
	query := `
		INSERT INTO bucket_value_history (` + historyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q(ctx).Exec(ctx, query,
		h.ID,
		h.BucketID,
		h.RecordedAt,
		h.ContributedAmount,
		h.MarketValue,
		h.TotalUnits,
		string(h.SourceType),
		h.SourceID,
		h.Notes,
		h.CreatedAt,
		h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create history entry: %w", err)
	}
	return nil
}

// UpdateHistory rewrites the amounts of an existing entry
func (r *LedgerRepository) UpdateHistory(ctx context.Context, h *ledger.BucketValueHistory) error {
	query := `
		UPDATE bucket_value_history
		SET contributed_amount = $2, market_value = $3, total_units = $4,
		    notes = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.q(ctx).Exec(ctx, query,
		h.ID,
		h.ContributedAmount,
		h.MarketValue,
		h.TotalUnits,
		h.Notes,
		h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update history entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ledger.ErrHistoryNotFound
	}
	return nil
}

// DeleteHistory removes a history entry
func (r *LedgerRepository) DeleteHistory(ctx context.Context, id uuid.UUID) error {
	result, err := r.q(ctx).Exec(ctx, `DELETE FROM bucket_value_history WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ledger.ErrHistoryNotFound
	}
	return nil
}

// Bucket projection operations

// LockBuckets takes FOR UPDATE locks on the user's buckets, in id order
func (r *LedgerRepository) LockBuckets(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		SELECT id FROM buckets
		WHERE id = ANY($1::uuid[]) AND user_id = $2
		ORDER BY id
		FOR UPDATE
	`

	rows, err := r.q(ctx).Query(ctx, query, uuidStrings(ids), userID)
	if err != nil {
		return fmt.Errorf("failed to lock buckets: %w", err)
	}
	defer rows.Close()

	locked := make(map[uuid.UUID]struct{}, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan bucket id: %w", err)
		}
		locked[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to lock buckets: %w", err)
	}

	for _, id := range ids {
		if _, ok := locked[id]; !ok {
			return ledger.ErrBucketNotFound
		}
	}
	return nil
}

// GetBucketSummary reads a bucket's cached projection
func (r *LedgerRepository) GetBucketSummary(ctx context.Context, bucketID uuid.UUID) (*ledger.BucketSummary, error) {
	query := `
		SELECT id, user_id, contributed_amount, market_value, total_units
		FROM buckets
		WHERE id = $1
	`

	s, err := scanSummary(r.q(ctx).QueryRow(ctx, query, bucketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrBucketNotFound
		}
		return nil, fmt.Errorf("failed to get bucket summary: %w", err)
	}
	return s, nil
}

// UpdateBucketSummary writes a bucket's cached projection
func (r *LedgerRepository) UpdateBucketSummary(ctx context.Context, s *ledger.BucketSummary) error {
	query := `
		UPDATE buckets
		SET contributed_amount = $2, market_value = $3, total_units = $4, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.q(ctx).Exec(ctx, query, s.BucketID, s.ContributedAmount, s.MarketValue, s.TotalUnits)
	if err != nil {
		return fmt.Errorf("failed to update bucket summary: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ledger.ErrBucketNotFound
	}
	return nil
}

// ListBucketSummaries returns every bucket's cached projection
func (r *LedgerRepository) ListBucketSummaries(ctx context.Context) ([]*ledger.BucketSummary, error) {
	query := `
		SELECT id, user_id, contributed_amount, market_value, total_units
		FROM buckets
		ORDER BY id
	`

	rows, err := r.q(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]*ledger.BucketSummary, 0)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bucket summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bucket summaries: %w", err)
	}
	return summaries, nil
}

func (r *LedgerRepository) optionalHistory(ctx context.Context, query string, args ...any) (*ledger.BucketValueHistory, error) {
	h, err := scanHistory(r.q(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}
	return h, nil
}

func (r *LedgerRepository) queryHistory(ctx context.Context, query string, args ...any) ([]*ledger.BucketValueHistory, error) {
	rows, err := r.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]*ledger.BucketValueHistory, 0)
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return entries, nil
}

func scanTransaction(row pgx.Row) (*ledger.Transaction, error) {
	var (
		tx       ledger.Transaction
		from, to uuid.NullUUID
	)
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&from,
		&to,
		&tx.Amount,
		&tx.TransactionDate,
		&tx.Notes,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.FromBucketID = nullUUID(from)
	tx.ToBucketID = nullUUID(to)
	tx.TransactionDate = tx.TransactionDate.UTC()
	return &tx, nil
}

func scanHistory(row pgx.Row) (*ledger.BucketValueHistory, error) {
	var (
		h          ledger.BucketValueHistory
		units      decimal.NullDecimal
		sourceType string
		sourceID   uuid.NullUUID
	)
	err := row.Scan(
		&h.ID,
		&h.BucketID,
		&h.RecordedAt,
		&h.ContributedAmount,
		&h.MarketValue,
		&units,
		&sourceType,
		&sourceID,
		&h.Notes,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	h.RecordedAt = h.RecordedAt.UTC()
	h.TotalUnits = nullDecimal(units)
	h.SourceType = ledger.SourceType(sourceType)
	h.SourceID = nullUUID(sourceID)
	return &h, nil
}

func scanSummary(row pgx.Row) (*ledger.BucketSummary, error) {
	var (
		s     ledger.BucketSummary
		units decimal.NullDecimal
	)
	if err := row.Scan(&s.BucketID, &s.UserID, &s.ContributedAmount, &s.MarketValue, &units); err != nil {
		return nil, err
	}
	s.TotalUnits = nullDecimal(units)
	return &s, nil
}

func nullUUID(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func nullDecimal(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.Decimal
	return &d
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
