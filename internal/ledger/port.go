package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TransactionRepository persists transaction rows
type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	// DeleteTransaction removes the row; history entries sourced from it go with it.
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*Transaction, error)
	ExistsTransaction(ctx context.Context, check DuplicateCheck) (bool, error)
}

// HistoryRepository persists bucket value history entries
type HistoryRepository interface {
	// GetLastHistoryBefore returns the latest entry with recorded_at < before, or nil.
	GetLastHistoryBefore(ctx context.Context, bucketID uuid.UUID, before time.Time) (*BucketValueHistory, error)
	// GetHistoriesAfter returns entries with recorded_at > after, oldest first.
	GetHistoriesAfter(ctx context.Context, bucketID uuid.UUID, after time.Time) ([]*BucketValueHistory, error)
	// GetLatestHistory returns the newest entry by recorded_at then insertion order, or nil.
	GetLatestHistory(ctx context.Context, bucketID uuid.UUID) (*BucketValueHistory, error)
	GetHistory(ctx context.Context, id uuid.UUID) (*BucketValueHistory, error)
	ListHistory(ctx context.Context, bucketID uuid.UUID) ([]*BucketValueHistory, error)
	CreateHistory(ctx context.Context, h *BucketValueHistory) error
	UpdateHistory(ctx context.Context, h *BucketValueHistory) error
	DeleteHistory(ctx context.Context, id uuid.UUID) error
}

// BucketRepository is the ledger's view of the bucket table
type BucketRepository interface {
	// LockBuckets takes row locks on the user's buckets for the current
	// database transaction. Returns ErrBucketNotFound if any id is missing
	// or owned by another user.
	LockBuckets(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error
	GetBucketSummary(ctx context.Context, bucketID uuid.UUID) (*BucketSummary, error)
	UpdateBucketSummary(ctx context.Context, summary *BucketSummary) error
	ListBucketSummaries(ctx context.Context) ([]*BucketSummary, error)
}

// Repository defines the interface for ledger persistence operations
type Repository interface {
	TransactionRepository
	HistoryRepository
	BucketRepository

	// Transaction management
	BeginTx(ctx context.Context) (context.Context, error)
	CommitTx(ctx context.Context) error
	RollbackTx(ctx context.Context) error
}

// SummaryCache is notified when a bucket's projection changes
type SummaryCache interface {
	Invalidate(ctx context.Context, bucketID uuid.UUID) error
}
