package bucket

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for bucket data access
type Repository interface {
	// Create creates a new bucket
	Create(ctx context.Context, b *Bucket) error

	// GetByID retrieves a bucket by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Bucket, error)

	// GetByUserID retrieves the user's buckets, hidden ones only when includeHidden is set
	GetByUserID(ctx context.Context, userID uuid.UUID, includeHidden bool) ([]*Bucket, error)

	// UpdateIdentity writes the user-editable fields of a bucket
	UpdateIdentity(ctx context.Context, b *Bucket) error

	// Delete deletes a bucket with its transactions and history
	Delete(ctx context.Context, id uuid.UUID) error
}

// AccountChecker reports whether an account belongs to a user
type AccountChecker interface {
	ExistsForUser(ctx context.Context, accountID, userID uuid.UUID) (bool, error)
}

// Cache holds recently read buckets. A miss returns (nil, nil).
type Cache interface {
	Get(ctx context.Context, id uuid.UUID) (*Bucket, error)
	Set(ctx context.Context, b *Bucket) error
	Invalidate(ctx context.Context, id uuid.UUID) error
}
