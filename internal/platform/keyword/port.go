package keyword

import (
	"context"

	"github.com/google/uuid"

	"github.com/kislikjeka/moneybuckets/internal/platform/bucket"
)

// Repository persists keyword mappings. Keywords are unique per user.
type Repository interface {
	// Create returns ErrDuplicateKeyword when the user already maps the keyword
	Create(ctx context.Context, m *Mapping) error

	// Upsert points an existing keyword at m.BucketID or inserts m
	Upsert(ctx context.Context, m *Mapping) error

	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*Mapping, error)

	// Delete reports whether a mapping owned by userID was removed
	Delete(ctx context.Context, userID, id uuid.UUID) (bool, error)
}

// BucketReader resolves a bucket for its owner. *bucket.Service satisfies it.
type BucketReader interface {
	GetByID(ctx context.Context, id, userID uuid.UUID) (*bucket.Bucket, error)
}
