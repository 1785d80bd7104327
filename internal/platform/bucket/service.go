package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kislikjeka/moneybuckets/pkg/logger"
	"github.com/shopspring/decimal"
)

// Service provides business logic for bucket operations
type Service struct {
	repo     Repository
	accounts AccountChecker
	cache    Cache
	logger   *logger.Logger
}

// NewService creates a new bucket service. cache may be nil.
func NewService(repo Repository, accounts AccountChecker, cache Cache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		repo:     repo,
		accounts: accounts,
		cache:    cache,
		logger:   log.WithField("component", "bucket"),
	}
}

// Create creates an empty bucket for a user
func (s *Service) Create(ctx context.Context, b *Bucket) (*Bucket, error) {
	if err := b.ValidateCreate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := s.checkAccount(ctx, b.AccountID, b.UserID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b.ID = uuid.New()
	b.ContributedAmount = decimal.Zero
	b.MarketValue = decimal.Zero
	b.TotalUnits = nil
	b.CreatedAt = now
	b.UpdatedAt = now

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return b, nil
}

// GetByID retrieves a bucket by ID and validates user ownership.
// Reads go through the cache when one is configured.
func (s *Service) GetByID(ctx context.Context, id, userID uuid.UUID) (*Bucket, error) {
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if b.UserID != userID {
		return nil, ErrUnauthorizedAccess
	}

	return b, nil
}

// List retrieves the user's buckets
func (s *Service) List(ctx context.Context, userID uuid.UUID, includeHidden bool) ([]*Bucket, error) {
	buckets, err := s.repo.GetByUserID(ctx, userID, includeHidden)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	return buckets, nil
}

// Update changes the identity fields of a bucket. Amounts are never touched.
func (s *Service) Update(ctx context.Context, id, userID uuid.UUID, identity Identity) (*Bucket, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if existing.UserID != userID {
		return nil, ErrUnauthorizedAccess
	}

	identity.apply(existing)
	if err := existing.ValidateUpdate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := s.checkAccount(ctx, existing.AccountID, userID); err != nil {
		return nil, err
	}

	existing.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateIdentity(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update bucket: %w", err)
	}

	s.invalidate(ctx, id)
	return existing, nil
}

// Delete deletes a bucket after verifying ownership
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if existing.UserID != userID {
		return ErrUnauthorizedAccess
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete bucket: %w", err)
	}

	s.invalidate(ctx, id)
	return nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Bucket, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("bucket cache read failed", "bucket_id", id, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, b); err != nil {
			s.logger.Warn("bucket cache write failed", "bucket_id", id, "error", err)
		}
	}

	return b, nil
}

func (s *Service) checkAccount(ctx context.Context, accountID *uuid.UUID, userID uuid.UUID) error {
	if accountID == nil {
		return nil
	}

	ok, err := s.accounts.ExistsForUser(ctx, *accountID, userID)
	if err != nil {
		return fmt.Errorf("failed to check account: %w", err)
	}
	if !ok {
		return ErrAccountNotFound
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("bucket cache invalidation failed", "bucket_id", id, "error", err)
	}
}
