package keyword

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kislikjeka/moneybuckets/pkg/logger"
)

const maxKeywordLength = 100

// Service maps transaction descriptions to buckets
type Service struct {
	repo    Repository
	buckets BucketReader
	logger  *logger.Logger
}

// NewService creates a new keyword service
func NewService(repo Repository, buckets BucketReader, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		repo:    repo,
		buckets: buckets,
		logger:  log.WithField("component", "keyword"),
	}
}

// Create maps keyword to a bucket the user owns
func (s *Service) Create(ctx context.Context, userID uuid.UUID, keyword string, bucketID uuid.UUID) (*Mapping, error) {
	kw, err := checkKeyword(keyword)
	if err != nil {
		return nil, err
	}
	if _, err := s.buckets.GetByID(ctx, bucketID, userID); err != nil {
		return nil, err
	}

	m := newMapping(userID, kw, bucketID)
	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, ErrDuplicateKeyword) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create keyword mapping: %w", err)
	}
	return m, nil
}

// List returns the user's mappings
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Mapping, error) {
	mappings, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list keyword mappings: %w", err)
	}
	return mappings, nil
}

// Delete removes a mapping. Deleting a missing mapping is a no-op.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	removed, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete keyword mapping: %w", err)
	}
	if !removed {
		s.logger.Debug("keyword mapping already gone", "mapping_id", id)
	}
	return nil
}

// Suggest returns the bucket whose keyword best matches description, or nil
// when no keyword occurs in it. Longer keywords win; matching ignores case.
func (s *Service) Suggest(ctx context.Context, userID uuid.UUID, description string) (*Mapping, error) {
	mappings, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyword mappings: %w", err)
	}
	return match(mappings, description), nil
}

// Learn remembers that description belongs to bucketID
func (s *Service) Learn(ctx context.Context, userID uuid.UUID, description string, bucketID uuid.UUID) error {
	kw, err := checkKeyword(FromDescription(description))
	if err != nil {
		return err
	}

	if err := s.repo.Upsert(ctx, newMapping(userID, kw, bucketID)); err != nil {
		return fmt.Errorf("failed to learn keyword %q: %w", kw, err)
	}
	return nil
}

func checkKeyword(keyword string) (string, error) {
	kw := Normalize(keyword)
	if kw == "" {
		return "", ErrEmptyKeyword
	}
	if len(kw) > maxKeywordLength {
		return "", ErrKeywordTooLong
	}
	return kw, nil
}

func newMapping(userID uuid.UUID, kw string, bucketID uuid.UUID) *Mapping {
	now := time.Now().UTC()
	return &Mapping{
		ID:        uuid.New(),
		UserID:    userID,
		Keyword:   kw,
		BucketID:  bucketID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
