package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service manages a user's accounts
type Service struct {
	repo Repository
}

// NewService creates a new account service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new account
func (s *Service) Create(ctx context.Context, a *Account) (*Account, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	a.ID = uuid.New()
	a.CreatedAt = now
	a.UpdatedAt = now

	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return a, nil
}

// GetByID returns the account when it belongs to userID
func (s *Service) GetByID(ctx context.Context, id, userID uuid.UUID) (*Account, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrUnauthorizedAccess
	}
	return a, nil
}

// List returns all accounts of a user
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Account, error) {
	accounts, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// Update renames an account or changes its institution
func (s *Service) Update(ctx context.Context, id, userID uuid.UUID, name string, institution *string) (*Account, error) {
	a, err := s.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	a.Name = name
	a.Institution = institution
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	a.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, a); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return a, nil
}

// Delete removes an account. Its buckets are kept and lose the link.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.GetByID(ctx, id, userID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}
