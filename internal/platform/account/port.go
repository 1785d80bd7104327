package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for account persistence.
// Create and Update return ErrDuplicateName when the user already has an
// account with that name.
type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*Account, error)
	Update(ctx context.Context, a *Account) error
	Delete(ctx context.Context, id uuid.UUID) error
}
