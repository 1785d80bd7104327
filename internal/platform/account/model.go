package account

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxNameLength is the longest account name accepted
const MaxNameLength = 100

// Account is a named place that holds buckets, such as a bank or a broker
type Account struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Institution *string   `json:"institution,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks the user-editable fields
func (a *Account) Validate() error {
	if a.UserID == uuid.Nil {
		return ErrInvalidUserID
	}
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return ErrMissingName
	}
	if len(a.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}
