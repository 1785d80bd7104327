package bucket

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type classifies what a bucket holds
type Type string

const (
	TypeSaving     Type = "saving"
	TypeInvestment Type = "investment"
	TypeExpense    Type = "expense"
)

// IsValid checks if the bucket type is valid
func (t Type) IsValid() bool {
	switch t {
	case TypeSaving, TypeInvestment, TypeExpense:
		return true
	}
	return false
}

// MaxNameLength is the longest bucket name accepted
const MaxNameLength = 100

// Bucket is a named money container. The amount fields are a projection of
// the bucket's ledger and are never edited directly.
type Bucket struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	UserID            uuid.UUID        `json:"user_id" db:"user_id"`
	AccountID         *uuid.UUID       `json:"account_id" db:"account_id"`
	Name              string           `json:"name" db:"name"`
	Type              Type             `json:"type" db:"type"`
	CategoryID        *uuid.UUID       `json:"bucket_category_id" db:"bucket_category_id"`
	LocationID        *uuid.UUID       `json:"bucket_location_id" db:"bucket_location_id"`
	ContributedAmount decimal.Decimal  `json:"contributed_amount" db:"contributed_amount"`
	MarketValue       decimal.Decimal  `json:"market_value" db:"market_value"`
	TotalUnits        *decimal.Decimal `json:"total_units" db:"total_units"`
	IsHidden          bool             `json:"is_hidden" db:"is_hidden"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}

// ValidateCreate validates bucket fields for creation
func (b *Bucket) ValidateCreate() error {
	if b.UserID == uuid.Nil {
		return ErrInvalidUserID
	}
	return b.validateIdentity()
}

// ValidateUpdate validates bucket fields for update
func (b *Bucket) ValidateUpdate() error {
	if b.ID == uuid.Nil {
		return ErrInvalidBucketID
	}
	return b.validateIdentity()
}

func (b *Bucket) validateIdentity() error {
	if b.Name == "" {
		return ErrMissingBucketName
	}
	if len(b.Name) > MaxNameLength {
		return ErrBucketNameTooLong
	}
	if !b.Type.IsValid() {
		return ErrInvalidBucketType
	}
	return nil
}

// Identity is the set of fields a user may edit on an existing bucket
type Identity struct {
	Name       string
	Type       Type
	AccountID  *uuid.UUID
	CategoryID *uuid.UUID
	LocationID *uuid.UUID
	IsHidden   bool
}

// apply copies the identity onto b, leaving the ledger projection alone
func (i Identity) apply(b *Bucket) {
	b.Name = i.Name
	b.Type = i.Type
	b.AccountID = i.AccountID
	b.CategoryID = i.CategoryID
	b.LocationID = i.LocationID
	b.IsHidden = i.IsHidden
}
