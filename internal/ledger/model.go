package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SourceType tells what produced a history entry
type SourceType string

const (
	SourceTransaction SourceType = "transaction" // Money moved by a transaction
	SourceMarket      SourceType = "market"      // External valuation report
)

// IsValid checks if the source type is valid
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTransaction, SourceMarket:
		return true
	}
	return false
}

// BucketValueHistory is one snapshot in a bucket's ledger. Contributed and market
// values are running balances as of RecordedAt.
type BucketValueHistory struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	BucketID          uuid.UUID        `json:"bucket_id" db:"bucket_id"`
	RecordedAt        time.Time        `json:"recorded_at" db:"recorded_at"`
	ContributedAmount decimal.Decimal  `json:"contributed_amount" db:"contributed_amount"`
	MarketValue       decimal.Decimal  `json:"market_value" db:"market_value"`
	TotalUnits        *decimal.Decimal `json:"total_units" db:"total_units"`
	SourceType        SourceType       `json:"source_type" db:"source_type"`
	SourceID          *uuid.UUID       `json:"source_id,omitempty" db:"source_id"`
	Notes             *string          `json:"notes,omitempty" db:"notes"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}

// IsMarket reports whether the entry is an external valuation report
func (h *BucketValueHistory) IsMarket() bool {
	return h.SourceType == SourceMarket
}

// Transaction moves Amount from one bucket to another. Direction is encoded by
// which bucket is set, never by the sign of Amount.
type Transaction struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	FromBucketID    *uuid.UUID      `json:"from_bucket_id" db:"from_bucket_id"`
	ToBucketID      *uuid.UUID      `json:"to_bucket_id" db:"to_bucket_id"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	TransactionDate time.Time       `json:"transaction_date" db:"transaction_date"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// BucketIDs returns the non-nil bucket ids touched by the transaction
func (t *Transaction) BucketIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, 2)
	if t.FromBucketID != nil {
		ids = append(ids, *t.FromBucketID)
	}
	if t.ToBucketID != nil {
		ids = append(ids, *t.ToBucketID)
	}
	return ids
}

// Validate checks the transaction fields
func (t *Transaction) Validate() error {
	if t.UserID == uuid.Nil {
		return invalid("user_id", ErrInvalidUserID)
	}
	if !t.Amount.IsPositive() {
		return invalid("amount", ErrInvalidAmount)
	}
	if t.FromBucketID == nil && t.ToBucketID == nil {
		return invalid("", ErrMissingBucket)
	}
	return nil
}

// CreateTransactionParams is the input of CreateTransaction. A nil
// TransactionDate means now.
type CreateTransactionParams struct {
	UserID          uuid.UUID
	FromBucketID    *uuid.UUID
	ToBucketID      *uuid.UUID
	Amount          decimal.Decimal
	TransactionDate *time.Time
	Notes           *string
}

// OptionalID distinguishes "leave unchanged" (Set=false) from "set to Value",
// where Value may be nil to clear the field.
type OptionalID struct {
	Set   bool
	Value *uuid.UUID
}

// UpdateTransactionParams patches a transaction row. Nil pointers and unset
// OptionalIDs leave the field unchanged.
type UpdateTransactionParams struct {
	FromBucketID    OptionalID
	ToBucketID      OptionalID
	Amount          *decimal.Decimal
	TransactionDate *time.Time
	Notes           *string
}

// changesMoney reports whether the patch touches fields the ledger was derived from
func (p UpdateTransactionParams) changesMoney() bool {
	return p.FromBucketID.Set || p.ToBucketID.Set || p.Amount != nil || p.TransactionDate != nil
}

// DuplicateCheck describes a candidate transaction. Nil fields match only nil
// columns.
type DuplicateCheck struct {
	UserID          uuid.UUID
	TransactionDate time.Time
	Amount          decimal.Decimal
	FromBucketID    *uuid.UUID
	ToBucketID      *uuid.UUID
	Notes           *string
}

// TransactionFilter selects a page of transactions, newest first
type TransactionFilter struct {
	UserID   uuid.UUID
	BucketID *uuid.UUID
	Limit    int
	Offset   int
}

// BucketUpdate is the next snapshot computed by CalculateBucketUpdate
type BucketUpdate struct {
	NewContributedAmount decimal.Decimal
	NewMarketAmount      decimal.Decimal
	NewTotalUnits        *decimal.Decimal
}

// BucketSummary is the cached projection stored on the bucket row
type BucketSummary struct {
	BucketID          uuid.UUID        `json:"bucket_id"`
	UserID            uuid.UUID        `json:"user_id"`
	ContributedAmount decimal.Decimal  `json:"contributed_amount"`
	MarketValue       decimal.Decimal  `json:"market_value"`
	TotalUnits        *decimal.Decimal `json:"total_units"`
}

// TradeSide is the direction of an investment trade
type TradeSide string

const (
	TradeBuy  TradeSide = "buy"
	TradeSell TradeSide = "sell"
)

// IsValid checks if the trade side is valid
func (s TradeSide) IsValid() bool {
	return s == TradeBuy || s == TradeSell
}

// TradeParams records a unit-tracked buy or sell on an investment bucket.
// CashBucketID is the optional counter bucket the money comes from or goes to.
type TradeParams struct {
	UserID       uuid.UUID
	BucketID     uuid.UUID
	CashBucketID *uuid.UUID
	Side         TradeSide
	Amount       decimal.Decimal
	Units        decimal.Decimal
	TradeDate    *time.Time
	Notes        *string
}

// Validate checks the trade input
func (p *TradeParams) Validate() error {
	if p.UserID == uuid.Nil {
		return invalid("user_id", ErrInvalidUserID)
	}
	if !p.Side.IsValid() {
		return invalid("side", ErrInvalidTradeSide)
	}
	if !p.Amount.IsPositive() {
		return invalid("amount", ErrInvalidAmount)
	}
	if !p.Units.IsPositive() {
		return invalid("units", ErrInvalidUnits)
	}
	if p.CashBucketID != nil && *p.CashBucketID == p.BucketID {
		return invalid("cash_bucket_id", ErrSameBucket)
	}
	return nil
}

// MarketValueParams reports a bucket's valuation at a point in time
type MarketValueParams struct {
	UserID      uuid.UUID
	BucketID    uuid.UUID
	MarketValue decimal.Decimal
	RecordedAt  *time.Time
	Notes       *string
}

// Validate checks the market value input
func (p *MarketValueParams) Validate() error {
	if p.UserID == uuid.Nil {
		return invalid("user_id", ErrInvalidUserID)
	}
	if p.MarketValue.IsNegative() {
		return invalid("market_value", ErrNegativeMarketValue)
	}
	return nil
}
