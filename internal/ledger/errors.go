package ledger

import "errors"

// Validation errors
var (
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrMissingBucket       = errors.New("at least one of from_bucket_id or to_bucket_id is required")
	ErrInvalidUnits        = errors.New("units must be greater than zero")
	ErrNegativeMarketValue = errors.New("market value cannot be negative")
	ErrInvalidTradeSide    = errors.New("trade side must be buy or sell")
	ErrInvalidUserID       = errors.New("invalid user ID")
	ErrSameBucket          = errors.New("cash bucket must differ from the traded bucket")
)

// Lookup errors
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrHistoryNotFound     = errors.New("history entry not found")
	ErrNotMarketEntry      = errors.New("history entry is not a market value report")
	ErrBucketNotFound      = errors.New("bucket not found")
	ErrUnauthorizedAccess  = errors.New("unauthorized access")
)

// ValidationError marks a rejected input. No write has happened when it is returned.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Err.Error()
	}
	return "validation failed: " + e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err was raised by input validation.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
