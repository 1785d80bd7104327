package bucket

import "errors"

var (
	// Validation errors
	ErrInvalidUserID     = errors.New("invalid user ID")
	ErrInvalidBucketID   = errors.New("invalid bucket ID")
	ErrMissingBucketName = errors.New("bucket name is required")
	ErrBucketNameTooLong = errors.New("bucket name exceeds 100 characters")
	ErrInvalidBucketType = errors.New("bucket type must be saving, investment or expense")
	ErrAccountNotFound   = errors.New("account not found")

	// Repository errors
	ErrBucketNotFound     = errors.New("bucket not found")
	ErrUnauthorizedAccess = errors.New("unauthorized bucket access")
)
