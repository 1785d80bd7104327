package account

import "errors"

var (
	ErrInvalidUserID = errors.New("invalid user ID")
	ErrMissingName   = errors.New("account name is required")
	ErrNameTooLong   = errors.New("account name exceeds 100 characters")

	ErrAccountNotFound    = errors.New("account not found")
	ErrDuplicateName      = errors.New("account with this name already exists")
	ErrUnauthorizedAccess = errors.New("unauthorized account access")
)
