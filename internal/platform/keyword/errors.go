package keyword

import "errors"

var (
	ErrEmptyKeyword     = errors.New("keyword is required")
	ErrKeywordTooLong   = errors.New("keyword exceeds 100 characters")
	ErrDuplicateKeyword = errors.New("keyword is already mapped")
)
