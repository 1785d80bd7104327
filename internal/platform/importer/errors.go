package importer

import "errors"

var (
	ErrEmptyFile       = errors.New("csv file is empty")
	ErrMissingColumns  = errors.New("csv header must name date, description and amount columns")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidBucketID = errors.New("invalid bucket_id")
	ErrZeroAmount      = errors.New("amount is zero")
)
