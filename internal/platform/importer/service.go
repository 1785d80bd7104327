package importer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/moneybuckets/internal/ledger"
	"github.com/kislikjeka/moneybuckets/internal/platform/keyword"
	"github.com/kislikjeka/moneybuckets/pkg/logger"
)

// Ledger is the part of the ledger service the importer writes through
type Ledger interface {
	CreateTransaction(ctx context.Context, params ledger.CreateTransactionParams) (*ledger.Transaction, error)
	CheckDuplicateTransaction(ctx context.Context, check ledger.DuplicateCheck) (bool, error)
}

// Keywords suggests and learns counter buckets from descriptions
type Keywords interface {
	Suggest(ctx context.Context, userID uuid.UUID, description string) (*keyword.Mapping, error)
	Learn(ctx context.Context, userID uuid.UUID, description string, bucketID uuid.UUID) error
}

// Status is the outcome of one imported row
type Status string

const (
	StatusCreated   Status = "created"
	StatusDuplicate Status = "duplicate"
	StatusFailed    Status = "failed"
)

// Request describes one import into BucketID
type Request struct {
	UserID   uuid.UUID
	BucketID uuid.UUID
	// SkipDuplicates leaves rows that look like existing transactions out.
	// Otherwise they are created and only flagged.
	SkipDuplicates bool
}

// RowResult reports what happened to a line of the file
type RowResult struct {
	Line          int        `json:"line"`
	Status        Status     `json:"status"`
	Duplicate     bool       `json:"duplicate"`
	TransactionID *uuid.UUID `json:"transaction_id,omitempty"`
	CounterBucket *uuid.UUID `json:"counter_bucket_id,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Report summarises an import
type Report struct {
	Created    int         `json:"created"`
	Duplicates int         `json:"duplicates"`
	Failed     int         `json:"failed"`
	Rows       []RowResult `json:"rows"`
}

func (r *Report) add(res RowResult) {
	switch res.Status {
	case StatusCreated:
		r.Created++
	case StatusFailed:
		r.Failed++
	}
	if res.Duplicate {
		r.Duplicates++
	}
	r.Rows = append(r.Rows, res)
}

// Service turns bank exports into ledger transactions
type Service struct {
	ledger   Ledger
	keywords Keywords
	logger   *logger.Logger
}

// NewService creates a new import service
func NewService(l Ledger, keywords Keywords, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		ledger:   l,
		keywords: keywords,
		logger:   log.WithField("component", "importer"),
	}
}

// ImportCSV parses r and records one transaction per row. Each row is its
// own ledger write, so a failing row does not undo the rows before it.
func (s *Service) ImportCSV(ctx context.Context, req Request, r io.Reader) (*Report, error) {
	rows, badRows, err := ParseCSV(r)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, bad := range badRows {
		report.add(RowResult{Line: bad.Line, Status: StatusFailed, Error: bad.Err.Error()})
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.add(s.importRow(ctx, req, row))
	}

	s.logger.Info("csv import finished",
		"user_id", req.UserID,
		"bucket_id", req.BucketID,
		"created", report.Created,
		"duplicates", report.Duplicates,
		"failed", report.Failed,
	)
	return report, nil
}

func (s *Service) importRow(ctx context.Context, req Request, row Row) RowResult {
	res := RowResult{Line: row.Line}
	fail := func(err error) RowResult {
		res.Status = StatusFailed
		res.Error = err.Error()
		return res
	}

	if row.Amount.IsZero() {
		return fail(ErrZeroAmount)
	}

	counter, explicit := row.BucketID, row.BucketID != nil
	if !explicit {
		counter = s.suggest(ctx, req.UserID, row.Description)
	}
	if counter != nil && *counter == req.BucketID {
		counter = nil
	}
	res.CounterBucket = counter

	params := transferFor(req, row, counter)

	dup, err := s.ledger.CheckDuplicateTransaction(ctx, ledger.DuplicateCheck{
		UserID:          params.UserID,
		TransactionDate: *params.TransactionDate,
		Amount:          params.Amount,
		FromBucketID:    params.FromBucketID,
		ToBucketID:      params.ToBucketID,
		Notes:           params.Notes,
	})
	if err != nil {
		return fail(fmt.Errorf("duplicate check failed: %w", err))
	}
	res.Duplicate = dup
	if dup && req.SkipDuplicates {
		res.Status = StatusDuplicate
		return res
	}

	tx, err := s.ledger.CreateTransaction(ctx, params)
	if err != nil {
		return fail(err)
	}
	res.Status = StatusCreated
	res.TransactionID = &tx.ID

	if explicit && row.Description != "" {
		s.learn(ctx, req.UserID, row.Description, *counter)
	}
	return res
}

// transferFor builds the ledger transfer for a row. Positive amounts flow
// into the imported bucket, negative ones out of it.
func transferFor(req Request, row Row, counter *uuid.UUID) ledger.CreateTransactionParams {
	bucketID := req.BucketID
	date := row.Date

	params := ledger.CreateTransactionParams{
		UserID:          req.UserID,
		Amount:          row.Amount.Abs(),
		TransactionDate: &date,
	}
	if row.Description != "" {
		notes := row.Description
		params.Notes = &notes
	}

	if row.Amount.GreaterThan(decimal.Zero) {
		params.ToBucketID = &bucketID
		params.FromBucketID = counter
	} else {
		params.FromBucketID = &bucketID
		params.ToBucketID = counter
	}
	return params
}

func (s *Service) suggest(ctx context.Context, userID uuid.UUID, description string) *uuid.UUID {
	if description == "" {
		return nil
	}
	m, err := s.keywords.Suggest(ctx, userID, description)
	if err != nil {
		s.logger.Warn("keyword suggestion failed", "error", err)
		return nil
	}
	if m == nil {
		return nil
	}
	id := m.BucketID
	return &id
}

// learn never fails the import
func (s *Service) learn(ctx context.Context, userID uuid.UUID, description string, bucketID uuid.UUID) {
	err := s.keywords.Learn(ctx, userID, description, bucketID)
	if err == nil {
		return
	}
	if errors.Is(err, keyword.ErrEmptyKeyword) {
		s.logger.Debug("nothing to learn from description", "description", description)
		return
	}
	s.logger.Warn("keyword learning failed", "bucket_id", bucketID, "error", err)
}
