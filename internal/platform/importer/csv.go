package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/moneybuckets/pkg/money"
)

// Accepted date layouts, tried in order
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"02/01/2006",
	"2006/01/02",
}

const (
	colDate        = "date"
	colDescription = "description"
	colAmount      = "amount"
	colBucket      = "bucket_id"
)

// Row is one parsed line of a bank export. A negative Amount is money
// leaving the imported bucket.
type Row struct {
	Line        int
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	// BucketID is the counter bucket when the file names one
	BucketID *uuid.UUID
}

// RowError reports a line that could not be parsed
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

type columns struct {
	date, description, amount, bucket int
}

// ParseCSV reads a header line naming date, description and amount columns
// (bucket_id is optional, order is free) followed by data rows. Header
// problems fail the whole file; bad rows are returned as RowErrors next to
// the good ones.
//
// Rows that parse to the same instant are spread one microsecond apart in
// file order, so each same-day row lands after the one above it in the
// bucket history.
func ParseCSV(r io.Reader) ([]Row, []*RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols, err := parseHeader(header)
	if err != nil {
		return nil, nil, err
	}

	var (
		rows    []Row
		badRows []*RowError
		seen    = make(map[time.Time]int)
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				badRows = append(badRows, &RowError{Line: parseErr.Line, Err: parseErr.Err})
				continue
			}
			return nil, nil, fmt.Errorf("failed to read csv: %w", err)
		}
		if isBlank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)

		row, err := cols.parse(record)
		if err != nil {
			badRows = append(badRows, &RowError{Line: line, Err: err})
			continue
		}
		row.Line = line
		n := seen[row.Date]
		seen[row.Date] = n + 1
		row.Date = row.Date.Add(time.Duration(n) * time.Microsecond)
		rows = append(rows, row)
	}

	return rows, badRows, nil
}

func parseHeader(header []string) (columns, error) {
	cols := columns{date: -1, description: -1, amount: -1, bucket: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case colDate:
			cols.date = i
		case colDescription:
			cols.description = i
		case colAmount:
			cols.amount = i
		case colBucket:
			cols.bucket = i
		}
	}
	if cols.date < 0 || cols.description < 0 || cols.amount < 0 {
		return cols, ErrMissingColumns
	}
	return cols, nil
}

func (c columns) parse(record []string) (Row, error) {
	var row Row

	date, err := parseDate(field(record, c.date))
	if err != nil {
		return row, err
	}
	row.Date = date

	row.Description = strings.TrimSpace(field(record, c.description))

	amount, err := money.Parse(field(record, c.amount))
	if err != nil {
		return row, err
	}
	row.Amount = amount

	if raw := strings.TrimSpace(field(record, c.bucket)); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return row, ErrInvalidBucketID
		}
		row.BucketID = &id
	}

	return row, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
