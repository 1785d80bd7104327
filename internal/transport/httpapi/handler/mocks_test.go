package handler

import (
	"context"
	"io"
	"iter"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/kislikjeka/moneybuckets/internal/ledger"
	"github.com/kislikjeka/moneybuckets/internal/platform/bucket"
	"github.com/kislikjeka/moneybuckets/internal/platform/importer"
	"github.com/kislikjeka/moneybuckets/internal/platform/keyword"
	"github.com/kislikjeka/moneybuckets/internal/transport/httpapi/middleware"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) CreateTransaction(ctx context.Context, params ledger.CreateTransactionParams) (*ledger.Transaction, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedger) GetTransaction(ctx context.Context, userID, id uuid.UUID) (*ledger.Transaction, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedger) UpdateTransaction(ctx context.Context, userID, id uuid.UUID, params ledger.UpdateTransactionParams) (*ledger.Transaction, error) {
	args := m.Called(ctx, userID, id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockLedger) DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockLedger) TransactionPages(ctx context.Context, filter ledger.TransactionFilter, pageSize int) iter.Seq2[*ledger.Transaction, error] {
	args := m.Called(ctx, filter, pageSize)
	txs, _ := args.Get(0).([]*ledger.Transaction)
	err := args.Error(1)
	return func(yield func(*ledger.Transaction, error) bool) {
		for _, tx := range txs {
			if !yield(tx, nil) {
				return
			}
		}
		if err != nil {
			yield(nil, err)
		}
	}
}

func (m *MockLedger) CheckDuplicateTransaction(ctx context.Context, check ledger.DuplicateCheck) (bool, error) {
	args := m.Called(ctx, check)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) GetBucketHistory(ctx context.Context, userID, bucketID uuid.UUID) ([]*ledger.BucketValueHistory, error) {
	args := m.Called(ctx, userID, bucketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.BucketValueHistory), args.Error(1)
}

func (m *MockLedger) RecordMarketValue(ctx context.Context, params ledger.MarketValueParams) (*ledger.BucketValueHistory, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.BucketValueHistory), args.Error(1)
}

func (m *MockLedger) DeleteMarketValue(ctx context.Context, userID, bucketID, entryID uuid.UUID) error {
	return m.Called(ctx, userID, bucketID, entryID).Error(0)
}

func (m *MockLedger) GetTransactionsByBucket(ctx context.Context, userID, bucketID uuid.UUID) ([]*ledger.Transaction, error) {
	args := m.Called(ctx, userID, bucketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Transaction), args.Error(1)
}

func (m *MockLedger) RecordInvestmentTrade(ctx context.Context, params ledger.TradeParams) (*ledger.Transaction, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

type MockBuckets struct {
	mock.Mock
}

func (m *MockBuckets) Create(ctx context.Context, b *bucket.Bucket) (*bucket.Bucket, error) {
	args := m.Called(ctx, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bucket.Bucket), args.Error(1)
}

func (m *MockBuckets) GetByID(ctx context.Context, id, userID uuid.UUID) (*bucket.Bucket, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bucket.Bucket), args.Error(1)
}

func (m *MockBuckets) List(ctx context.Context, userID uuid.UUID, includeHidden bool) ([]*bucket.Bucket, error) {
	args := m.Called(ctx, userID, includeHidden)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bucket.Bucket), args.Error(1)
}

func (m *MockBuckets) Update(ctx context.Context, id, userID uuid.UUID, identity bucket.Identity) (*bucket.Bucket, error) {
	args := m.Called(ctx, id, userID, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bucket.Bucket), args.Error(1)
}

func (m *MockBuckets) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return m.Called(ctx, id, userID).Error(0)
}

type MockKeywords struct {
	mock.Mock
}

func (m *MockKeywords) Create(ctx context.Context, userID uuid.UUID, kw string, bucketID uuid.UUID) (*keyword.Mapping, error) {
	args := m.Called(ctx, userID, kw, bucketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keyword.Mapping), args.Error(1)
}

func (m *MockKeywords) List(ctx context.Context, userID uuid.UUID) ([]*keyword.Mapping, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*keyword.Mapping), args.Error(1)
}

func (m *MockKeywords) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockKeywords) Suggest(ctx context.Context, userID uuid.UUID, description string) (*keyword.Mapping, error) {
	args := m.Called(ctx, userID, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*keyword.Mapping), args.Error(1)
}

type MockImporter struct {
	mock.Mock
	body string
}

func (m *MockImporter) ImportCSV(ctx context.Context, req importer.Request, r io.Reader) (*importer.Report, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.body = string(b)

	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*importer.Report), args.Error(1)
}

// asUser authenticates r and sets chi URL params
func asUser(r *http.Request, userID uuid.UUID, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(middleware.WithUserID(ctx, userID))
}

func ptr[T any](v T) *T {
	return &v
}
