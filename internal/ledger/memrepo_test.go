package ledger

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memRepo is an in-memory Repository. BeginTx snapshots the whole store and
// RollbackTx restores it, which is enough for tests that run one writer at a
// time or serialize through the bucket locker.
type memRepo struct {
	mu sync.Mutex
	memState

	calls    map[string]int
	failures map[string]failure
}

type memState struct {
	transactions map[uuid.UUID]*Transaction
	history      []*BucketValueHistory
	buckets      map[uuid.UUID]*BucketSummary
}

type failure struct {
	after int // calls that succeed before the failure
	err   error
}

type memTxKey struct{}

var errInjected = errors.New("injected failure")

func newMemRepo() *memRepo {
	return &memRepo{
		memState: memState{
			transactions: make(map[uuid.UUID]*Transaction),
			buckets:      make(map[uuid.UUID]*BucketSummary),
		},
		calls:    make(map[string]int),
		failures: make(map[string]failure),
	}
}

func (r *memRepo) addBucket(userID uuid.UUID) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New()
	r.buckets[id] = &BucketSummary{BucketID: id, UserID: userID}
	return id
}

func (r *memRepo) failOn(method string, after int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[method] = failure{after: after, err: errInjected}
}

func (r *memRepo) callCount(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

// seedHistory appends a row directly, bypassing the service
func (r *memRepo) seedHistory(h *BucketValueHistory) *BucketValueHistory {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.SourceType == "" {
		h.SourceType = SourceTransaction
	}
	r.history = append(r.history, cloneHistory(h))
	return h
}

func (r *memRepo) summary(id uuid.UUID) BucketSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.buckets[id]
}

func (r *memRepo) historyOf(bucketID uuid.UUID) []*BucketValueHistory {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedHistory(bucketID, func(*BucketValueHistory) bool { return true })
}

func (r *memRepo) setCachedSummary(s BucketSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets[s.BucketID] = &s
}

// call records a call and returns the injected error, if due. Caller holds mu.
func (r *memRepo) call(method string) error {
	r.calls[method]++
	f, ok := r.failures[method]
	if ok && r.calls[method] > f.after {
		return f.err
	}
	return nil
}

func (r *memRepo) BeginTx(ctx context.Context) (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call("BeginTx"); err != nil {
		return ctx, err
	}
	snap := r.memState.clone()
	return context.WithValue(ctx, memTxKey{}, &snap), nil
}

func (r *memRepo) CommitTx(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := ctx.Value(memTxKey{}).(*memState); !ok {
		return errors.New("no transaction in context")
	}
	return r.call("CommitTx")
}

func (r *memRepo) RollbackTx(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, ok := ctx.Value(memTxKey{}).(*memState)
	if !ok {
		return errors.New("no transaction in context")
	}
	r.calls["RollbackTx"]++
	r.memState = snap.clone()
	return nil
}

func (r *memRepo) CreateTransaction(_ context.Context, tx *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call("CreateTransaction"); err != nil {
		return err
	}
	c := *tx
	r.transactions[tx.ID] = &c
	return nil
}

func (r *memRepo) GetTransaction(_ context.Context, id uuid.UUID) (*Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.transactions[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	c := *tx
	return &c, nil
}

func (r *memRepo) UpdateTransaction(_ context.Context, tx *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.transactions[tx.ID]; !ok {
		return ErrTransactionNotFound
	}
	c := *tx
	r.transactions[tx.ID] = &c
	return nil
}

func (r *memRepo) DeleteTransaction(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call("DeleteTransaction"); err != nil {
		return err
	}
	if _, ok := r.transactions[id]; !ok {
		return ErrTransactionNotFound
	}
	delete(r.transactions, id)
	r.history = slices.DeleteFunc(r.history, func(h *BucketValueHistory) bool {
		return h.SourceID != nil && *h.SourceID == id
	})
	return nil
}

func (r *memRepo) ListTransactions(_ context.Context, filter TransactionFilter) ([]*Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call("ListTransactions"); err != nil {
		return nil, err
	}

	var out []*Transaction
	for _, tx := range r.transactions {
		if tx.UserID != filter.UserID {
			continue
		}
		if filter.BucketID != nil && !slices.Contains(tx.BucketIDs(), *filter.BucketID) {
			continue
		}
		c := *tx
		out = append(out, &c)
	}

	slices.SortFunc(out, func(a, b *Transaction) int {
		if c := b.TransactionDate.Compare(a.TransactionDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})

	if filter.Offset >= len(out) {
		return []*Transaction{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memRepo) ExistsTransaction(_ context.Context, check DuplicateCheck) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tx := range r.transactions {
		if tx.UserID == check.UserID &&
			tx.TransactionDate.Equal(check.TransactionDate) &&
			tx.Amount.Equal(check.Amount) &&
			equalID(tx.FromBucketID, check.FromBucketID) &&
			equalID(tx.ToBucketID, check.ToBucketID) &&
			equalString(tx.Notes, check.Notes) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) GetLastHistoryBefore(_ context.Context, bucketID uuid.UUID, before time.Time) (*BucketValueHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call("GetLastHistoryBefore"); err != nil {
		return nil, err
	}
	rows := r.sortedHistory(bucketID, func(h *BucketValueHistory) bool { return h.RecordedAt.Before(before) })
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[len(rows)-1], nil
}

func (r *memRepo) GetHistoriesAfter(_ context.Context, bucketID uuid.UUID, after time.Time) ([]*BucketValueHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call("GetHistoriesAfter"); err != nil {
		return nil, err
	}
	return r.sortedHistory(bucketID, func(h *BucketValueHistory) bool { return h.RecordedAt.After(after) }), nil
}

func (r *memRepo) GetLatestHistory(_ context.Context, bucketID uuid.UUID) (*BucketValueHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.sortedHistory(bucketID, func(*BucketValueHistory) bool { return true })
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[len(rows)-1], nil
}

func (r *memRepo) GetHistory(_ context.Context, id uuid.UUID) (*BucketValueHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range r.history {
		if h.ID == id {
			return cloneHistory(h), nil
		}
	}
	return nil, ErrHistoryNotFound
}

func (r *memRepo) ListHistory(_ context.Context, bucketID uuid.UUID) ([]*BucketValueHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedHistory(bucketID, func(*BucketValueHistory) bool { return true }), nil
}

func (r *memRepo) CreateHistory(_ context.Context, h *BucketValueHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call("CreateHistory"); err != nil {
		return err
	}
	r.history = append(r.history, cloneHistory(h))
	return nil
}

func (r *memRepo) UpdateHistory(_ context.Context, h *BucketValueHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call("UpdateHistory"); err != nil {
		return err
	}
	for i, existing := range r.history {
		if existing.ID == h.ID {
			r.history[i] = cloneHistory(h)
			return nil
		}
	}
	return ErrHistoryNotFound
}

func (r *memRepo) DeleteHistory(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.history)
	r.history = slices.DeleteFunc(r.history, func(h *BucketValueHistory) bool { return h.ID == id })
	if len(r.history) == before {
		return ErrHistoryNotFound
	}
	return nil
}

func (r *memRepo) LockBuckets(_ context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls["LockBuckets"]++
	for _, id := range ids {
		b, ok := r.buckets[id]
		if !ok || b.UserID != userID {
			return ErrBucketNotFound
		}
	}
	return nil
}

func (r *memRepo) GetBucketSummary(_ context.Context, bucketID uuid.UUID) (*BucketSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[bucketID]
	if !ok {
		return nil, ErrBucketNotFound
	}
	c := *b
	return &c, nil
}

func (r *memRepo) UpdateBucketSummary(_ context.Context, s *BucketSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.call("UpdateBucketSummary"); err != nil {
		return err
	}
	b, ok := r.buckets[s.BucketID]
	if !ok {
		return ErrBucketNotFound
	}
	b.ContributedAmount = s.ContributedAmount
	b.MarketValue = s.MarketValue
	b.TotalUnits = s.TotalUnits
	return nil
}

func (r *memRepo) ListBucketSummaries(_ context.Context) ([]*BucketSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*BucketSummary, 0, len(r.buckets))
	for _, b := range r.buckets {
		c := *b
		out = append(out, &c)
	}
	return out, nil
}

// sortedHistory returns copies of the bucket's matching rows by recorded_at,
// ties kept in insertion order. Caller holds mu.
func (r *memRepo) sortedHistory(bucketID uuid.UUID, keep func(*BucketValueHistory) bool) []*BucketValueHistory {
	out := make([]*BucketValueHistory, 0)
	for _, h := range r.history {
		if h.BucketID == bucketID && keep(h) {
			out = append(out, cloneHistory(h))
		}
	}
	slices.SortStableFunc(out, func(a, b *BucketValueHistory) int {
		return a.RecordedAt.Compare(b.RecordedAt)
	})
	return out
}

func (s memState) clone() memState {
	c := memState{
		transactions: make(map[uuid.UUID]*Transaction, len(s.transactions)),
		history:      make([]*BucketValueHistory, 0, len(s.history)),
		buckets:      make(map[uuid.UUID]*BucketSummary, len(s.buckets)),
	}
	for id, tx := range s.transactions {
		t := *tx
		c.transactions[id] = &t
	}
	for _, h := range s.history {
		c.history = append(c.history, cloneHistory(h))
	}
	for id, b := range s.buckets {
		bb := *b
		c.buckets[id] = &bb
	}
	return c
}

func cloneHistory(h *BucketValueHistory) *BucketValueHistory {
	c := *h
	if h.TotalUnits != nil {
		u := *h.TotalUnits
		c.TotalUnits = &u
	}
	return &c
}

func equalID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// spyCache records invalidated bucket ids
type spyCache struct {
	mu  sync.Mutex
	ids []uuid.UUID
	err error
}

func (c *spyCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, id)
	return c.err
}

func (c *spyCache) invalidated() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.ids)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func ts(day int) time.Time {
	return time.Date(2024, time.January, day, 12, 0, 0, 0, time.UTC)
}
