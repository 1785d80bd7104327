package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/kislikjeka/moneybuckets/pkg/logger"
	"github.com/kislikjeka/moneybuckets/pkg/money"
	"github.com/shopspring/decimal"
)

// Service orchestrates ledger operations: transactions, trades and market
// value reports, each applied to the bucket history in one unit of work.
type Service struct {
	repo       Repository
	cache      SummaryCache
	projector  *Projector
	reconciler *Reconciler
	locks      *bucketLocker
	logger     *logger.Logger
	now        func() time.Time
}

// NewService creates a new ledger service. cache may be nil.
func NewService(repo Repository, cache SummaryCache, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}

	projector := NewProjector(repo)
	s := &Service{
		repo:       repo,
		cache:      cache,
		projector:  projector,
		reconciler: NewReconciler(repo, projector),
		locks:      newBucketLocker(),
		logger:     log.WithField("component", "ledger"),
		now:        time.Now,
	}
	s.reconciler.now = s.clock
	return s
}

// CreateTransaction validates and records a transfer, then writes a history
// entry for each bucket it touches (from side first) and shifts their later
// history.
//
// Steps:
// 1. Validate amount and bucket selection (no write on failure)
// 2. Lock the buckets and open a database transaction
// 3. Insert the transaction row
// 4. Insert the from-side entry and reconcile the later from-side history
// 5. Insert the to-side entry and reconcile the later to-side history
// 6. Commit and drop the cached bucket summaries
func (s *Service) CreateTransaction(ctx context.Context, params CreateTransactionParams) (*Transaction, error) {
	now := s.clock()
	tx := &Transaction{
		ID:              uuid.New(),
		UserID:          params.UserID,
		FromBucketID:    params.FromBucketID,
		ToBucketID:      params.ToBucketID,
		Amount:          params.Amount,
		TransactionDate: s.resolveDate(params.TransactionDate),
		Notes:           params.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := tx.Validate(); err != nil {
		return nil, err
	}

	buckets := tx.BucketIDs()
	err := s.withBuckets(ctx, tx.UserID, buckets, func(txCtx context.Context) error {
		if err := s.repo.CreateTransaction(txCtx, tx); err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}

		if tx.FromBucketID != nil {
			if err := s.applyTransfer(txCtx, *tx.FromBucketID, tx, tx.Amount.Neg()); err != nil {
				return fmt.Errorf("from bucket %s: %w", *tx.FromBucketID, err)
			}
		}
		if tx.ToBucketID != nil {
			if err := s.applyTransfer(txCtx, *tx.ToBucketID, tx, tx.Amount); err != nil {
				return fmt.Errorf("to bucket %s: %w", *tx.ToBucketID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, buckets...)
	s.logger.WithContext(ctx).Info("transaction recorded",
		"transaction_id", tx.ID,
		"amount", tx.Amount.String(),
		"transaction_date", tx.TransactionDate,
	)

	return tx, nil
}

// RecordInvestmentTrade records a unit-tracked buy or sell. The traded bucket's
// entry goes through CalculateBucketUpdate; the optional cash bucket is
// treated as a plain transfer.
func (s *Service) RecordInvestmentTrade(ctx context.Context, params TradeParams) (*Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	now := s.clock()
	tx := &Transaction{
		ID:              uuid.New(),
		UserID:          params.UserID,
		Amount:          params.Amount,
		TransactionDate: s.resolveDate(params.TradeDate),
		Notes:           params.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	bucketID := params.BucketID
	amountDelta := params.Amount
	unitsDelta := params.Units
	if params.Side == TradeBuy {
		tx.FromBucketID = params.CashBucketID
		tx.ToBucketID = &bucketID
	} else {
		tx.FromBucketID = &bucketID
		tx.ToBucketID = params.CashBucketID
		amountDelta = amountDelta.Neg()
		unitsDelta = unitsDelta.Neg()
	}

	buckets := tx.BucketIDs()
	err := s.withBuckets(ctx, tx.UserID, buckets, func(txCtx context.Context) error {
		if err := s.repo.CreateTransaction(txCtx, tx); err != nil {
			return fmt.Errorf("failed to create transaction: %w", err)
		}

		if params.Side == TradeSell {
			if err := s.applyTrade(txCtx, bucketID, tx, amountDelta, unitsDelta); err != nil {
				return fmt.Errorf("traded bucket %s: %w", bucketID, err)
			}
			if params.CashBucketID != nil {
				if err := s.applyTransfer(txCtx, *params.CashBucketID, tx, params.Amount); err != nil {
					return fmt.Errorf("cash bucket %s: %w", *params.CashBucketID, err)
				}
			}
			return nil
		}

		if params.CashBucketID != nil {
			if err := s.applyTransfer(txCtx, *params.CashBucketID, tx, params.Amount.Neg()); err != nil {
				return fmt.Errorf("cash bucket %s: %w", *params.CashBucketID, err)
			}
		}
		if err := s.applyTrade(txCtx, bucketID, tx, amountDelta, unitsDelta); err != nil {
			return fmt.Errorf("traded bucket %s: %w", bucketID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, buckets...)
	s.logger.WithContext(ctx).Info("investment trade recorded",
		"transaction_id", tx.ID,
		"bucket_id", bucketID,
		"side", params.Side,
		"amount", params.Amount.String(),
		"units", params.Units.String(),
	)

	return tx, nil
}

// applyTransfer writes the units-agnostic entry for one side of a transfer.
// Units are carried over from the previous entry.
func (s *Service) applyTransfer(ctx context.Context, bucketID uuid.UUID, tx *Transaction, delta decimal.Decimal) error {
	last, err := s.repo.GetLastHistoryBefore(ctx, bucketID, tx.TransactionDate)
	if err != nil {
		return fmt.Errorf("failed to get previous history: %w", err)
	}

	contributed := decimal.Zero
	market := decimal.Zero
	var units *decimal.Decimal
	if last != nil {
		contributed = last.ContributedAmount
		market = last.MarketValue
		units = last.TotalUnits
	}

	entry := s.newTransactionEntry(bucketID, tx)
	entry.ContributedAmount = money.FloorAtZero(contributed.Add(delta))
	entry.MarketValue = money.FloorAtZero(market.Add(delta))
	entry.TotalUnits = units

	return s.insertAndReconcile(ctx, entry, delta)
}

// applyTrade writes the units-aware entry for the traded bucket
func (s *Service) applyTrade(ctx context.Context, bucketID uuid.UUID, tx *Transaction, amountDelta, unitsDelta decimal.Decimal) error {
	last, err := s.repo.GetLastHistoryBefore(ctx, bucketID, tx.TransactionDate)
	if err != nil {
		return fmt.Errorf("failed to get previous history: %w", err)
	}

	update := CalculateBucketUpdate(last, amountDelta, &unitsDelta)

	entry := s.newTransactionEntry(bucketID, tx)
	entry.ContributedAmount = money.FloorAtZero(update.NewContributedAmount)
	entry.MarketValue = money.FloorAtZero(update.NewMarketAmount)
	entry.TotalUnits = update.NewTotalUnits

	return s.insertAndReconcile(ctx, entry, amountDelta)
}

func (s *Service) newTransactionEntry(bucketID uuid.UUID, tx *Transaction) *BucketValueHistory {
	sourceID := tx.ID
	now := s.clock()
	return &BucketValueHistory{
		ID:         uuid.New(),
		BucketID:   bucketID,
		RecordedAt: tx.TransactionDate,
		SourceType: SourceTransaction,
		SourceID:   &sourceID,
		Notes:      tx.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *Service) insertAndReconcile(ctx context.Context, entry *BucketValueHistory, delta decimal.Decimal) error {
	if err := s.repo.CreateHistory(ctx, entry); err != nil {
		return fmt.Errorf("failed to create history: %w", err)
	}

	adjusted, err := s.reconciler.AdjustForHistoricalTransaction(ctx, entry.BucketID, entry.RecordedAt, delta)
	if err != nil {
		return fmt.Errorf("failed to reconcile history: %w", err)
	}

	if adjusted > 0 {
		s.logger.WithContext(ctx).Debug("later history adjusted",
			"bucket_id", entry.BucketID,
			"recorded_at", entry.RecordedAt,
			"rows", adjusted,
		)
	}
	return nil
}

// UpdateTransaction patches the transaction row only. The bucket history is
// left as it was, even when amount, buckets or date change.
func (s *Service) UpdateTransaction(ctx context.Context, userID, id uuid.UUID, params UpdateTransactionParams) (*Transaction, error) {
	tx, err := s.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if params.FromBucketID.Set {
		tx.FromBucketID = params.FromBucketID.Value
	}
	if params.ToBucketID.Set {
		tx.ToBucketID = params.ToBucketID.Value
	}
	if params.Amount != nil {
		tx.Amount = *params.Amount
	}
	if params.TransactionDate != nil {
		tx.TransactionDate = normalizeTime(*params.TransactionDate)
	}
	if params.Notes != nil {
		tx.Notes = params.Notes
	}
	tx.UpdatedAt = s.clock()

	if err := tx.Validate(); err != nil {
		return nil, err
	}

	var newBuckets []uuid.UUID
	if params.FromBucketID.Set && params.FromBucketID.Value != nil {
		newBuckets = append(newBuckets, *params.FromBucketID.Value)
	}
	if params.ToBucketID.Set && params.ToBucketID.Value != nil {
		newBuckets = append(newBuckets, *params.ToBucketID.Value)
	}

	err = s.withBuckets(ctx, userID, newBuckets, func(txCtx context.Context) error {
		if err := s.repo.UpdateTransaction(txCtx, tx); err != nil {
			return fmt.Errorf("failed to update transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if params.changesMoney() {
		s.logger.WithContext(ctx).Warn("transaction money fields changed without ledger reconciliation",
			"transaction_id", tx.ID,
		)
	}

	return tx, nil
}

// DeleteTransaction removes the transaction row together with the history
// entries sourced from it, then re-projects the touched buckets from what is
// left. Later entries are not re-adjusted.
func (s *Service) DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error {
	tx, err := s.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}

	bucketIDs := tx.BucketIDs()
	err = s.withBuckets(ctx, userID, bucketIDs, func(txCtx context.Context) error {
		if err := s.repo.DeleteTransaction(txCtx, tx.ID); err != nil {
			return fmt.Errorf("failed to delete transaction: %w", err)
		}
		for _, bucketID := range bucketIDs {
			if _, err := s.projector.UpdateBucketFromLatestHistory(txCtx, bucketID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, bucketIDs...)
	s.logger.WithContext(ctx).Info("transaction deleted", "transaction_id", tx.ID)
	return nil
}

// GetTransaction retrieves a transaction owned by userID
func (s *Service) GetTransaction(ctx context.Context, userID, id uuid.UUID) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	if tx.UserID != userID {
		return nil, ErrUnauthorizedAccess
	}

	return tx, nil
}

// GetTransactions lists every transaction of the user, newest first
func (s *Service) GetTransactions(ctx context.Context, userID uuid.UUID) ([]*Transaction, error) {
	txs, err := collect(s.TransactionPages(ctx, TransactionFilter{UserID: userID}, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// GetTransactionsByBucket lists the transactions touching a bucket, newest first
func (s *Service) GetTransactionsByBucket(ctx context.Context, userID, bucketID uuid.UUID) ([]*Transaction, error) {
	if err := s.checkBucketOwnership(ctx, userID, bucketID); err != nil {
		return nil, err
	}

	txs, err := collect(s.TransactionPages(ctx, TransactionFilter{UserID: userID, BucketID: &bucketID}, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket transactions: %w", err)
	}
	return txs, nil
}

// TransactionPages returns a lazy sequence over the matching transactions
func (s *Service) TransactionPages(ctx context.Context, filter TransactionFilter, pageSize int) iter.Seq2[*Transaction, error] {
	return TransactionPages(ctx, s.repo, filter, pageSize)
}

// CheckDuplicateTransaction reports whether a transaction with exactly these
// fields already exists. It never blocks creation.
func (s *Service) CheckDuplicateTransaction(ctx context.Context, check DuplicateCheck) (bool, error) {
	check.TransactionDate = normalizeTime(check.TransactionDate)

	exists, err := s.repo.ExistsTransaction(ctx, check)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate transaction: %w", err)
	}
	return exists, nil
}

// RecordMarketValue inserts a market report. Contributed amount and units are
// carried over from the entry before it; later entries are left untouched.
func (s *Service) RecordMarketValue(ctx context.Context, params MarketValueParams) (*BucketValueHistory, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	now := s.clock()
	entry := &BucketValueHistory{
		ID:          uuid.New(),
		BucketID:    params.BucketID,
		RecordedAt:  s.resolveDate(params.RecordedAt),
		MarketValue: params.MarketValue,
		SourceType:  SourceMarket,
		Notes:       params.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.withBuckets(ctx, params.UserID, []uuid.UUID{params.BucketID}, func(txCtx context.Context) error {
		last, err := s.repo.GetLastHistoryBefore(txCtx, params.BucketID, entry.RecordedAt)
		if err != nil {
			return fmt.Errorf("failed to get previous history: %w", err)
		}

		entry.ContributedAmount = decimal.Zero
		if last != nil {
			entry.ContributedAmount = last.ContributedAmount
			entry.TotalUnits = last.TotalUnits
		}

		if err := s.repo.CreateHistory(txCtx, entry); err != nil {
			return fmt.Errorf("failed to create history: %w", err)
		}

		_, err = s.projector.UpdateBucketFromLatestHistory(txCtx, params.BucketID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, params.BucketID)
	s.logger.WithContext(ctx).Info("market value recorded",
		"bucket_id", params.BucketID,
		"market_value", params.MarketValue.String(),
		"recorded_at", entry.RecordedAt,
	)

	return entry, nil
}

// DeleteMarketValue removes a market report from a bucket and refreshes the
// bucket's cached totals. Transaction entries cannot be deleted this way.
func (s *Service) DeleteMarketValue(ctx context.Context, userID, bucketID, entryID uuid.UUID) error {
	err := s.withBuckets(ctx, userID, []uuid.UUID{bucketID}, func(txCtx context.Context) error {
		entry, err := s.repo.GetHistory(txCtx, entryID)
		if err != nil {
			return err
		}
		if entry.BucketID != bucketID {
			return ErrHistoryNotFound
		}
		if !entry.IsMarket() {
			return ErrNotMarketEntry
		}

		if err := s.repo.DeleteHistory(txCtx, entryID); err != nil {
			return fmt.Errorf("failed to delete history: %w", err)
		}

		_, err = s.projector.UpdateBucketFromLatestHistory(txCtx, bucketID)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, bucketID)
	return nil
}

// GetBucketHistory lists a bucket's history, oldest first
func (s *Service) GetBucketHistory(ctx context.Context, userID, bucketID uuid.UUID) ([]*BucketValueHistory, error) {
	if err := s.checkBucketOwnership(ctx, userID, bucketID); err != nil {
		return nil, err
	}

	history, err := s.repo.ListHistory(ctx, bucketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return history, nil
}

// RepairProjections compares every bucket's cached totals with its latest
// history entry and rewrites the ones that drifted. Returns the number of
// buckets repaired.
func (s *Service) RepairProjections(ctx context.Context) (int, error) {
	summaries, err := s.repo.ListBucketSummaries(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list bucket summaries: %w", err)
	}

	repaired := 0
	for _, cached := range summaries {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}

		fixed := false
		err := s.withBuckets(ctx, cached.UserID, []uuid.UUID{cached.BucketID}, func(txCtx context.Context) error {
			current, err := s.repo.GetBucketSummary(txCtx, cached.BucketID)
			if err != nil {
				return err
			}
			want, err := s.projector.Project(txCtx, cached.BucketID)
			if err != nil {
				return err
			}
			if sameSummary(current, want) {
				return nil
			}

			want.UserID = current.UserID
			if err := s.repo.UpdateBucketSummary(txCtx, want); err != nil {
				return fmt.Errorf("failed to update bucket summary: %w", err)
			}
			fixed = true
			return nil
		})
		if errors.Is(err, ErrBucketNotFound) {
			// Deleted since the listing.
			continue
		}
		if err != nil {
			return repaired, fmt.Errorf("bucket %s: %w", cached.BucketID, err)
		}

		if fixed {
			repaired++
			s.invalidate(ctx, cached.BucketID)
			s.logger.WithContext(ctx).Warn("bucket projection repaired", "bucket_id", cached.BucketID)
		}
	}

	return repaired, nil
}

// withBuckets runs fn inside one database transaction while holding the
// process lock and the row lock of every bucket in ids.
func (s *Service) withBuckets(ctx context.Context, userID uuid.UUID, ids []uuid.UUID, fn func(txCtx context.Context) error) error {
	release := s.locks.lock(ids...)
	defer release()

	txCtx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = s.repo.RollbackTx(txCtx)
		}
	}()

	if len(ids) > 0 {
		if err := s.repo.LockBuckets(txCtx, userID, sortedUnique(ids)); err != nil {
			return err
		}
	}

	if err := fn(txCtx); err != nil {
		return err
	}

	if err := s.repo.CommitTx(txCtx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	committed = true
	return nil
}

func (s *Service) checkBucketOwnership(ctx context.Context, userID, bucketID uuid.UUID) error {
	summary, err := s.repo.GetBucketSummary(ctx, bucketID)
	if err != nil {
		return err
	}
	if summary.UserID != userID {
		return ErrUnauthorizedAccess
	}
	return nil
}

// invalidate drops cached summaries after a commit. Cache errors only cost a
// stale read until the TTL expires, so they are logged.
func (s *Service) invalidate(ctx context.Context, ids ...uuid.UUID) {
	if s.cache == nil {
		return
	}
	for _, id := range ids {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.logger.WithContext(ctx).Warn("failed to invalidate bucket summary cache",
				"bucket_id", id,
				"error", err,
			)
		}
	}
}

func (s *Service) clock() time.Time {
	return normalizeTime(s.now())
}

func (s *Service) resolveDate(t *time.Time) time.Time {
	if t == nil {
		return s.clock()
	}
	return normalizeTime(*t)
}

// normalizeTime matches the precision the store keeps, so timestamps compare
// the same before and after a round trip.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func sameSummary(a, b *BucketSummary) bool {
	return a.ContributedAmount.Equal(b.ContributedAmount) &&
		a.MarketValue.Equal(b.MarketValue) &&
		money.EqualPtr(a.TotalUnits, b.TotalUnits)
}
