package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kislikjeka/moneybuckets/pkg/money"
	"github.com/shopspring/decimal"
)

// Reconciler shifts the history recorded after a back-dated event
type Reconciler struct {
	repo      HistoryRepository
	projector *Projector
	now       func() time.Time
}

// NewReconciler creates a new historical reconciler
func NewReconciler(repo HistoryRepository, projector *Projector) *Reconciler {
	return &Reconciler{repo: repo, projector: projector, now: time.Now}
}

// AdjustForHistoricalTransaction applies amountChange to every entry of the
// bucket recorded strictly after transactionDate, oldest first, then refreshes
// the bucket's cached totals.
//
// Contributed amounts are always shifted. Market values are shifted only up to
// the first market report: that report and everything after it keep their
// market value. Both figures are floored at zero.
//
// Returns the number of entries rewritten.
func (r *Reconciler) AdjustForHistoricalTransaction(
	ctx context.Context,
	bucketID uuid.UUID,
	transactionDate time.Time,
	amountChange decimal.Decimal,
) (int, error) {
	rows, err := r.repo.GetHistoriesAfter(ctx, bucketID, transactionDate)
	if err != nil {
		return 0, fmt.Errorf("failed to get later history: %w", err)
	}

	updatedAt := normalizeTime(r.now())
	stopAdjustingMarketValue := false
	for _, row := range rows {
		row.ContributedAmount = money.FloorAtZero(row.ContributedAmount.Add(amountChange))

		if row.IsMarket() {
			stopAdjustingMarketValue = true
		}
		if !stopAdjustingMarketValue {
			row.MarketValue = money.FloorAtZero(row.MarketValue.Add(amountChange))
		}
		row.UpdatedAt = updatedAt

		if err := r.repo.UpdateHistory(ctx, row); err != nil {
			return 0, fmt.Errorf("failed to update history %s: %w", row.ID, err)
		}
	}

	if _, err := r.projector.UpdateBucketFromLatestHistory(ctx, bucketID); err != nil {
		return 0, err
	}

	return len(rows), nil
}
