package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type projectorRepository interface {
	HistoryRepository
	BucketRepository
}

// Projector keeps a bucket's cached totals equal to its latest history entry
type Projector struct {
	repo projectorRepository
}

// NewProjector creates a new bucket summary projector
func NewProjector(repo projectorRepository) *Projector {
	return &Projector{repo: repo}
}

// Project returns the summary the bucket should carry, without writing it.
// A bucket without history projects to zero amounts and no units.
func (p *Projector) Project(ctx context.Context, bucketID uuid.UUID) (*BucketSummary, error) {
	latest, err := p.repo.GetLatestHistory(ctx, bucketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest history: %w", err)
	}

	summary := &BucketSummary{
		BucketID:          bucketID,
		ContributedAmount: decimal.Zero,
		MarketValue:       decimal.Zero,
	}
	if latest != nil {
		summary.ContributedAmount = latest.ContributedAmount
		summary.MarketValue = latest.MarketValue
		if latest.TotalUnits != nil {
			u := *latest.TotalUnits
			summary.TotalUnits = &u
		}
	}

	return summary, nil
}

// UpdateBucketFromLatestHistory copies the latest history entry into the bucket's cached fields
func (p *Projector) UpdateBucketFromLatestHistory(ctx context.Context, bucketID uuid.UUID) (*BucketSummary, error) {
	summary, err := p.Project(ctx, bucketID)
	if err != nil {
		return nil, err
	}

	if err := p.repo.UpdateBucketSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to update bucket summary: %w", err)
	}

	return summary, nil
}
