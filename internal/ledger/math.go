package ledger

import "github.com/shopspring/decimal"

// CalculateBucketUpdate computes the snapshot that follows last after applying
// amountDelta to both running balances and unitsDelta to the unit count.
//
// last may be nil when the bucket has no earlier entry. A nil unitsDelta keeps
// the unit count as it was. When a units delta closes the position to exactly
// zero units both amounts become zero. Amounts are not floored here; callers
// apply their own floor.
func CalculateBucketUpdate(last *BucketValueHistory, amountDelta decimal.Decimal, unitsDelta *decimal.Decimal) BucketUpdate {
	baseContributed := decimal.Zero
	baseMarket := decimal.Zero
	var baseUnits *decimal.Decimal

	if last != nil {
		baseContributed = last.ContributedAmount
		baseMarket = last.MarketValue
		if last.TotalUnits != nil {
			u := *last.TotalUnits
			baseUnits = &u
		}
	}

	update := BucketUpdate{
		NewContributedAmount: baseContributed.Add(amountDelta),
		NewMarketAmount:      baseMarket.Add(amountDelta),
		NewTotalUnits:        baseUnits,
	}

	if unitsDelta == nil {
		return update
	}

	units := decimal.Zero
	if baseUnits != nil {
		units = *baseUnits
	}
	units = units.Add(*unitsDelta)
	update.NewTotalUnits = &units

	if units.IsZero() {
		update.NewContributedAmount = decimal.Zero
		update.NewMarketAmount = decimal.Zero
	}

	return update
}
