package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBucketUpdate_NoPriorHistory(t *testing.T) {
	for _, delta := range []string{"0", "250.75", "-40", "0.000001"} {
		t.Run(delta, func(t *testing.T) {
			got := CalculateBucketUpdate(nil, d(delta), nil)

			assert.True(t, got.NewContributedAmount.Equal(d(delta)))
			assert.True(t, got.NewMarketAmount.Equal(d(delta)))
			assert.Nil(t, got.NewTotalUnits)
		})
	}
}

func TestCalculateBucketUpdate_NilUnitsDeltaKeepsUnits(t *testing.T) {
	last := &BucketValueHistory{
		ContributedAmount: d("100"),
		MarketValue:       d("120"),
		TotalUnits:        dp("0"),
	}

	// Units already at zero must not trigger the zero floor without a units delta.
	got := CalculateBucketUpdate(last, d("50"), nil)

	require.NotNil(t, got.NewTotalUnits)
	assert.True(t, got.NewTotalUnits.IsZero())
	assert.True(t, got.NewContributedAmount.Equal(d("150")))
	assert.True(t, got.NewMarketAmount.Equal(d("170")))
}

func TestCalculateBucketUpdate_NilUnitsStayNil(t *testing.T) {
	last := &BucketValueHistory{ContributedAmount: d("10"), MarketValue: d("10")}

	got := CalculateBucketUpdate(last, d("-30"), nil)

	assert.Nil(t, got.NewTotalUnits)
	assert.True(t, got.NewContributedAmount.Equal(d("-20")), "no amount floor in the math")
	assert.True(t, got.NewMarketAmount.Equal(d("-20")))
}

func TestCalculateBucketUpdate_ExactZeroUnitsZeroesAmounts(t *testing.T) {
	last := &BucketValueHistory{
		ContributedAmount: d("1000"),
		MarketValue:       d("1100"),
		TotalUnits:        dp("50"),
	}

	for _, amount := range []string{"-1000", "-1", "0", "500"} {
		t.Run(amount, func(t *testing.T) {
			got := CalculateBucketUpdate(last, d(amount), dp("-50"))

			require.NotNil(t, got.NewTotalUnits)
			assert.True(t, got.NewTotalUnits.IsZero())
			assert.True(t, got.NewContributedAmount.IsZero())
			assert.True(t, got.NewMarketAmount.IsZero())
		})
	}
}

func TestCalculateBucketUpdate_NegativeUnitsNotFloored(t *testing.T) {
	last := &BucketValueHistory{
		ContributedAmount: d("1000"),
		MarketValue:       d("1200"),
		TotalUnits:        dp("100"),
	}

	got := CalculateBucketUpdate(last, d("-500"), dp("-110"))

	assert.True(t, got.NewContributedAmount.Equal(d("500")))
	assert.True(t, got.NewMarketAmount.Equal(d("700")))
	require.NotNil(t, got.NewTotalUnits)
	assert.True(t, got.NewTotalUnits.Equal(d("-10")))
}

func TestCalculateBucketUpdate_UnitsStartFromZero(t *testing.T) {
	last := &BucketValueHistory{ContributedAmount: d("200"), MarketValue: d("200")}

	got := CalculateBucketUpdate(last, d("300"), dp("3"))

	require.NotNil(t, got.NewTotalUnits)
	assert.True(t, got.NewTotalUnits.Equal(d("3")))
	assert.True(t, got.NewContributedAmount.Equal(d("500")))
}

func TestCalculateBucketUpdate_DoesNotAliasInput(t *testing.T) {
	last := &BucketValueHistory{TotalUnits: dp("7")}

	got := CalculateBucketUpdate(last, decimal.Zero, nil)
	*got.NewTotalUnits = d("99")

	assert.True(t, last.TotalUnits.Equal(d("7")))
}
