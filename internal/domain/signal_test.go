package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyProfit(t *testing.T) {
	levels := ProfitThresholds{Medium: 5, High: 20, Critical: 50}

	cases := []struct {
		net  float64
		want ProfitLevel
	}{
		{4.99, ProfitLevelNone},
		{5, ProfitLevelMedium},
		{19.99, ProfitLevelMedium},
		{20, ProfitLevelHigh},
		{49.99, ProfitLevelHigh},
		{50, ProfitLevelCritical},
		{500, ProfitLevelCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyProfit(tc.net, levels), "net %v", tc.net)
	}
}

func TestClassifyProfitUsesSuppliedThresholds(t *testing.T) {
	tight := ProfitThresholds{Medium: 0.5, High: 1, Critical: 2}

	assert.Equal(t, ProfitLevelNone, ClassifyProfit(0.4, tight))
	assert.Equal(t, ProfitLevelMedium, ClassifyProfit(0.5, tight))
	assert.Equal(t, ProfitLevelCritical, ClassifyProfit(2.5, tight))
}

func TestCostBreakdownTotal(t *testing.T) {
	c := CostBreakdown{
		SlippageBuy:  1,
		SlippageSell: 2,
		Gas:          0.5,
		TradingFees:  3,
		TransferFee:  4,
	}
	assert.InDelta(t, 10.5, c.Total(), 1e-9)
}
