package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Dan9191/debt-insights/internal/analytics"
)

func TestSyntheticCorpus_Reproducible(t *testing.T) {
	a := analytics.SyntheticCorpus(100, 42)
	b := analytics.SyntheticCorpus(100, 42)

	assert.Len(t, a, 100)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, analytics.SyntheticCorpus(100, 43))
}

func TestSyntheticCorpus_Shape(t *testing.T) {
	for _, r := range analytics.SyntheticCorpus(100, 42) {
		assert.GreaterOrEqual(t, r.DaysSinceCreation, 1.0)
		assert.Less(t, r.DaysSinceCreation, 730.0)
		assert.GreaterOrEqual(t, r.PaymentCount, 1.0)
		assert.GreaterOrEqual(t, r.TotalAdded, 100.0)
		assert.Less(t, r.TotalAdded, 5000.0)
		assert.GreaterOrEqual(t, r.AmountOwed, 0.0)
		assert.GreaterOrEqual(t, r.PaymentSpanDays, 1.0)
		assert.InDelta(t, r.TotalPaid/r.PaymentCount, r.AvgPayment, 1e-9)
	}
}
