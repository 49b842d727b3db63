package analytics

import (
	"math"
	"math/rand"

	"github.com/Dan9191/debt-insights/internal/models"
)

// SyntheticCorpus generates n reproducible training aggregates with random
// debt and repayment patterns. It backs training when the real corpus is too
// small, and the resulting snapshot is flagged as synthetic.
func SyntheticCorpus(n int, seed int64) []models.TrainingRecord {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible fallback data
	rows := make([]models.TrainingRecord, 0, n)

	for i := 0; i < n; i++ {
		days := 1 + rng.Intn(729)
		paymentCount := max(1, poisson(rng, 3))
		totalAdded := 100 + rng.Float64()*4900
		totalPaid := rng.Float64() * totalAdded * 1.2
		amountOwed := math.Max(0, totalAdded-totalPaid)
		span := 1
		if days > 1 {
			span = 1 + rng.Intn(days-1)
		}

		rows = append(rows, models.TrainingRecord{
			ID:                int64(i + 1),
			AmountOwed:        amountOwed,
			DaysSinceCreation: float64(days),
			PaymentCount:      float64(paymentCount),
			TotalPaid:         totalPaid,
			TotalAdded:        totalAdded,
			AvgPayment:        totalPaid / float64(paymentCount),
			PaymentSpanDays:   float64(span),
		})
	}
	return rows
}

// poisson draws from a Poisson distribution with Knuth's multiplication method
func poisson(rng *rand.Rand, lambda float64) int {
	limit := math.Exp(-lambda)
	k := 0
	p := rng.Float64()
	for p > limit {
		k++
		p *= rng.Float64()
	}
	return k
}
