package analytics

import (
	"sort"

	"github.com/Dan9191/debt-insights/internal/models"
)

// Fixed ±30% band around the expected total. It is a heuristic, not a
// statistically derived interval.
const (
	cashFlowLowFactor  = 0.7
	cashFlowHighFactor = 1.3
)

// AggregateCashFlow buckets expected payments (amount × likelihood) by the
// calendar month of their predicted date. Predictions without a date or with
// no amount are left out.
func AggregateCashFlow(userID int64, predictions []models.PaymentPrediction) models.CashFlowPrediction {
	byMonth := make(map[string]float64)
	for _, p := range predictions {
		if p.PredictedDate == nil || p.PredictedAmount == nil || *p.PredictedAmount == 0 {
			continue
		}
		expected := *p.PredictedAmount * p.Likelihood
		byMonth[p.PredictedDate.Format("2006-01")] += expected
	}

	buckets := make([]models.MonthlyCashFlow, 0, len(byMonth))
	for month, amount := range byMonth {
		buckets = append(buckets, models.MonthlyCashFlow{Month: month, ExpectedAmount: amount})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Month < buckets[j].Month })

	var total float64
	for _, b := range buckets {
		total += b.ExpectedAmount
	}

	return models.CashFlowPrediction{
		UserID:         userID,
		MonthlyBuckets: buckets,
		TotalExpected:  total,
		ConfidenceInterval: models.ConfidenceInterval{
			Low:  total * cashFlowLowFactor,
			High: total * cashFlowHighFactor,
		},
	}
}
