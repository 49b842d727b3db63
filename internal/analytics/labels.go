package analytics

import (
	"math"

	"github.com/Dan9191/debt-insights/internal/models"
)

const (
	settledLikelihood = 0.1
	minLikelihood     = 0.1
	maxLikelihood     = 0.9
)

func settled(f RiskFeatures) bool {
	return f.AmountOwed == 0
}

func paidRatio(f RiskFeatures) float64 {
	if f.TotalAdded > 0 {
		return f.TotalPaid / f.TotalAdded
	}
	return 0
}

// RiskLabel derives a training risk class from repayment behaviour
func RiskLabel(f RiskFeatures) models.RiskLevel {
	if settled(f) {
		return models.RiskLow
	}
	ratio := paidRatio(f)
	avgGap := f.PaymentSpanDays / math.Max(1, f.PaymentCount)

	switch {
	case ratio > 0.8 && avgGap < 30:
		return models.RiskLow
	case ratio > 0.5 && avgGap < 60:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

// PaymentLikelihood derives a training payment-likelihood target.
// Settled debtors get 0.1; everyone else lands in [0.1, 0.9].
func PaymentLikelihood(f RiskFeatures) float64 {
	if settled(f) {
		return settledLikelihood
	}
	frequency := f.PaymentCount / math.Max(1, f.DaysSinceCreation/30)
	likelihood := paidRatio(f)*0.6 + math.Min(frequency, 1.0)*0.4
	return math.Min(math.Max(likelihood, minLikelihood), maxLikelihood)
}

// forceLabelVariety rewrites the first label when every label is identical so
// the classifier has at least two classes to separate. It reports whether a
// label was changed.
//
// TODO: decide what a genuinely uniform-risk corpus should produce instead of
// a fabricated second class.
func forceLabelVariety(labels []string) bool {
	if len(labels) == 0 {
		return false
	}
	for _, l := range labels[1:] {
		if l != labels[0] {
			return false
		}
	}
	if labels[0] != string(models.RiskMedium) {
		labels[0] = string(models.RiskMedium)
	} else {
		labels[0] = string(models.RiskHigh)
	}
	return true
}
