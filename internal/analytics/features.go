package analytics

import (
	"math"
	"time"

	"github.com/Dan9191/debt-insights/internal/models"
)

// RiskFeatures is the risk model input. Field order is the vector order.
type RiskFeatures struct {
	AmountOwed        float64
	DaysSinceCreation float64
	PaymentCount      float64
	TotalPaid         float64
	TotalAdded        float64
	AvgPayment        float64
	PaymentSpanDays   float64
}

// PaymentFeatures is the payment-likelihood model input. It leaves out
// TotalAdded, the denominator of its own training target.
type PaymentFeatures struct {
	AmountOwed        float64
	DaysSinceCreation float64
	PaymentCount      float64
	TotalPaid         float64
	AvgPayment        float64
	PaymentSpanDays   float64
}

// RiskFeatureNames names the columns of RiskFeatures.Vector
var RiskFeatureNames = []string{
	"amount_owed",
	"days_since_creation",
	"payment_count",
	"total_paid",
	"total_added",
	"avg_payment",
	"payment_span_days",
}

// PaymentFeatureNames names the columns of PaymentFeatures.Vector
var PaymentFeatureNames = []string{
	"amount_owed",
	"days_since_creation",
	"payment_count",
	"total_paid",
	"avg_payment",
	"payment_span_days",
}

// Vector returns the features in RiskFeatureNames order
func (f RiskFeatures) Vector() []float64 {
	return []float64{
		f.AmountOwed,
		f.DaysSinceCreation,
		f.PaymentCount,
		f.TotalPaid,
		f.TotalAdded,
		f.AvgPayment,
		f.PaymentSpanDays,
	}
}

// Payment projects the risk features onto the payment model's subset
func (f RiskFeatures) Payment() PaymentFeatures {
	return PaymentFeatures{
		AmountOwed:        f.AmountOwed,
		DaysSinceCreation: f.DaysSinceCreation,
		PaymentCount:      f.PaymentCount,
		TotalPaid:         f.TotalPaid,
		AvgPayment:        f.AvgPayment,
		PaymentSpanDays:   f.PaymentSpanDays,
	}
}

// Vector returns the features in PaymentFeatureNames order
func (f PaymentFeatures) Vector() []float64 {
	return []float64{
		f.AmountOwed,
		f.DaysSinceCreation,
		f.PaymentCount,
		f.TotalPaid,
		f.AvgPayment,
		f.PaymentSpanDays,
	}
}

func riskFeaturesFromVector(v []float64) RiskFeatures {
	return RiskFeatures{
		AmountOwed:        v[0],
		DaysSinceCreation: v[1],
		PaymentCount:      v[2],
		TotalPaid:         v[3],
		TotalAdded:        v[4],
		AvgPayment:        v[5],
		PaymentSpanDays:   v[6],
	}
}

// ExtractFeatures summarizes a debtor's payment behaviour as of now
func ExtractFeatures(d models.DebtorRecord, now time.Time) RiskFeatures {
	f := RiskFeatures{
		AmountOwed:        d.AmountOwed,
		DaysSinceCreation: wholeDays(now.Sub(d.CreatedAt)),
	}

	var first, last time.Time
	for _, h := range d.History {
		switch h.Action {
		case models.ActionReduce:
			if f.PaymentCount == 0 || h.Timestamp.Before(first) {
				first = h.Timestamp
			}
			if f.PaymentCount == 0 || h.Timestamp.After(last) {
				last = h.Timestamp
			}
			f.PaymentCount++
			f.TotalPaid += h.AmountChanged
		case models.ActionAdd:
			f.TotalAdded += h.AmountChanged
		}
	}

	if f.PaymentCount > 0 {
		f.AvgPayment = f.TotalPaid / f.PaymentCount
	}
	if f.PaymentCount >= 2 {
		f.PaymentSpanDays = wholeDays(last.Sub(first))
	}
	return f
}

// FeaturesFromTraining maps a training aggregate onto the risk feature layout
func FeaturesFromTraining(r models.TrainingRecord) RiskFeatures {
	return RiskFeatures{
		AmountOwed:        r.AmountOwed,
		DaysSinceCreation: r.DaysSinceCreation,
		PaymentCount:      r.PaymentCount,
		TotalPaid:         r.TotalPaid,
		TotalAdded:        r.TotalAdded,
		AvgPayment:        r.AvgPayment,
		PaymentSpanDays:   r.PaymentSpanDays,
	}
}

// wholeDays floors a duration to whole days
func wholeDays(d time.Duration) float64 {
	return math.Floor(d.Hours() / 24)
}
