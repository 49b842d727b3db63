package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/Dan9191/debt-insights/internal/models"
)

const (
	defaultPaymentHorizon = 30 * 24 * time.Hour
	defaultPaymentShare   = 0.3
	defaultPaymentCap     = 500
)

// NextPaymentDate adds the average whole-day gap between past payments to the
// latest payment. With fewer than two payments it falls back to now + 30 days.
func NextPaymentDate(d models.DebtorRecord, now time.Time) time.Time {
	payments := d.Payments()
	if len(payments) < 2 {
		return now.Add(defaultPaymentHorizon)
	}

	dates := make([]time.Time, len(payments))
	for i, p := range payments {
		dates[i] = p.Timestamp
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	var total float64
	for i := 1; i < len(dates); i++ {
		total += wholeDays(dates[i].Sub(dates[i-1]))
	}
	avgDays := total / float64(len(dates)-1)
	return dates[len(dates)-1].Add(time.Duration(avgDays * float64(24*time.Hour)))
}

// PredictedAmount estimates the next payment, never above the balance owed
func PredictedAmount(d models.DebtorRecord) float64 {
	payments := d.Payments()
	if len(payments) == 0 {
		return math.Min(d.AmountOwed*defaultPaymentShare, defaultPaymentCap)
	}
	var total float64
	for _, p := range payments {
		total += p.AmountChanged
	}
	return math.Min(total/float64(len(payments)), d.AmountOwed)
}
