package models

import "time"

// TrainingRecord is a per-debtor behavioural aggregate used as training input.
// Only reduce entries contribute to PaymentCount, AvgPayment and PaymentSpanDays.
type TrainingRecord struct {
	ID                int64     `json:"id"`
	AmountOwed        float64   `json:"amount_owed"`
	CreatedAt         time.Time `json:"created_at"`
	DaysSinceCreation float64   `json:"days_since_creation"`
	PaymentCount      float64   `json:"payment_count"`
	TotalPaid         float64   `json:"total_paid"`
	TotalAdded        float64   `json:"total_added"`
	AvgPayment        float64   `json:"avg_payment"`
	PaymentSpanDays   float64   `json:"payment_span_days"`
}
