package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/Dan9191/debt-insights/internal/models"
)

const standardRiskProfile = "Standard risk profile"

// AssessRisk classifies one debtor with the snapshot's risk model
func (s *Snapshot) AssessRisk(d models.DebtorRecord, now time.Time) (models.RiskAssessment, error) {
	raw := ExtractFeatures(d, now)
	scaled, err := s.scale(raw)
	if err != nil {
		return models.RiskAssessment{}, fmt.Errorf("scale debtor %d: %w", d.ID, err)
	}
	level, p, err := s.Risk.Predict(scaled.Vector())
	if err != nil {
		return models.RiskAssessment{}, fmt.Errorf("classify debtor %d: %w", d.ID, err)
	}
	return models.RiskAssessment{
		DebtorID:   d.ID,
		Level:      models.RiskLevel(level),
		Score:      p,
		Confidence: p,
		Factors:    RiskFactors(raw),
	}, nil
}

// RiskFactors lists the human-readable rules that fire for raw features
func RiskFactors(f RiskFeatures) []string {
	var factors []string
	if f.AmountOwed > 1000 {
		factors = append(factors, "High outstanding amount")
	}
	if f.DaysSinceCreation > 90 && f.PaymentCount == 0 {
		factors = append(factors, "No payments in over 90 days")
	}
	if f.PaymentCount > 0 && f.TotalAdded > 0 && f.TotalPaid/f.TotalAdded < 0.3 {
		factors = append(factors, "Low payment-to-debt ratio")
	}
	if f.PaymentCount < 2 && f.DaysSinceCreation > 30 {
		factors = append(factors, "Infrequent payment history")
	}
	if len(factors) == 0 {
		return []string{standardRiskProfile}
	}
	return factors
}

// PredictPayment estimates likelihood, date and amount of the next payment.
// Settled debtors are skipped and reported with ok == false.
func (s *Snapshot) PredictPayment(d models.DebtorRecord, now time.Time) (pred models.PaymentPrediction, ok bool, err error) {
	if d.Settled() {
		return models.PaymentPrediction{}, false, nil
	}
	scaled, err := s.scale(ExtractFeatures(d, now))
	if err != nil {
		return models.PaymentPrediction{}, false, fmt.Errorf("scale debtor %d: %w", d.ID, err)
	}
	likelihood, err := s.Payment.Predict(scaled.Payment().Vector())
	if err != nil {
		return models.PaymentPrediction{}, false, fmt.Errorf("score debtor %d: %w", d.ID, err)
	}
	likelihood = math.Min(math.Max(likelihood, 0), 1)

	date := NextPaymentDate(d, now)
	amount := PredictedAmount(d)
	return models.PaymentPrediction{
		DebtorID:        d.ID,
		PredictedDate:   &date,
		Confidence:      likelihood,
		PredictedAmount: &amount,
		Likelihood:      likelihood,
	}, true, nil
}
