package analytics

import (
	"fmt"
	"time"

	"github.com/Dan9191/debt-insights/internal/models"
)

const (
	urgentPriority         = 5
	opportunityPriority    = 3
	opportunityLikelihood  = 0.7
	urgentFollowUpInterval = 24 * time.Hour
)

// Recommend turns risk assessments and payment predictions into actions.
// Output follows the order of debtors; settled debtors get nothing.
func Recommend(debtors []models.DebtorRecord, risks []models.RiskAssessment, predictions []models.PaymentPrediction, now time.Time) []models.Recommendation {
	riskByID := make(map[int64]models.RiskAssessment, len(risks))
	for _, r := range risks {
		riskByID[r.DebtorID] = r
	}
	predByID := make(map[int64]models.PaymentPrediction, len(predictions))
	for _, p := range predictions {
		predByID[p.DebtorID] = p
	}

	recs := []models.Recommendation{}
	for _, d := range debtors {
		if d.Settled() {
			continue
		}
		if r, ok := riskByID[d.ID]; ok && r.Level == models.RiskHigh {
			at := now.Add(urgentFollowUpInterval)
			recs = append(recs, models.Recommendation{
				DebtorID:        d.ID,
				Type:            models.RecommendUrgentFollowUp,
				Message:         fmt.Sprintf("High-risk debtor: %s needs immediate attention", d.Name),
				Priority:        urgentPriority,
				SuggestedAction: "Call or visit in person",
				OptimalTime:     &at,
			})
		}
		if p, ok := predByID[d.ID]; ok && p.Likelihood > opportunityLikelihood {
			recs = append(recs, models.Recommendation{
				DebtorID:        d.ID,
				Type:            models.RecommendPaymentOpportunity,
				Message:         fmt.Sprintf("%s has high payment likelihood", d.Name),
				Priority:        opportunityPriority,
				SuggestedAction: "Send gentle reminder",
				OptimalTime:     p.PredictedDate,
			})
		}
	}
	return recs
}
