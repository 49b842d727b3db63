package models

import "time"

// RiskLevel is the categorical default propensity of a debtor
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Valid reports whether r is one of the known levels
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// RiskAssessment represents the risk classification of one debtor
type RiskAssessment struct {
	DebtorID   int64     `json:"debtor_id"`
	Level      RiskLevel `json:"risk_level"`
	Score      float64   `json:"risk_score"`
	Confidence float64   `json:"confidence"`
	Factors    []string  `json:"factors"`
}

// PaymentPrediction represents the expected next payment of one debtor
type PaymentPrediction struct {
	DebtorID        int64      `json:"debtor_id"`
	PredictedDate   *time.Time `json:"predicted_payment_date"`
	Confidence      float64    `json:"prediction_confidence"`
	PredictedAmount *float64   `json:"predicted_amount"`
	Likelihood      float64    `json:"likelihood_of_payment"`
}

// MonthlyCashFlow represents expected income for a calendar month
type MonthlyCashFlow struct {
	Month          string  `json:"month"` // Format: YYYY-MM
	ExpectedAmount float64 `json:"expected_amount"`
}

// ConfidenceInterval is a fixed heuristic band around the expected total
type ConfidenceInterval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// CashFlowPrediction represents the monthly cash flow forecast of a user
type CashFlowPrediction struct {
	UserID             int64              `json:"user_id"`
	MonthlyBuckets     []MonthlyCashFlow  `json:"predictions"`
	TotalExpected      float64            `json:"total_expected"`
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`
}

// RecommendationType identifies the rule that produced a recommendation
type RecommendationType string

const (
	RecommendUrgentFollowUp     RecommendationType = "urgent_follow_up"
	RecommendPaymentOpportunity RecommendationType = "payment_opportunity"
)

// Recommendation represents a prioritized collection action
type Recommendation struct {
	DebtorID        int64              `json:"debtor_id"`
	Type            RecommendationType `json:"recommendation_type"`
	Message         string             `json:"message"`
	Priority        int                `json:"priority"` // 1..5
	SuggestedAction string             `json:"suggested_action"`
	OptimalTime     *time.Time         `json:"optimal_time"`
}

// InsightsReport bundles every analysis of a user computed from one snapshot
type InsightsReport struct {
	UserID             int64               `json:"user_id"`
	RiskAssessments    []RiskAssessment    `json:"risk_assessments"`
	PaymentPredictions []PaymentPrediction `json:"payment_predictions"`
	CashFlow           CashFlowPrediction  `json:"cash_flow_prediction"`
	Recommendations    []Recommendation    `json:"recommendations"`
	GeneratedAt        time.Time           `json:"generated_at"`
}

// ModelStatus represents training telemetry of one served model
type ModelStatus struct {
	ModelName        string     `json:"model_name"`
	IsTrained        bool       `json:"is_trained"`
	LastTrained      *time.Time `json:"last_trained"`
	AccuracyScore    *float64   `json:"accuracy_score"`
	MeanSquaredError *float64   `json:"mean_squared_error,omitempty"`
	SampleSize       int        `json:"sample_size"`
	SyntheticData    bool       `json:"synthetic_data"`
	LabelsForced     bool       `json:"labels_forced"`
}
