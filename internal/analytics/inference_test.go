package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/debt-insights/internal/analytics"
	"github.com/Dan9191/debt-insights/internal/ml"
	"github.com/Dan9191/debt-insights/internal/models"
)

func TestAssessRisk(t *testing.T) {
	snap := trainSynthetic(t)

	got, err := snap.AssessRisk(scenarioDebtor(), now)
	require.NoError(t, err)

	assert.Equal(t, int64(1), got.DebtorID)
	assert.True(t, got.Level.Valid())
	assert.Equal(t, got.Score, got.Confidence)
	assert.GreaterOrEqual(t, got.Score, 0.0)
	assert.LessOrEqual(t, got.Score, 1.0)
	assert.Equal(t, []string{"Standard risk profile"}, got.Factors)
}

func TestRiskFactors(t *testing.T) {
	tests := []struct {
		name string
		f    analytics.RiskFeatures
		want []string
	}{
		{"standard", analytics.RiskFeatures{AmountOwed: 100, DaysSinceCreation: 10}, []string{"Standard risk profile"}},
		{"large balance", analytics.RiskFeatures{AmountOwed: 1500, DaysSinceCreation: 10}, []string{"High outstanding amount"}},
		{
			"silent debtor",
			analytics.RiskFeatures{AmountOwed: 100, DaysSinceCreation: 120},
			[]string{"No payments in over 90 days", "Infrequent payment history"},
		},
		{
			"low ratio",
			analytics.RiskFeatures{AmountOwed: 900, DaysSinceCreation: 20, PaymentCount: 3, TotalPaid: 100, TotalAdded: 1000},
			[]string{"Low payment-to-debt ratio"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, analytics.RiskFactors(tt.f))
		})
	}
}

func TestPredictPayment(t *testing.T) {
	snap := trainSynthetic(t)
	d := scenarioDebtor()

	got, ok, err := snap.PredictPayment(d, now)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, got.Likelihood, got.Confidence)
	assert.GreaterOrEqual(t, got.Likelihood, 0.0)
	assert.LessOrEqual(t, got.Likelihood, 1.0)
	require.NotNil(t, got.PredictedAmount)
	assert.LessOrEqual(t, *got.PredictedAmount, d.AmountOwed)
	require.NotNil(t, got.PredictedDate)
	assert.Equal(t, daysAgo(0), *got.PredictedDate)
}

func TestPredictPayment_SkipsSettled(t *testing.T) {
	snap := trainSynthetic(t)
	d := scenarioDebtor()
	d.AmountOwed = 0

	_, ok, err := snap.PredictPayment(d, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshot_ValidateRejectsIncomplete(t *testing.T) {
	snap := trainSynthetic(t)
	partial := *snap
	partial.Scaler = nil
	assert.Error(t, partial.Validate())

	var missing *analytics.Snapshot
	assert.Error(t, missing.Validate())

	shifted := *snap
	shifted.Scaler = &ml.StandardScaler{Features: analytics.PaymentFeatureNames}
	assert.Error(t, shifted.Validate())
}

func TestSnapshot_ValidateClasses(t *testing.T) {
	snap := trainSynthetic(t)
	for _, c := range snap.Risk.Classes {
		assert.True(t, models.RiskLevel(c).Valid())
	}
	assert.NoError(t, snap.Validate())
}
