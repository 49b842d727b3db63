package ml_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/debt-insights/internal/ml"
)

func separable() ([][]float64, []string) {
	var X [][]float64
	var y []string
	for i := 0; i < 30; i++ {
		v := float64(i)
		X = append(X, []float64{v, 0})
		switch {
		case i < 10:
			y = append(y, "low")
		case i < 20:
			y = append(y, "medium")
		default:
			y = append(y, "high")
		}
	}
	return X, y
}

func TestForestClassifier_LearnsSeparableClasses(t *testing.T) {
	X, y := separable()
	cfg := ml.ForestConfig{Trees: 25, Seed: 42}

	clf, err := ml.FitForestClassifier(context.Background(), cfg, X, y)
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "low", "medium"}, clf.Classes)

	label, p, err := clf.Predict([]float64{2, 0})
	require.NoError(t, err)
	assert.Equal(t, "low", label)
	assert.Greater(t, p, 0.5)

	label, _, err = clf.Predict([]float64{27, 0})
	require.NoError(t, err)
	assert.Equal(t, "high", label)

	proba, err := clf.PredictProba([]float64{15, 0})
	require.NoError(t, err)
	var sum float64
	for _, v := range proba {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestForestClassifier_Reproducible(t *testing.T) {
	X, y := separable()
	cfg := ml.ForestConfig{Trees: 10, Seed: 3}

	a, err := ml.FitForestClassifier(context.Background(), cfg, X, y)
	require.NoError(t, err)
	b, err := ml.FitForestClassifier(context.Background(), cfg, X, y)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestForestRegressor_TracksTarget(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 40; i++ {
		X = append(X, []float64{float64(i)})
		if i < 20 {
			y = append(y, 0.2)
		} else {
			y = append(y, 0.8)
		}
	}

	reg, err := ml.FitForestRegressor(context.Background(), ml.ForestConfig{Trees: 20, Seed: 42}, X, y)
	require.NoError(t, err)

	lo, err := reg.Predict([]float64{3})
	require.NoError(t, err)
	hi, err := reg.Predict([]float64{35})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, lo, 0.05)
	assert.InDelta(t, 0.8, hi, 0.05)
}

func TestForest_InputValidation(t *testing.T) {
	ctx := context.Background()

	_, err := ml.FitForestClassifier(ctx, ml.DefaultForestConfig(), nil, nil)
	assert.ErrorIs(t, err, ml.ErrEmptyTrainingSet)

	_, err = ml.FitForestRegressor(ctx, ml.DefaultForestConfig(), [][]float64{{1}}, []float64{1, 2})
	assert.ErrorIs(t, err, ml.ErrLabelCount)

	var clf *ml.ForestClassifier
	_, err = clf.PredictProba([]float64{1})
	assert.ErrorIs(t, err, ml.ErrNotFitted)
}

func TestForest_CancelledContext(t *testing.T) {
	X, y := separable()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ml.FitForestClassifier(ctx, ml.ForestConfig{Trees: 5, Seed: 1}, X, y)
	assert.ErrorIs(t, err, context.Canceled)
}
