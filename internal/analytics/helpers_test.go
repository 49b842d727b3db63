package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/debt-insights/internal/analytics"
	"github.com/Dan9191/debt-insights/internal/ml"
	"github.com/Dan9191/debt-insights/internal/models"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type corpusFunc func(ctx context.Context) ([]models.TrainingRecord, error)

func (f corpusFunc) FetchTrainingCorpus(ctx context.Context) ([]models.TrainingRecord, error) {
	return f(ctx)
}

func staticCorpus(rows []models.TrainingRecord) analytics.CorpusSource {
	return corpusFunc(func(context.Context) ([]models.TrainingRecord, error) { return rows, nil })
}

func testConfig() analytics.TrainerConfig {
	cfg := analytics.DefaultTrainerConfig()
	cfg.Forest = ml.ForestConfig{Trees: 15, Seed: 42}
	return cfg
}

func nullLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}

func trainSynthetic(t *testing.T) *analytics.Snapshot {
	t.Helper()
	log, _ := nullLogger()
	snap, err := analytics.NewTrainer(staticCorpus(nil), testConfig(), log).Train(context.Background())
	require.NoError(t, err)
	return snap
}

func daysAgo(n int) time.Time {
	return now.AddDate(0, 0, -n)
}

func entry(action models.HistoryAction, amount float64, at time.Time) models.DebtHistoryEntry {
	return models.DebtHistoryEntry{Action: action, AmountChanged: amount, Timestamp: at}
}
