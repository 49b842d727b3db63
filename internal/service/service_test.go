package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/debt-insights/internal/analytics"
	"github.com/Dan9191/debt-insights/internal/ml"
	"github.com/Dan9191/debt-insights/internal/models"
	"github.com/Dan9191/debt-insights/internal/modelstore"
	"github.com/Dan9191/debt-insights/internal/service"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeRepo struct {
	debtors []models.DebtorRecord
	err     error
	calls   atomic.Int32
}

func (f *fakeRepo) FetchDebtorRecords(_ context.Context, _ int64) ([]models.DebtorRecord, error) {
	f.calls.Add(1)
	return f.debtors, f.err
}

type fakeStore struct {
	snap       *analytics.Snapshot
	loadErr    error
	retrainErr error
	retrainCtx context.Context

	// trained becomes the serving snapshot once failures retrains have failed
	trained  *analytics.Snapshot
	failures int
	retrains int
}

func (f *fakeStore) Current() (*analytics.Snapshot, error) {
	if f.snap == nil {
		return nil, modelstore.ErrModelsNotReady
	}
	return f.snap, nil
}

func (f *fakeStore) IsReady() bool { return f.snap != nil }

func (f *fakeStore) Load() error { return f.loadErr }

func (f *fakeStore) Retrain(ctx context.Context) (*analytics.Snapshot, error) {
	f.retrainCtx = ctx
	f.retrains++
	if f.retrainErr != nil {
		return nil, f.retrainErr
	}
	if f.retrains <= f.failures {
		return nil, analytics.ErrTrainingFailed
	}
	if f.trained != nil {
		f.snap = f.trained
	}
	return f.snap, nil
}

type notifierFunc func(runID string, statuses []models.ModelStatus) error

func (f notifierFunc) SendTrainingReport(runID string, statuses []models.ModelStatus) error {
	return f(runID, statuses)
}

type emptyCorpus struct{}

func (emptyCorpus) FetchTrainingCorpus(context.Context) ([]models.TrainingRecord, error) {
	return nil, nil
}

func trainedSnapshot(t *testing.T, log *logrus.Logger) *analytics.Snapshot {
	t.Helper()
	cfg := analytics.DefaultTrainerConfig()
	cfg.Forest = ml.ForestConfig{Trees: 10, Seed: 42}
	snap, err := analytics.NewTrainer(emptyCorpus{}, cfg, log).Train(context.Background())
	require.NoError(t, err)
	return snap
}

func ledger() []models.DebtorRecord {
	return []models.DebtorRecord{
		{
			ID:         1,
			Name:       "Ada",
			AmountOwed: 1500,
			CreatedAt:  now.AddDate(0, 0, -200),
			History: []models.DebtHistoryEntry{
				{Action: models.ActionAdd, AmountChanged: 1500, Timestamp: now.AddDate(0, 0, -200)},
			},
		},
		{
			ID:         2,
			Name:       "Bola",
			AmountOwed: 300,
			CreatedAt:  now.AddDate(0, 0, -90),
			History: []models.DebtHistoryEntry{
				{Action: models.ActionReduce, AmountChanged: 200, Timestamp: now.AddDate(0, 0, -10)},
				{Action: models.ActionReduce, AmountChanged: 500, Timestamp: now.AddDate(0, 0, -40)},
				{Action: models.ActionAdd, AmountChanged: 1000, Timestamp: now.AddDate(0, 0, -90)},
			},
		},
		{
			ID:         3,
			Name:       "Chidi",
			AmountOwed: 0,
			CreatedAt:  now.AddDate(0, 0, -60),
			History: []models.DebtHistoryEntry{
				{Action: models.ActionSettled, AmountChanged: 100, Timestamp: now.AddDate(0, 0, -5)},
				{Action: models.ActionAdd, AmountChanged: 100, Timestamp: now.AddDate(0, 0, -60)},
			},
		},
	}
}

func newService(t *testing.T, repo *fakeRepo, store *fakeStore) *service.Service {
	t.Helper()
	log, _ := test.NewNullLogger()
	svc := service.NewService(repo, store, log)
	svc.SetClock(func() time.Time { return now })
	return svc
}

func TestService_NotReadySkipsLedger(t *testing.T) {
	repo := &fakeRepo{debtors: ledger()}
	svc := newService(t, repo, &fakeStore{})

	_, err := svc.AssessRisk(context.Background(), 1, nil)
	assert.ErrorIs(t, err, modelstore.ErrModelsNotReady)
	_, err = svc.PredictCashFlow(context.Background(), 1)
	assert.ErrorIs(t, err, modelstore.ErrModelsNotReady)
	_, err = svc.ComprehensiveAnalysis(context.Background(), 1)
	assert.ErrorIs(t, err, modelstore.ErrModelsNotReady)

	assert.False(t, svc.IsReady())
	assert.Zero(t, repo.calls.Load())
}

func TestService_UpstreamFailurePropagates(t *testing.T) {
	log, _ := test.NewNullLogger()
	boom := errors.New("connection refused")
	svc := newService(t, &fakeRepo{err: boom}, &fakeStore{snap: trainedSnapshot(t, log)})

	_, err := svc.PredictPayments(context.Background(), 1, nil)
	assert.ErrorIs(t, err, service.ErrUpstream)
	assert.ErrorIs(t, err, boom)

	_, err = svc.GenerateRecommendations(context.Background(), 1)
	assert.ErrorIs(t, err, service.ErrUpstream)
}

func TestService_AssessRisk(t *testing.T) {
	log, _ := test.NewNullLogger()
	svc := newService(t, &fakeRepo{debtors: ledger()}, &fakeStore{snap: trainedSnapshot(t, log)})

	all, err := svc.AssessRisk(context.Background(), 1, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, a := range all {
		assert.Equal(t, ledger()[i].ID, a.DebtorID)
		assert.True(t, a.Level.Valid())
		assert.Equal(t, a.Score, a.Confidence)
		assert.NotEmpty(t, a.Factors)
	}
	assert.Contains(t, all[0].Factors, "High outstanding amount")

	id := int64(2)
	one, err := svc.AssessRisk(context.Background(), 1, &id)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, all[1], one[0])

	missing := int64(99)
	none, err := svc.AssessRisk(context.Background(), 1, &missing)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestService_PredictPaymentsSkipsSettled(t *testing.T) {
	log, _ := test.NewNullLogger()
	svc := newService(t, &fakeRepo{debtors: ledger()}, &fakeStore{snap: trainedSnapshot(t, log)})

	preds, err := svc.PredictPayments(context.Background(), 1, nil)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, int64(1), preds[0].DebtorID)
	assert.Equal(t, int64(2), preds[1].DebtorID)
	for _, p := range preds {
		assert.Equal(t, p.Likelihood, p.Confidence)
		assert.GreaterOrEqual(t, p.Likelihood, 0.0)
		assert.LessOrEqual(t, p.Likelihood, 1.0)
	}

	// Bola: payments 30 days apart, last one 10 days ago
	require.NotNil(t, preds[1].PredictedDate)
	assert.Equal(t, now.AddDate(0, 0, 20), *preds[1].PredictedDate)
	require.NotNil(t, preds[1].PredictedAmount)
	assert.Equal(t, 300.0, *preds[1].PredictedAmount)
}

func TestService_ComprehensiveAnalysisIsConsistent(t *testing.T) {
	log, _ := test.NewNullLogger()
	repo := &fakeRepo{debtors: ledger()}
	svc := newService(t, repo, &fakeStore{snap: trainedSnapshot(t, log)})

	report, err := svc.ComprehensiveAnalysis(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int32(1), repo.calls.Load())

	assert.Equal(t, int64(7), report.UserID)
	assert.Equal(t, now, report.GeneratedAt)
	assert.Len(t, report.RiskAssessments, 3)
	assert.Len(t, report.PaymentPredictions, 2)
	assert.Equal(t, analytics.AggregateCashFlow(7, report.PaymentPredictions), report.CashFlow)
	assert.Equal(t, analytics.Recommend(ledger(), report.RiskAssessments, report.PaymentPredictions, now), report.Recommendations)

	separate, err := svc.PredictCashFlow(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, report.CashFlow, separate)
}

func TestService_ModelStatus(t *testing.T) {
	log, _ := test.NewNullLogger()
	store := &fakeStore{}
	svc := newService(t, &fakeRepo{}, store)

	statuses := svc.ModelStatus()
	require.Len(t, statuses, 2)
	for _, s := range statuses {
		assert.False(t, s.IsTrained)
		assert.Nil(t, s.LastTrained)
	}

	store.snap = trainedSnapshot(t, log)
	statuses = svc.ModelStatus()
	require.Len(t, statuses, 2)

	risk, payment := statuses[0], statuses[1]
	assert.Equal(t, service.RiskModelName, risk.ModelName)
	assert.True(t, risk.IsTrained)
	assert.True(t, risk.SyntheticData)
	assert.Equal(t, 100, risk.SampleSize)
	require.NotNil(t, risk.AccuracyScore)
	assert.Equal(t, store.snap.Report.RiskAccuracy, *risk.AccuracyScore)

	assert.Equal(t, service.PaymentModelName, payment.ModelName)
	assert.Nil(t, payment.AccuracyScore)
	require.NotNil(t, payment.MeanSquaredError)
	assert.Equal(t, store.snap.Report.PaymentMSE, *payment.MeanSquaredError)
	require.NotNil(t, payment.LastTrained)
	assert.True(t, store.snap.TrainedAt.Equal(*payment.LastTrained))
}

func TestService_RetrainModelsNotifies(t *testing.T) {
	log, _ := test.NewNullLogger()
	store := &fakeStore{snap: trainedSnapshot(t, log)}
	svc := newService(t, &fakeRepo{}, store)

	reports := make(chan string, 1)
	svc.SetNotifier(notifierFunc(func(runID string, statuses []models.ModelStatus) error {
		assert.Len(t, statuses, 2)
		reports <- runID
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, svc.RetrainModels(ctx))
	assert.NoError(t, store.retrainCtx.Err())

	select {
	case runID := <-reports:
		assert.Equal(t, store.snap.RunID.String(), runID)
	case <-time.After(5 * time.Second):
		t.Fatal("training report not sent")
	}
}

func TestService_RetrainModelsFailure(t *testing.T) {
	svc := newService(t, &fakeRepo{}, &fakeStore{retrainErr: modelstore.ErrRetrainInProgress})

	err := svc.RetrainModels(context.Background())
	assert.ErrorIs(t, err, modelstore.ErrRetrainInProgress)
}

func TestService_InitializeLoadsPersistedModels(t *testing.T) {
	log, _ := test.NewNullLogger()
	store := &fakeStore{snap: trainedSnapshot(t, log)}
	svc := newService(t, &fakeRepo{}, store)

	require.NoError(t, svc.Initialize(context.Background()))
	assert.Zero(t, store.retrains)
}

func TestService_InitializeTrainsAndReports(t *testing.T) {
	log, _ := test.NewNullLogger()
	store := &fakeStore{loadErr: modelstore.ErrArtifactsMissing, trained: trainedSnapshot(t, log)}
	svc := newService(t, &fakeRepo{}, store)

	reports := make(chan string, 1)
	svc.SetNotifier(notifierFunc(func(runID string, _ []models.ModelStatus) error {
		reports <- runID
		return nil
	}))

	require.NoError(t, svc.Initialize(context.Background()))
	assert.Equal(t, 1, store.retrains)
	assert.True(t, svc.IsReady())

	select {
	case runID := <-reports:
		assert.Equal(t, store.trained.RunID.String(), runID)
	case <-time.After(5 * time.Second):
		t.Fatal("training report not sent for the first training")
	}
}

func TestService_InitializeRetriesFailedTraining(t *testing.T) {
	log, hook := test.NewNullLogger()
	store := &fakeStore{
		loadErr:  modelstore.ErrArtifactsMissing,
		trained:  trainedSnapshot(t, log),
		failures: 2,
	}
	svc := service.NewService(&fakeRepo{}, store, log)
	svc.SetRetryBackoff(time.Millisecond, 2*time.Millisecond)

	require.NoError(t, svc.Initialize(context.Background()))
	assert.Equal(t, 3, store.retrains)
	assert.True(t, svc.IsReady())

	var warnings int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
			assert.Contains(t, e.Message, "retrain-models")
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestService_InitializeStopsWithContext(t *testing.T) {
	store := &fakeStore{loadErr: modelstore.ErrArtifactsMissing, retrainErr: analytics.ErrTrainingFailed}
	svc := newService(t, &fakeRepo{}, store)
	svc.SetRetryBackoff(time.Hour, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := svc.Initialize(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, store.retrains)
	assert.False(t, svc.IsReady())
}
