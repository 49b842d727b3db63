package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/debt-insights/internal/analytics"
	"github.com/Dan9191/debt-insights/internal/metrics"
	"github.com/Dan9191/debt-insights/internal/models"
	"github.com/Dan9191/debt-insights/internal/modelstore"
)

const (
	RiskModelName    = "Risk Assessment Model"
	PaymentModelName = "Payment Prediction Model"

	defaultInitialRetry = 5 * time.Second
	defaultMaxRetry     = 5 * time.Minute
)

// ErrUpstream wraps failures of the debt ledger
var ErrUpstream = errors.New("upstream data failure")

// DebtorSource reads a user's current debtor records
type DebtorSource interface {
	FetchDebtorRecords(ctx context.Context, userID int64) ([]models.DebtorRecord, error)
}

// ModelProvider serves and refreshes the model snapshot
type ModelProvider interface {
	Current() (*analytics.Snapshot, error)
	IsReady() bool
	Load() error
	Retrain(ctx context.Context) (*analytics.Snapshot, error)
}

// ReportNotifier is told about every successful retrain
type ReportNotifier interface {
	SendTrainingReport(runID string, statuses []models.ModelStatus) error
}

// Service handles analytics requests
type Service struct {
	repo     DebtorSource
	store    ModelProvider
	log      *logrus.Logger
	notifier ReportNotifier
	now      func() time.Time

	initialRetry time.Duration
	maxRetry     time.Duration
}

// NewService initializes a new service
func NewService(repo DebtorSource, store ModelProvider, log *logrus.Logger) *Service {
	return &Service{
		repo:         repo,
		store:        store,
		log:          log,
		now:          time.Now,
		initialRetry: defaultInitialRetry,
		maxRetry:     defaultMaxRetry,
	}
}

// SetNotifier enables training report notifications
func (s *Service) SetNotifier(n ReportNotifier) {
	s.notifier = n
}

// SetClock overrides the time source used for feature extraction
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetRetryBackoff overrides the delays between failed startup trainings
func (s *Service) SetRetryBackoff(initial, maxDelay time.Duration) {
	s.initialRetry = initial
	s.maxRetry = maxDelay
}

// Initialize serves persisted models, or trains new ones when none can be
// loaded. Failed trainings are retried with exponential backoff until one
// succeeds, models become ready through another retrain, or ctx ends.
func (s *Service) Initialize(ctx context.Context) error {
	err := s.store.Load()
	if err == nil {
		return nil
	}
	if errors.Is(err, modelstore.ErrArtifactsMissing) {
		s.log.Info("Models not found, training new models")
	} else {
		s.log.Errorf("Error loading models, training new models: %v", err)
	}

	delay := s.initialRetry
	for attempt := 1; ; attempt++ {
		err := s.RetrainModels(ctx)
		if err == nil || s.store.IsReady() {
			return nil
		}
		if !errors.Is(err, modelstore.ErrRetrainInProgress) {
			s.log.Warnf("Initial training attempt %d failed, retrying in %s (POST /api/v1/insights/retrain-models forces a retry): %v",
				attempt, delay, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("initialize models: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay = min(delay*2, s.maxRetry)
	}
}

// IsReady reports whether models are serving
func (s *Service) IsReady() bool {
	return s.store.IsReady()
}

// AssessRisk classifies the user's debtors, or only debtorID when given
func (s *Service) AssessRisk(ctx context.Context, userID int64, debtorID *int64) (out []models.RiskAssessment, err error) {
	defer func(started time.Time) { metrics.ObserveAnalysis("risk_assessment", started, err) }(time.Now())
	snap, debtors, err := s.load(ctx, userID, debtorID)
	if err != nil {
		return nil, err
	}
	return assessAll(snap, debtors, s.now())
}

// PredictPayments predicts the next payment of each unsettled debtor
func (s *Service) PredictPayments(ctx context.Context, userID int64, debtorID *int64) (out []models.PaymentPrediction, err error) {
	defer func(started time.Time) { metrics.ObserveAnalysis("payment_prediction", started, err) }(time.Now())
	snap, debtors, err := s.load(ctx, userID, debtorID)
	if err != nil {
		return nil, err
	}
	return predictAll(snap, debtors, s.now())
}

// PredictCashFlow aggregates the user's expected payments by month
func (s *Service) PredictCashFlow(ctx context.Context, userID int64) (out models.CashFlowPrediction, err error) {
	defer func(started time.Time) { metrics.ObserveAnalysis("cash_flow", started, err) }(time.Now())
	snap, debtors, err := s.load(ctx, userID, nil)
	if err != nil {
		return models.CashFlowPrediction{}, err
	}
	preds, err := predictAll(snap, debtors, s.now())
	if err != nil {
		return models.CashFlowPrediction{}, err
	}
	return analytics.AggregateCashFlow(userID, preds), nil
}

// GenerateRecommendations suggests follow-up actions for the user's debtors
func (s *Service) GenerateRecommendations(ctx context.Context, userID int64) (out []models.Recommendation, err error) {
	defer func(started time.Time) { metrics.ObserveAnalysis("recommendations", started, err) }(time.Now())
	snap, debtors, err := s.load(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	now := s.now()
	risks, err := assessAll(snap, debtors, now)
	if err != nil {
		return nil, err
	}
	preds, err := predictAll(snap, debtors, now)
	if err != nil {
		return nil, err
	}
	return analytics.Recommend(debtors, risks, preds, now), nil
}

// ComprehensiveAnalysis runs every analysis against one read of the ledger
// and one snapshot
func (s *Service) ComprehensiveAnalysis(ctx context.Context, userID int64) (out *models.InsightsReport, err error) {
	defer func(started time.Time) { metrics.ObserveAnalysis("comprehensive", started, err) }(time.Now())
	snap, debtors, err := s.load(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	now := s.now()
	risks, err := assessAll(snap, debtors, now)
	if err != nil {
		return nil, err
	}
	preds, err := predictAll(snap, debtors, now)
	if err != nil {
		return nil, err
	}
	return &models.InsightsReport{
		UserID:             userID,
		RiskAssessments:    risks,
		PaymentPredictions: preds,
		CashFlow:           analytics.AggregateCashFlow(userID, preds),
		Recommendations:    analytics.Recommend(debtors, risks, preds, now),
		GeneratedAt:        now,
	}, nil
}

// RetrainModels trains and swaps in a new snapshot. The retrain is detached
// from ctx cancellation and runs to completion once started.
func (s *Service) RetrainModels(ctx context.Context) error {
	snap, err := s.store.Retrain(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("failed to retrain models: %w", err)
	}
	s.log.WithField("run_id", snap.RunID.String()).Info("Models retrained")
	if s.notifier != nil {
		statuses := statusOf(snap)
		go func() {
			if err := s.notifier.SendTrainingReport(snap.RunID.String(), statuses); err != nil {
				s.log.Warnf("Failed to send training report: %v", err)
			}
		}()
	}
	return nil
}

// ModelStatus describes the serving models
func (s *Service) ModelStatus() []models.ModelStatus {
	snap, err := s.store.Current()
	if err != nil {
		return []models.ModelStatus{
			{ModelName: RiskModelName},
			{ModelName: PaymentModelName},
		}
	}
	return statusOf(snap)
}

func statusOf(snap *analytics.Snapshot) []models.ModelStatus {
	r := snap.Report
	trained := snap.TrainedAt
	accuracy := r.RiskAccuracy
	mse := r.PaymentMSE
	return []models.ModelStatus{
		{
			ModelName:     RiskModelName,
			IsTrained:     true,
			LastTrained:   &trained,
			AccuracyScore: &accuracy,
			SampleSize:    r.SampleSize,
			SyntheticData: r.Synthetic,
			LabelsForced:  r.LabelsForced,
		},
		{
			ModelName:        PaymentModelName,
			IsTrained:        true,
			LastTrained:      &trained,
			MeanSquaredError: &mse,
			SampleSize:       r.SampleSize,
			SyntheticData:    r.Synthetic,
			LabelsForced:     r.LabelsForced,
		},
	}
}

// load pins the serving snapshot and reads the user's debtors. Readiness is
// checked first so an unready service never touches the database.
func (s *Service) load(ctx context.Context, userID int64, debtorID *int64) (*analytics.Snapshot, []models.DebtorRecord, error) {
	snap, err := s.store.Current()
	if err != nil {
		return nil, nil, err
	}
	debtors, err := s.repo.FetchDebtorRecords(ctx, userID)
	if err != nil {
		s.log.Errorf("Failed to fetch debtors for user %d: %v", userID, err)
		return nil, nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if debtorID != nil {
		debtors = filterDebtor(debtors, *debtorID)
	}
	return snap, debtors, nil
}

func filterDebtor(debtors []models.DebtorRecord, id int64) []models.DebtorRecord {
	for _, d := range debtors {
		if d.ID == id {
			return []models.DebtorRecord{d}
		}
	}
	return nil
}

func assessAll(snap *analytics.Snapshot, debtors []models.DebtorRecord, now time.Time) ([]models.RiskAssessment, error) {
	out := make([]models.RiskAssessment, 0, len(debtors))
	for _, d := range debtors {
		a, err := snap.AssessRisk(d, now)
		if err != nil {
			return nil, fmt.Errorf("failed to assess risk: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

func predictAll(snap *analytics.Snapshot, debtors []models.DebtorRecord, now time.Time) ([]models.PaymentPrediction, error) {
	out := make([]models.PaymentPrediction, 0, len(debtors))
	for _, d := range debtors {
		p, ok, err := snap.PredictPayment(d, now)
		if err != nil {
			return nil, fmt.Errorf("failed to predict payment: %w", err)
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}
