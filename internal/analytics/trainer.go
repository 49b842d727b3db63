package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/debt-insights/internal/ml"
	"github.com/Dan9191/debt-insights/internal/models"
)

// ErrTrainingFailed wraps every error that aborts a training run
var ErrTrainingFailed = errors.New("training failed")

// CorpusSource supplies behavioural aggregates for training
type CorpusSource interface {
	FetchTrainingCorpus(ctx context.Context) ([]models.TrainingRecord, error)
}

// TrainerConfig holds training parameters
type TrainerConfig struct {
	MinRows       int
	SyntheticRows int
	Seed          int64
	TestFraction  float64
	Forest        ml.ForestConfig
}

// DefaultTrainerConfig returns the standard training setup
func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		MinRows:       10,
		SyntheticRows: 100,
		Seed:          42,
		TestFraction:  0.2,
		Forest:        ml.DefaultForestConfig(),
	}
}

// Trainer fits the risk classifier, payment regressor and shared scaler
type Trainer struct {
	source CorpusSource
	cfg    TrainerConfig
	log    *logrus.Logger
	now    func() time.Time
}

// NewTrainer initializes a new trainer
func NewTrainer(source CorpusSource, cfg TrainerConfig, log *logrus.Logger) *Trainer {
	return &Trainer{source: source, cfg: cfg, log: log, now: time.Now}
}

// Train builds a complete snapshot from the current corpus
func (t *Trainer) Train(ctx context.Context) (*Snapshot, error) {
	started := t.now()

	rows, err := t.source.FetchTrainingCorpus(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch corpus: %w", ErrTrainingFailed, err)
	}
	report := TrainingReport{}
	if len(rows) < t.cfg.MinRows {
		t.log.Warnf("Training corpus has %d rows (minimum %d), training on %d synthetic rows",
			len(rows), t.cfg.MinRows, t.cfg.SyntheticRows)
		rows = SyntheticCorpus(t.cfg.SyntheticRows, t.cfg.Seed)
		report.Synthetic = true
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrTrainingFailed, ml.ErrEmptyTrainingSet)
	}
	report.SampleSize = len(rows)

	features := make([]RiskFeatures, len(rows))
	labels := make([]string, len(rows))
	likelihoods := make([]float64, len(rows))
	for i, r := range rows {
		features[i] = FeaturesFromTraining(r)
		labels[i] = string(RiskLabel(features[i]))
		likelihoods[i] = PaymentLikelihood(features[i])
	}
	uniform := labels[0]
	if forceLabelVariety(labels) {
		report.LabelsForced = true
		t.log.Warnf("All %d risk labels are %q, relabelled first sample as %q so the classifier sees two classes",
			len(labels), uniform, labels[0])
	}

	train, test := ml.TrainTestSplit(len(rows), t.cfg.TestFraction, t.cfg.Seed)

	rawTrain := make([][]float64, len(train))
	for k, i := range train {
		rawTrain[k] = features[i].Vector()
	}
	scaler, err := ml.FitStandardScaler(RiskFeatureNames, rawTrain)
	if err != nil {
		return nil, fmt.Errorf("%w: fit scaler: %w", ErrTrainingFailed, err)
	}

	snap := &Snapshot{Scaler: scaler}
	riskX, paymentX, err := snap.design(features, train)
	if err != nil {
		return nil, fmt.Errorf("%w: scale features: %w", ErrTrainingFailed, err)
	}

	riskY := make([]string, len(train))
	paymentY := make([]float64, len(train))
	for k, i := range train {
		riskY[k] = labels[i]
		paymentY[k] = likelihoods[i]
	}

	if snap.Risk, err = ml.FitForestClassifier(ctx, t.cfg.Forest, riskX, riskY); err != nil {
		return nil, fmt.Errorf("%w: fit risk model: %w", ErrTrainingFailed, err)
	}
	if snap.Payment, err = ml.FitForestRegressor(ctx, t.cfg.Forest, paymentX, paymentY); err != nil {
		return nil, fmt.Errorf("%w: fit payment model: %w", ErrTrainingFailed, err)
	}

	if err := t.evaluate(snap, features, labels, likelihoods, test, &report); err != nil {
		return nil, fmt.Errorf("%w: evaluate: %w", ErrTrainingFailed, err)
	}

	snap.RunID = uuid.New()
	snap.TrainedAt = t.now()
	report.Duration = snap.TrainedAt.Sub(started)
	snap.Report = report

	t.log.WithFields(logrus.Fields{
		"run_id":      snap.RunID.String(),
		"samples":     report.SampleSize,
		"synthetic":   report.Synthetic,
		"accuracy":    report.RiskAccuracy,
		"payment_mse": report.PaymentMSE,
	}).Info("Models trained")
	return snap, nil
}

// design scales the selected samples and lays them out per model
func (s *Snapshot) design(features []RiskFeatures, idx []int) (riskX, paymentX [][]float64, err error) {
	raw := make([][]float64, len(idx))
	for k, i := range idx {
		raw[k] = features[i].Vector()
	}
	if riskX, err = s.Scaler.TransformAll(raw); err != nil {
		return nil, nil, err
	}
	paymentX = make([][]float64, len(riskX))
	for k, row := range riskX {
		paymentX[k] = riskFeaturesFromVector(row).Payment().Vector()
	}
	return riskX, paymentX, nil
}

// evaluate scores the held-out split. Scores are advisory only.
func (t *Trainer) evaluate(s *Snapshot, features []RiskFeatures, labels []string, likelihoods []float64, test []int, report *TrainingReport) error {
	if len(test) == 0 {
		return nil
	}
	riskX, paymentX, err := s.design(features, test)
	if err != nil {
		return err
	}
	wantRisk := make([]string, len(test))
	gotRisk := make([]string, len(test))
	wantPay := make([]float64, len(test))
	gotPay := make([]float64, len(test))
	for k, i := range test {
		wantRisk[k] = labels[i]
		wantPay[k] = likelihoods[i]
		if gotRisk[k], _, err = s.Risk.Predict(riskX[k]); err != nil {
			return err
		}
		if gotPay[k], err = s.Payment.Predict(paymentX[k]); err != nil {
			return err
		}
	}
	report.RiskAccuracy = ml.Accuracy(wantRisk, gotRisk)
	report.PaymentMSE = ml.MeanSquaredError(wantPay, gotPay)
	return nil
}
