package analytics

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Dan9191/debt-insights/internal/ml"
	"github.com/Dan9191/debt-insights/internal/models"
)

// TrainingReport is the telemetry of the run that produced a snapshot
type TrainingReport struct {
	SampleSize   int
	Synthetic    bool
	LabelsForced bool
	RiskAccuracy float64
	PaymentMSE   float64
	Duration     time.Duration
}

// Snapshot bundles the artifacts of one training run. It is never mutated
// after construction; a retrain produces a new Snapshot.
type Snapshot struct {
	RunID     uuid.UUID
	TrainedAt time.Time
	Risk      *ml.ForestClassifier
	Payment   *ml.ForestRegressor
	Scaler    *ml.StandardScaler
	Report    TrainingReport
}

// Validate checks that the artifacts are complete and agree on feature layout
func (s *Snapshot) Validate() error {
	if s == nil || s.Risk == nil || s.Payment == nil || s.Scaler == nil {
		return fmt.Errorf("incomplete snapshot")
	}
	if !slices.Equal(s.Scaler.Features, RiskFeatureNames) {
		return fmt.Errorf("scaler features %v do not match %v", s.Scaler.Features, RiskFeatureNames)
	}
	if s.Risk.NumFeatures != len(RiskFeatureNames) {
		return fmt.Errorf("risk model expects %d features, want %d", s.Risk.NumFeatures, len(RiskFeatureNames))
	}
	if s.Payment.NumFeatures != len(PaymentFeatureNames) {
		return fmt.Errorf("payment model expects %d features, want %d", s.Payment.NumFeatures, len(PaymentFeatureNames))
	}
	for _, c := range s.Risk.Classes {
		if !models.RiskLevel(c).Valid() {
			return fmt.Errorf("unknown risk class %q", c)
		}
	}
	return nil
}

// scale standardizes risk features with the snapshot's scaler
func (s *Snapshot) scale(f RiskFeatures) (RiskFeatures, error) {
	v, err := s.Scaler.Transform(f.Vector())
	if err != nil {
		return RiskFeatures{}, err
	}
	return riskFeaturesFromVector(v), nil
}
