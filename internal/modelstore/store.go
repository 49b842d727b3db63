package modelstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/debt-insights/internal/analytics"
	"github.com/Dan9191/debt-insights/internal/metrics"
)

var (
	// ErrModelsNotReady is returned until the first successful load or train
	ErrModelsNotReady = errors.New("models not ready")
	// ErrRetrainInProgress is returned when another retrain is still running
	ErrRetrainInProgress = errors.New("retrain already in progress")
	// ErrArtifactsMissing means the model directory holds no complete artifact set
	ErrArtifactsMissing = errors.New("model artifacts missing")
	// ErrArtifactMismatch means artifacts are corrupt or from different runs
	ErrArtifactMismatch = errors.New("model artifacts inconsistent")
)

// Builder trains a complete snapshot
type Builder interface {
	Train(ctx context.Context) (*analytics.Snapshot, error)
}

// Store owns the serving snapshot. Readers get the current pointer without
// locking; retrains replace it wholesale after the new snapshot is complete.
type Store struct {
	dir     string
	builder Builder
	log     *logrus.Logger

	current atomic.Pointer[analytics.Snapshot]
	trainMu sync.Mutex
}

// New initializes a store persisting artifacts under dir
func New(dir string, builder Builder, log *logrus.Logger) *Store {
	return &Store{dir: dir, builder: builder, log: log}
}

// Current returns the serving snapshot or ErrModelsNotReady
func (s *Store) Current() (*analytics.Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrModelsNotReady
	}
	return snap, nil
}

// IsReady reports whether a complete snapshot is serving
func (s *Store) IsReady() bool {
	return s.current.Load() != nil
}

// Load reads the persisted artifacts and serves them. On any failure the
// store keeps whatever it was serving before.
func (s *Store) Load() error {
	snap, err := readSnapshot(s.dir)
	if err != nil {
		if !errors.Is(err, ErrArtifactsMissing) {
			metrics.PersistenceFailures.WithLabelValues("load").Inc()
		}
		return fmt.Errorf("load models from %s: %w", s.dir, err)
	}
	s.swap(snap)
	s.log.WithField("run_id", snap.RunID.String()).Info("Models loaded successfully")
	return nil
}

// Save persists snap as one unit
func (s *Store) Save(ctx context.Context, snap *analytics.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("save models: %w", err)
	}
	if err := writeSnapshot(ctx, s.dir, snap); err != nil {
		metrics.PersistenceFailures.WithLabelValues("save").Inc()
		return fmt.Errorf("save models to %s: %w", s.dir, err)
	}
	s.log.WithField("run_id", snap.RunID.String()).Info("Models saved successfully")
	return nil
}

// Retrain builds a new snapshot and swaps it in. A failed build leaves the
// serving snapshot untouched. A failed save is logged and does not undo the
// swap. Only one retrain runs at a time.
func (s *Store) Retrain(ctx context.Context) (*analytics.Snapshot, error) {
	if !s.trainMu.TryLock() {
		return nil, ErrRetrainInProgress
	}
	defer s.trainMu.Unlock()

	started := time.Now()
	snap, err := s.builder.Train(ctx)
	if err == nil {
		err = snap.Validate()
	}
	if err != nil {
		metrics.TrainingRuns.WithLabelValues("failure").Inc()
		s.log.Errorf("Error training models: %v", err)
		return nil, err
	}
	metrics.TrainingRuns.WithLabelValues("success").Inc()
	metrics.TrainingDuration.Observe(time.Since(started).Seconds())

	s.swap(snap)
	if err := s.Save(ctx, snap); err != nil {
		s.log.Warnf("Models retrained but not persisted: %v", err)
	}
	return snap, nil
}

func (s *Store) swap(snap *analytics.Snapshot) {
	s.current.Store(snap)
	r := snap.Report
	metrics.ObserveServing(r.SampleSize, r.Synthetic, r.RiskAccuracy, r.PaymentMSE)
}
