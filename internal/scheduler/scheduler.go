package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/debt-insights/internal/modelstore"
)

const stopTimeout = 30 * time.Second

// Retrainer rebuilds the serving models
type Retrainer interface {
	RetrainModels(ctx context.Context) error
}

// Scheduler retrains models on a cron schedule
type Scheduler struct {
	cron     *cron.Cron
	job      Retrainer
	log      *logrus.Logger
	schedule string
	ctx      context.Context
}

// New validates schedule (standard five-field cron or a descriptor such as
// "@daily") and registers the retrain job
func New(schedule string, job Retrainer, log *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		job:      job,
		log:      log,
		schedule: schedule,
		ctx:      context.Background(),
	}
	s.cron = cron.New(
		cron.WithLogger(cron.PrintfLogger(log)),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
	)
	if _, err := s.cron.AddFunc(schedule, func() { s.Run(s.ctx) }); err != nil {
		return nil, fmt.Errorf("invalid retrain schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins firing jobs; jobs run with ctx
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.log.Infof("Retrain scheduler started with schedule %q", s.schedule)
}

// Stop halts the schedule and waits for a running retrain to finish
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(stopTimeout):
		s.log.Warn("Retrain scheduler stop timed out waiting for running job")
	}
	s.log.Info("Retrain scheduler stopped")
}

// Run performs one scheduled retrain
func (s *Scheduler) Run(ctx context.Context) {
	started := time.Now()
	s.log.Info("Scheduled retrain starting")
	err := s.job.RetrainModels(ctx)
	switch {
	case err == nil:
		s.log.Infof("Scheduled retrain finished in %s", time.Since(started).Round(time.Millisecond))
	case errors.Is(err, modelstore.ErrRetrainInProgress):
		s.log.Info("Scheduled retrain skipped, another retrain is running")
	default:
		s.log.Errorf("Scheduled retrain failed: %v", err)
	}
}
