package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/debt-insights/internal/modelstore"
	"github.com/Dan9191/debt-insights/internal/scheduler"
)

type retrainFunc func(ctx context.Context) error

func (f retrainFunc) RetrainModels(ctx context.Context) error { return f(ctx) }

func TestNew_RejectsInvalidSchedule(t *testing.T) {
	log, _ := test.NewNullLogger()
	_, err := scheduler.New("every tuesday", retrainFunc(func(context.Context) error { return nil }), log)
	assert.Error(t, err)

	_, err = scheduler.New("0 3 * * *", retrainFunc(func(context.Context) error { return nil }), log)
	assert.NoError(t, err)
}

func TestRun_LogsOutcome(t *testing.T) {
	for _, tc := range []struct {
		name  string
		err   error
		level logrus.Level
	}{
		{"success", nil, logrus.InfoLevel},
		{"in progress", modelstore.ErrRetrainInProgress, logrus.InfoLevel},
		{"failure", errors.New("fit failed"), logrus.ErrorLevel},
	} {
		t.Run(tc.name, func(t *testing.T) {
			log, hook := test.NewNullLogger()
			calls := 0
			s, err := scheduler.New("@daily", retrainFunc(func(context.Context) error {
				calls++
				return tc.err
			}), log)
			require.NoError(t, err)

			s.Run(context.Background())
			assert.Equal(t, 1, calls)
			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, tc.level, hook.LastEntry().Level)
		})
	}
}

func TestScheduler_FiresOnSchedule(t *testing.T) {
	log, _ := test.NewNullLogger()
	fired := make(chan struct{}, 1)
	s, err := scheduler.New("@every 1s", retrainFunc(func(context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}), log)
	require.NoError(t, err)

	s.Start(context.Background())
	defer s.Stop()

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("retrain not fired")
	}
}
