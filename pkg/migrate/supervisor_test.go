package migrate

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"catmigrate/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisorRestartsUntilSuccess(t *testing.T) {
	sup := NewSupervisor(time.Millisecond, 0, logger.NewTestLogger())

	runs := 0
	err := sup.Run(context.Background(), func(ctx context.Context) error {
		runs++
		if runs < 3 {
			return stderrors.New("transient crash")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, runs)
}

func TestSupervisorStopsAfterFirstCleanRun(t *testing.T) {
	sup := NewSupervisor(time.Millisecond, 0, logger.NewTestLogger())

	runs := 0
	err := sup.Run(context.Background(), func(ctx context.Context) error {
		runs++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}

func TestSupervisorHonorsRestartBudget(t *testing.T) {
	sup := NewSupervisor(time.Millisecond, 2, logger.NewTestLogger())

	runs := 0
	err := sup.Run(context.Background(), func(ctx context.Context) error {
		runs++
		return stderrors.New("always crashes")
	})

	require.Error(t, err)
	// 1 initial run + 2 restarts
	assert.Equal(t, 3, runs)
}

func TestSupervisorRestartsAfterPanic(t *testing.T) {
	sup := NewSupervisor(time.Millisecond, 0, logger.NewTestLogger())

	runs := 0
	err := sup.Run(context.Background(), func(ctx context.Context) error {
		runs++
		if runs < 3 {
			panic("simulated resource exhaustion")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, runs)
}

func TestSupervisorReportsPanicWhenBudgetExhausted(t *testing.T) {
	sup := NewSupervisor(time.Millisecond, 1, logger.NewTestLogger())

	runs := 0
	err := sup.Run(context.Background(), func(ctx context.Context) error {
		runs++
		panic("always panics")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch run panicked")
	// 1 initial run + 1 restart
	assert.Equal(t, 2, runs)
}

func TestSupervisorDoesNotRestartOnCancellation(t *testing.T) {
	sup := NewSupervisor(time.Millisecond, 0, logger.NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())

	runs := 0
	err := sup.Run(ctx, func(ctx context.Context) error {
		runs++
		cancel()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, runs)
}

func TestSupervisorWaitsBetweenRestarts(t *testing.T) {
	delay := 30 * time.Millisecond
	sup := NewSupervisor(delay, 0, logger.NewTestLogger())

	runs := 0
	start := time.Now()
	err := sup.Run(context.Background(), func(ctx context.Context) error {
		runs++
		if runs < 2 {
			return stderrors.New("crash once")
		}
		return nil
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), delay)
}
