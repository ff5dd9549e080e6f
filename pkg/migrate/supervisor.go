package migrate

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"catmigrate/pkg/logger"
	"catmigrate/pkg/retry"
)

// Supervisor keeps the batch loop alive: when a run fails it waits a fixed
// backoff and starts a fresh run, which re-reads the checkpoint and resumes
// near where the previous one stopped. It returns only when a run finishes
// cleanly, the restart budget is exhausted, or the context is cancelled.
type Supervisor struct {
	restartDelay time.Duration
	maxRestarts  int // 0 means unlimited
	logger       logger.Logger
}

// NewSupervisor creates a supervisor with the given restart policy
func NewSupervisor(restartDelay time.Duration, maxRestarts int, log logger.Logger) *Supervisor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Supervisor{
		restartDelay: restartDelay,
		maxRestarts:  maxRestarts,
		logger:       log,
	}
}

// Run executes fn under the restart policy
func (s *Supervisor) Run(ctx context.Context, fn func(context.Context) error) error {
	maxAttempts := 0
	if s.maxRestarts > 0 {
		maxAttempts = s.maxRestarts + 1
	}

	cfg := &retry.Config{
		MaxAttempts: maxAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: s.restartDelay},
		RetryIf: func(err error) bool {
			// Cancellation is a clean shutdown, not a crash
			return !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, context.DeadlineExceeded)
		},
		OnRetry: func(attempt int, err error) {
			s.logger.WithError(err).WithFields(map[string]interface{}{
				"attempt":       attempt,
				"restart_delay": s.restartDelay,
			}).Warn("batch run failed, restarting after delay")
		},
	}

	return retry.Do(ctx, cfg, func() error {
		return s.runOnce(ctx, fn)
	})
}

// runOnce executes a single run, converting a panic into an error so the
// restart policy applies to it instead of the process dying
func (s *Supervisor) runOnce(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", fmt.Sprintf("%v", r)).Error("batch run panicked")
			err = fmt.Errorf("batch run panicked: %v", r)
		}
	}()
	return fn(ctx)
}
