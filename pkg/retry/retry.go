package retry

import (
	"context"
	stderrors "errors"
	"fmt"

	"catmigrate/pkg/errors"
)

// Config holds retry configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts. Zero means unlimited.
	MaxAttempts int
	// Backoff is the backoff strategy to use between attempts
	Backoff BackoffStrategy
	// RetryIf determines whether an error is retryable
	RetryIf func(error) bool
	// OnRetry is called before each retry with the attempt number and error
	OnRetry func(attempt int, err error)
}

// DefaultConfig returns a retry config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
	}
}

// DefaultRetryIf retries errors the taxonomy marks as transient
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	var typedErr *errors.Error
	if stderrors.As(err, &typedErr) {
		return errors.IsRetryable(typedErr.Type)
	}

	// Unknown errors are not retried by default
	return false
}

// Do executes the given function with retries according to the config
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Backoff == nil {
		cfg.Backoff = DefaultExponentialBackoff()
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}

	var lastErr error

	for attempt := 1; cfg.MaxAttempts <= 0 || attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !cfg.RetryIf(lastErr) {
			return lastErr
		}

		// Don't sleep after the final attempt
		if cfg.MaxAttempts > 0 && attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr)
		}

		delay := cfg.Backoff.NextDelay(attempt)
		if err := Wait(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}

