// Package resilience retries operations that failed for transient reasons,
// using exponential backoff or a server-provided wait.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

var (
	// ErrExhaustedRetries indicates retry attempts were exhausted.
	ErrExhaustedRetries = errors.New("retry attempts exhausted")
	// ErrWaitTooLong indicates the server asked for a wait longer than MaxDelay.
	ErrWaitTooLong = errors.New("requested retry wait exceeds limit")
)

// RetryConfig holds configuration for retry operations.
type RetryConfig struct {
	// MaxAttempts counts the first call. Values below 1 mean a single call.
	MaxAttempts  uint
	InitialDelay time.Duration
	// MaxDelay caps backoff waits. A server hint above it ends the retries. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns a default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
	}
}

// Policy decides which errors are worth another attempt.
type Policy struct {
	// Retriable reports whether err is transient. Nil means nothing is retried.
	Retriable func(err error) bool
	// WaitHint returns a server-requested wait before the next attempt, if any.
	WaitHint func(err error) (time.Duration, bool)
}

// Do runs op until it succeeds, fails with a non-retriable error, runs out of
// attempts, or ctx is done.
func Do(ctx context.Context, log *slog.Logger, name string, cfg RetryConfig, policy Policy, op func(context.Context) error) error {
	if log == nil {
		log = slog.Default()
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	retriable := policy.Retriable
	if retriable == nil {
		retriable = func(error) bool { return false }
	}

	hintTooLong := func(err error) (time.Duration, bool) {
		if policy.WaitHint == nil || cfg.MaxDelay <= 0 {
			return 0, false
		}
		wait, ok := policy.WaitHint(err)
		return wait, ok && wait > cfg.MaxDelay
	}

	var lastErr error
	err := retry.Do(
		func() error {
			lastErr = op(ctx)
			return lastErr
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(cfg.InitialDelay),
		retry.MaxDelay(cfg.MaxDelay),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			if policy.WaitHint != nil {
				if wait, ok := policy.WaitHint(err); ok {
					return wait
				}
			}
			return retry.BackOffDelay(n, err, config)
		}),
		retry.RetryIf(func(err error) bool {
			if !retriable(err) {
				return false
			}
			_, tooLong := hintTooLong(err)
			return !tooLong
		}),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.DebugContext(ctx, "Operation failed, retrying",
				"operation", name,
				"attempt", n+1,
				"max_attempts", attempts,
				"error", err,
			)
		}),
	)
	if err == nil {
		return nil
	}

	if lastErr != nil && retriable(lastErr) {
		if wait, tooLong := hintTooLong(lastErr); tooLong {
			log.WarnContext(ctx, "Server requested a wait above the limit, giving up",
				"operation", name, "wait", wait, "max_wait", cfg.MaxDelay)
			return fmt.Errorf("%w (%s > %s): %w", ErrWaitTooLong, wait, cfg.MaxDelay, lastErr)
		}
	}
	if lastErr != nil && retriable(lastErr) && ctx.Err() == nil {
		return fmt.Errorf("%w after %d attempts: %w", ErrExhaustedRetries, attempts, lastErr)
	}
	if lastErr != nil {
		return lastErr
	}
	return err
}
