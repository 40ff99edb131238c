package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var ErrInvalidMaxAttempts = errors.New("retry: max attempts must be greater than zero")

// Policy controls how often and how patiently an operation is retried.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *zap.Logger
}

func DefaultPolicy(logger *zap.Logger) Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, Logger: logger}
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error as
// soon as it sees it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op until it succeeds, returns a permanent error, or MaxAttempts is
// reached. The delay before attempt k+1 is BaseDelay * 2^(k-1). When attempts
// run out the error of the last attempt is returned.
func Do[T any](ctx context.Context, policy Policy, name string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if policy.MaxAttempts <= 0 {
		return zero, ErrInvalidMaxAttempts
	}
	logger := policy.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Debug("operation succeeded after retry", zap.String("operation", name), zap.Int("attempt", attempt))
			}
			return result, nil
		}

		var p *permanentError
		if errors.As(err, &p) {
			return zero, p.err
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}

		delay := policy.BaseDelay << (attempt - 1)
		logger.Warn("operation failed, retrying",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", policy.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	logger.Error("operation failed after all attempts",
		zap.String("operation", name),
		zap.Int("attempts", policy.MaxAttempts),
		zap.Error(lastErr),
	)
	return zero, fmt.Errorf("%s: %w", name, lastErr)
}

// DoErr is Do for operations that only return an error.
func DoErr(ctx context.Context, policy Policy, name string, op func(context.Context) error) error {
	_, err := Do(ctx, policy, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
