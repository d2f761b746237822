// Package retry re-runs listing calls that failed transiently.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jgivc/stlcatalog/internal/config"
)

const (
	multiplier = 2
	jitter     = 0.1
)

type retryableError struct {
	err error
}

func (e retryableError) Error() string {
	return e.err.Error()
}

func (e retryableError) Unwrap() error {
	return e.err
}

// Retryable marks err as transient. A nil error stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}

	return retryableError{err: err}
}

func IsRetryable(err error) bool {
	var r retryableError

	return errors.As(err, &r)
}

// Do calls fn until it succeeds, fails with an error not marked Retryable,
// runs out of attempts or ctx is done. The last error is returned as is.
func Do[T any](ctx context.Context, cfg config.RetryConfig, fn func() (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)

	attempts := max(cfg.MaxAttempts, 1)
	wait := cfg.InitialWait

	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !IsRetryable(err) || attempt == attempts {
			break
		}

		if err := ctx.Err(); err != nil {
			return zero, err
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(withJitter(wait)):
		}

		wait *= multiplier
		if cfg.MaxWait > 0 && wait > cfg.MaxWait {
			wait = cfg.MaxWait
		}
	}

	return zero, lastErr
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}

	return d + time.Duration(float64(d)*jitter*(rand.Float64()*2-1))
}
