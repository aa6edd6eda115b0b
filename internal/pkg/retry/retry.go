// Package retry runs calls to external services with exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Config struct {
	// MaxAttempts counts the first call. Values below 1 mean one attempt.
	MaxAttempts int
	Initial     time.Duration
	Multiplier  float64
	// AttemptTimeout bounds each attempt. Zero leaves only the parent deadline.
	AttemptTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		Initial:        250 * time.Millisecond,
		Multiplier:     2,
		AttemptTimeout: 30 * time.Second,
	}
}

// Do calls op until it succeeds, returns a Permanent error, the attempts run
// out or ctx is done. The last error is returned.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	if cfg.Initial > 0 {
		eb.InitialInterval = cfg.Initial
	}
	if cfg.Multiplier > 0 {
		eb.Multiplier = cfg.Multiplier
	}
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)

	return backoff.Retry(func() error {
		attemptCtx := ctx
		if cfg.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.AttemptTimeout)
			defer cancel()
		}
		return op(attemptCtx)
	}, policy)
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// IsPermanentStatus reports whether an HTTP status means the request itself is
// wrong. 408 and 429 are retried.
func IsPermanentStatus(code int) bool {
	return code >= 400 && code < 500 && code != 408 && code != 429
}

// Unwrap strips the Permanent marker.
func Unwrap(err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
