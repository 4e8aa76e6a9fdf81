// Package retry wraps startup-time operations that may fail transiently:
// opening the key store, connecting the event sink. RPC outcalls are
// never retried; replicas must observe a single upstream response.
package retry

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultMaxAttempts bounds Constant retries when the caller has no
// better number.
const DefaultMaxAttempts = 3

type Operation func() error

type ExponentialConfig struct {
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
	OnRetry         func(error, time.Duration)
}

// Exponential retries fn with exponential backoff until it succeeds or
// cfg.MaxElapsedTime passes.
func Exponential(fn Operation, cfg ExponentialConfig) error {
	if cfg.InitialInterval <= 0 {
		return errors.New("initial interval must be > 0")
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	if cfg.MaxElapsedTime > 0 {
		bo.MaxElapsedTime = cfg.MaxElapsedTime
	}
	if cfg.OnRetry == nil {
		return backoff.Retry(backoff.Operation(fn), bo)
	}
	return backoff.RetryNotify(backoff.Operation(fn), bo, backoff.Notify(cfg.OnRetry))
}

// Constant retries fn up to attempts times with a fixed interval.
func Constant(fn Operation, interval time.Duration, attempts int) error {
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts {
			time.Sleep(interval)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}
