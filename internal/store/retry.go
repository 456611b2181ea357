package store

import (
	"context" // Contexts for store calls
	"time"    // Dates and durations

	"github.com/sirupsen/logrus" // Structured logging
)

// RetryPolicy bounds how often a transaction is replayed after a deadlock or
// serialization failure reported by the database.
type RetryPolicy struct {
	MaxAttempts int           // Total attempts, including the first
	BaseDelay   time.Duration // Delay before the second attempt, doubled afterwards
}

// DefaultRetryPolicy is used when a store is created without an explicit policy.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: 20 * time.Millisecond}

// Run calls fn until it succeeds, returns an error retryable rejects, the
// attempts are exhausted or ctx is done.
func (p RetryPolicy) Run(ctx context.Context, retryable func(error) bool, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BaseDelay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil || !retryable(err) || attempt == attempts {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("Transaction conflict, retrying")
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
