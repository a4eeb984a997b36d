// Package resilience centralizes the retry, backoff and circuit-breaker
// policy shared by provider adapters and the order coordinator. Call sites
// never hand-roll retry loops; they classify errors into the delivery
// taxonomy and let Do decide.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/restaurant-platform/backend/internal/domain/delivery"
)

// Policy parameterizes the shared retry behaviour.
type Policy struct {
	// MaxAttempts caps the total number of tries, first call included.
	MaxAttempts uint64
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
	// MaxInterval caps the exponential growth.
	MaxInterval time.Duration
	// Multiplier is the exponential growth factor.
	Multiplier float64
}

// DefaultPolicy matches the documented provider guidance: a handful of
// attempts with exponential backoff, capped well below webhook timeouts.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     4,
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	}
}

// Do runs op, retrying only errors classified as delivery.ErrTransient.
// Every other error is permanent and surfaces immediately. The context
// bounds the whole sequence, backoff waits included.
func (p Policy) Do(ctx context.Context, op func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.Multiplier = p.Multiplier
	eb.MaxElapsedTime = 0 // bounded by attempts and ctx, not wall clock

	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, delivery.ErrTransient) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(eb, attempts-1), ctx)
	return backoff.Retry(wrapped, b)
}
