package connection

import (
	"context"
	"errors"
	"fmt"

	"github.com/boxchat/boxchat-go/pkg/transport"
)

// ErrAttemptsExhausted is returned when every redial attempt failed.
var ErrAttemptsExhausted = errors.New("redial attempts exhausted")

// DialFunc establishes one connection.
type DialFunc func(ctx context.Context) (*transport.Connection, error)

// Redialer retries a DialFunc with backoff.
type Redialer struct {
	// Dial makes one attempt.
	Dial DialFunc

	// Backoff spaces attempts (default: NewBackoff()).
	Backoff *Backoff

	// Attempts is the total number of tries; zero or less means one.
	Attempts int

	// OnRetry is called before sleeping for the next attempt (optional).
	OnRetry func(attempt int, err error)
}

// Redial dials host:port with config, retrying up to attempts times.
func Redial(ctx context.Context, config transport.ConnectionConfig, host string, port int, attempts int, b *Backoff) (*transport.Connection, error) {
	r := &Redialer{
		Dial: func(ctx context.Context) (*transport.Connection, error) {
			return transport.Dial(ctx, config, host, port)
		},
		Backoff:  b,
		Attempts: attempts,
	}
	return r.Run(ctx)
}

// Run calls Dial until it succeeds, fails permanently, attempts run out or
// ctx ends. Only dial and socket creation failures are retried.
func (r *Redialer) Run(ctx context.Context) (*transport.Connection, error) {
	b := r.Backoff
	if b == nil {
		b = NewBackoff()
	}
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		c, err := r.Dial(ctx)
		if err == nil {
			b.Reset()
			return c, nil
		}
		lastErr = err

		if !Retryable(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt == attempts {
			break
		}

		if r.OnRetry != nil {
			r.OnRetry(attempt, err)
		}
		if err := b.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w after %d tries: %w", ErrAttemptsExhausted, attempts, lastErr)
}

// Retryable reports whether a failed dial may succeed when repeated.
func Retryable(err error) bool {
	return errors.Is(err, transport.ErrDial) || errors.Is(err, transport.ErrTransportCreation)
}

