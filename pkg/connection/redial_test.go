package connection

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/boxchat/boxchat-go/pkg/log"
	"github.com/boxchat/boxchat-go/pkg/log/mocks"
	"github.com/boxchat/boxchat-go/pkg/transport"
)

func fastBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{Initial: time.Millisecond, Max: 2 * time.Millisecond, Jitter: -1})
}

func TestRedialerSucceedsAfterFailures(t *testing.T) {
	l, err := transport.Listen("127.0.0.1:0", transport.DefaultConnectionConfig())
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	calls := 0
	var retries []int
	r := &Redialer{
		Dial: func(ctx context.Context) (*transport.Connection, error) {
			calls++
			if calls < 3 {
				return nil, fmt.Errorf("%w: refused", transport.ErrDial)
			}
			return transport.Dial(ctx, transport.DefaultConnectionConfig(), "127.0.0.1", port)
		},
		Backoff:  fastBackoff(),
		Attempts: 5,
		OnRetry:  func(attempt int, err error) { retries = append(retries, attempt) },
	}

	c, err := r.Run(context.Background())
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries)
	assert.Equal(t, transport.StateConnected, c.State())
	assert.Zero(t, r.Backoff.Attempts(), "backoff not reset after success")
}

func TestRedialerExhaustsAttempts(t *testing.T) {
	calls := 0
	r := &Redialer{
		Dial: func(context.Context) (*transport.Connection, error) {
			calls++
			return nil, fmt.Errorf("%w: refused", transport.ErrDial)
		},
		Backoff:  fastBackoff(),
		Attempts: 3,
	}

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.ErrorIs(t, err, transport.ErrDial)
	assert.Equal(t, 3, calls)
}

func TestRedialerStopsOnPermanentError(t *testing.T) {
	calls := 0
	r := &Redialer{
		Dial: func(context.Context) (*transport.Connection, error) {
			calls++
			return nil, fmt.Errorf("%w: nowhere", transport.ErrAddressing)
		},
		Backoff:  fastBackoff(),
		Attempts: 5,
	}

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, transport.ErrAddressing)
	assert.NotErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 1, calls)
}

func TestRedialerHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Redialer{
		Dial: func(context.Context) (*transport.Connection, error) {
			return nil, fmt.Errorf("%w: refused", transport.ErrDial)
		},
		Backoff:  NewBackoffWithConfig(BackoffConfig{Initial: time.Hour, Jitter: -1}),
		Attempts: 3,
		OnRetry:  func(int, error) { cancel() },
	}

	_, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedialDefaultsToOneAttempt(t *testing.T) {
	calls := 0
	r := &Redialer{Dial: func(context.Context) (*transport.Connection, error) {
		calls++
		return nil, fmt.Errorf("%w: refused", transport.ErrDial)
	}}

	_, err := r.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRedialAgainstClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = Redial(context.Background(), transport.DefaultConnectionConfig(), "127.0.0.1", port, 2, fastBackoff())
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("%w: x", transport.ErrDial), true},
		{fmt.Errorf("%w: x", transport.ErrTransportCreation), true},
		{fmt.Errorf("%w: x", transport.ErrAddressing), false},
		{transport.ErrCryptoInit, false},
		{errors.New("other"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Retryable(tt.err), "%v", tt.err)
	}
}

func TestRedialLogsFailedAndSuccessfulAttempts(t *testing.T) {
	l, err := transport.Listen("127.0.0.1:0", transport.DefaultConnectionConfig())
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	isState := func(state string) func(log.Event) bool {
		return func(e log.Event) bool {
			return e.StateChange != nil &&
				e.StateChange.Entity == log.StateEntityConnection &&
				e.StateChange.NewState == state
		}
	}

	logger := mocks.NewMockLogger(t)
	logger.EXPECT().Log(mock.MatchedBy(isState("CONNECTED"))).Return().Once()
	logger.EXPECT().Log(mock.Anything).Return().Maybe()

	config := transport.DefaultConnectionConfig()
	config.Logger = logger

	calls := 0
	r := &Redialer{
		Dial: func(ctx context.Context) (*transport.Connection, error) {
			calls++
			if calls == 1 {
				// Nothing can be dialed on "::1" in IPv4-only mode.
				cfg := config
				cfg.Family = transport.FamilyIPv4
				_, err := transport.Dial(ctx, cfg, "::1", port)
				return nil, fmt.Errorf("%w: %w", transport.ErrDial, err)
			}
			return transport.Dial(ctx, config, "127.0.0.1", port)
		},
		Backoff:  fastBackoff(),
		Attempts: 2,
	}

	c, err := r.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.Equal(t, 2, calls)

	var connects int
	for _, call := range logger.Calls {
		if isState("CONNECTED")(call.Arguments.Get(0).(log.Event)) {
			connects++
		}
	}
	assert.Equal(t, 1, connects)
}
