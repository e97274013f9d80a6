package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Listener accepts boxchat peers on a TCP address.
type Listener struct {
	config   ConnectionConfig
	listener net.Listener

	// Accepted connections that are still open
	conns   map[*Connection]struct{}
	connsMu sync.RWMutex

	running   atomic.Bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Listen binds address (e.g. ":16999" or "127.0.0.1:0"). An empty address
// listens on DefaultPort on all interfaces. Accepted connections use config.
func Listen(address string, config ConnectionConfig) (*Listener, error) {
	if address == "" {
		address = fmt.Sprintf(":%d", DefaultPort)
	}

	network := "tcp"
	switch config.Family {
	case FamilyIPv4:
		network = "tcp4"
	case FamilyIPv6:
		network = "tcp6"
	}

	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %w", ErrTransportCreation, address, err)
	}

	l := &Listener{
		config:   config,
		listener: ln,
		conns:    make(map[*Connection]struct{}),
	}
	l.running.Store(true)
	return l, nil
}

// Addr returns the listen address.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// ConnectionCount returns the number of accepted connections still open.
func (l *Listener) ConnectionCount() int {
	l.connsMu.RLock()
	defer l.connsMu.RUnlock()
	return len(l.conns)
}

// Accept waits for the next peer and returns it as an attached connection
// with a fresh key pair. It returns ctx.Err() when ctx ends first and
// ErrListenerClosed after Close.
func (l *Listener) Accept(ctx context.Context) (*Connection, error) {
	if !l.running.Load() {
		return nil, ErrListenerClosed
	}

	conn, err := l.acceptContext(ctx)
	if err != nil {
		return nil, err
	}

	c, err := NewConnection(l.config)
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.onClose = l.untrack

	l.connsMu.Lock()
	if !l.running.Load() {
		l.connsMu.Unlock()
		conn.Close()
		return nil, ErrListenerClosed
	}
	l.conns[c] = struct{}{}
	l.connsMu.Unlock()

	if err := c.Attach(conn); err != nil {
		conn.Close()
		l.untrack(c)
		return nil, err
	}
	return c, nil
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

func (l *Listener) acceptContext(ctx context.Context) (net.Conn, error) {
	dl, canInterrupt := l.listener.(deadliner)

	var stop func() bool
	interrupted := make(chan struct{})
	if canInterrupt {
		stop = context.AfterFunc(ctx, func() {
			dl.SetDeadline(time.Unix(1, 0))
			close(interrupted)
		})
	}

	conn, err := l.listener.Accept()

	if stop != nil && !stop() {
		<-interrupted
		dl.SetDeadline(time.Time{})
		if conn != nil {
			conn.Close()
		}
		return nil, ctx.Err()
	}

	if err != nil {
		if !l.running.Load() || errors.Is(err, net.ErrClosed) {
			return nil, fmt.Errorf("%w: %w", ErrListenerClosed, err)
		}
		if isResourceExhausted(err) {
			return nil, fmt.Errorf("%w: accept: %w", ErrTransportCreation, err)
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	return conn, nil
}

// Serve accepts peers until ctx ends or the listener is closed, running
// handler on its own goroutine for each one. The connection is closed when
// handler returns. Serve waits for running handlers before returning.
func (l *Listener) Serve(ctx context.Context, handler func(*Connection)) error {
	defer l.wg.Wait()

	for {
		c, err := l.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrListenerClosed) {
				return nil
			}
			// Transient accept failures (e.g. descriptor exhaustion) back off briefly.
			if errors.Is(err, ErrTransportCreation) {
				select {
				case <-time.After(50 * time.Millisecond):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return err
		}

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			defer c.Close()
			handler(c)
		}()
	}
}

// Close stops accepting and closes every open accepted connection.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.running.Store(false)
		err = l.listener.Close()

		l.connsMu.Lock()
		conns := make([]*Connection, 0, len(l.conns))
		for c := range l.conns {
			conns = append(conns, c)
		}
		l.connsMu.Unlock()

		for _, c := range conns {
			c.Close()
		}
	})
	return err
}

func (l *Listener) untrack(c *Connection) {
	l.connsMu.Lock()
	delete(l.conns, c)
	l.connsMu.Unlock()
}
