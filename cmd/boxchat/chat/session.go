// Package chat runs an interactive chat over one boxchat connection.
package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"

	"github.com/boxchat/boxchat-go/pkg/seal"
	"github.com/boxchat/boxchat-go/pkg/transport"
	"github.com/boxchat/boxchat-go/pkg/wire"
)

// IntroPrefix starts the internal message announcing a user's chat name.
const IntroPrefix = "name:"

// LineReader supplies user input. Close must unblock a pending Readline
// and be safe to call more than once.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// Options configures a session.
type Options struct {
	// Name is announced to the peer once the link is usable.
	Name string

	// Encrypt offers the local key when the session starts.
	Encrypt bool

	// Logger receives operational logs.
	Logger zerolog.Logger
}

// Session couples a peer with user input and output.
type Session struct {
	peer   transport.Peer
	input  LineReader
	out    io.Writer
	opts   Options
	logger zerolog.Logger

	mu        sync.Mutex
	peerName  string
	introSent bool
}

// NewSession creates a session. Output lines are written to out.
func NewSession(peer transport.Peer, input LineReader, out io.Writer, opts Options) *Session {
	return &Session{
		peer:   peer,
		input:  input,
		out:    out,
		opts:   opts,
		logger: opts.Logger.With().Str("component", "chat").Logger(),
	}
}

// PeerName returns the name the peer announced, or "peer".
func (s *Session) PeerName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peerName == "" {
		return "peer"
	}
	return s.peerName
}

// Run chats until the user quits, the peer leaves or ctx ends. The peer
// is closed before Run returns.
func (s *Session) Run(ctx context.Context) error {
	if s.opts.Encrypt {
		if err := s.peer.InitiateHandshake(); err != nil {
			s.peer.Close()
			return fmt.Errorf("offer key: %w", err)
		}
		s.printf("* offered key %s, waiting for peer", seal.Fingerprint(s.peer.LocalPublicKey()))
	}
	s.introduce()

	stop := context.AfterFunc(ctx, func() { s.input.Close() })
	defer stop()

	received := make(chan error, 1)
	go func() {
		received <- s.receiveLoop()
		s.input.Close()
	}()

	s.inputLoop()
	s.peer.Close()
	err := <-received

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (s *Session) inputLoop() {
	for {
		line, err := s.input.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := s.command(line); quit {
				return
			}
			continue
		}

		switch err := s.peer.SendMessage(line); {
		case err == nil:
		case errors.Is(err, transport.ErrHandshakePending):
			s.printf("* handshake in progress, message not sent")
		default:
			s.printf("* send failed: %v", err)
			s.logger.Warn().Err(err).Msg("send failed")
		}
	}
}

func (s *Session) command(line string) (quit bool) {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case "/quit", "/q", "/exit":
		return true
	case "/key":
		s.printf("* local key  %s", seal.Fingerprint(s.peer.LocalPublicKey()))
		s.printf("* remote key %s", seal.Fingerprint(s.peer.RemotePublicKey()))
		if s.peer.Encrypted() {
			s.printf("* session is encrypted")
		} else {
			s.printf("* session is not encrypted")
		}
	case "/help", "/?":
		s.printf("* /key shows key fingerprints, /quit leaves")
	default:
		s.printf("* unknown command %s (try /help)", line)
	}
	return false
}

func (s *Session) receiveLoop() error {
	for {
		msg, err := s.peer.Receive()
		if err != nil {
			switch {
			case errors.Is(err, transport.ErrConnectionClosed):
				return nil
			case errors.Is(err, transport.ErrDecryption),
				errors.Is(err, transport.ErrMalformedMessage),
				errors.Is(err, transport.ErrHandshakeDecode),
				errors.Is(err, transport.ErrDuplicateKeyExchange):
				s.printf("* dropped message: %v", err)
				s.logger.Warn().Err(err).Msg("dropped message")
				continue
			case errors.Is(err, transport.ErrTransportRead):
				s.printf("* connection lost")
				s.logger.Debug().Err(err).Msg("receive ended")
				return nil
			default:
				return err
			}
		}

		switch msg.Control {
		case wire.ControlNone:
			s.printf("<%s> %s", s.PeerName(), msg.Text())
		case wire.ControlPublicKey:
			if s.peer.Encrypted() {
				s.printf("* encrypted session, peer key %s", seal.Fingerprint(s.peer.RemotePublicKey()))
				s.introduce()
			}
		case wire.ControlExit:
			s.printf("* %s left", s.PeerName())
			return nil
		case wire.ControlUnknown:
			if name, ok := bytes.CutPrefix(msg.Body, []byte(IntroPrefix)); ok && len(name) > 0 {
				s.mu.Lock()
				s.peerName = string(name)
				s.mu.Unlock()
				s.printf("* %s joined", name)
				continue
			}
			s.logger.Debug().Str("body", string(msg.Body)).Msg("ignoring internal message")
		}
	}
}

// introduce announces the local name once no key offer is outstanding.
func (s *Session) introduce() {
	if s.opts.Name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.introSent || s.peer.HandshakePending() {
		return
	}
	if err := s.peer.SendInternal([]byte(IntroPrefix + s.opts.Name)); err != nil {
		s.logger.Warn().Err(err).Msg("name announcement failed")
		return
	}
	s.introSent = true
}

func (s *Session) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format+"\n", args...)
}
