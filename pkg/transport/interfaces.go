package transport

import (
	"net"

	"github.com/boxchat/boxchat-go/pkg/seal"
	"github.com/boxchat/boxchat-go/pkg/wire"
)

// Peer is the application-facing side of a connection.
// Implemented by Connection.
type Peer interface {
	// SendMessage sends chat text.
	SendMessage(text string) error

	// SendInternal sends a control body.
	SendInternal(body []byte) error

	// InitiateHandshake offers the local public key.
	InitiateHandshake() error

	// Receive blocks for the next message.
	Receive() (wire.Message, error)

	// Encrypted reports whether frames are sealed.
	Encrypted() bool

	// HandshakePending reports whether the local key offer is unanswered.
	HandshakePending() bool

	// LocalPublicKey returns the local public key.
	LocalPublicKey() *seal.PublicKey

	// RemotePublicKey returns the peer's key once known.
	RemotePublicKey() *seal.PublicKey

	// RemoteAddr returns the peer's network address.
	RemoteAddr() net.Addr

	// Close tears the connection down.
	Close() error
}

var _ Peer = (*Connection)(nil)
