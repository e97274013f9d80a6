package transport

import (
	"errors"
	"syscall"
)

// Connection errors. Callers match them with errors.Is; the wrapped cause is
// kept in the chain.
var (
	// ErrTransportCreation indicates the socket could not be created
	// (descriptor or buffer exhaustion) or the listen address could not be bound.
	ErrTransportCreation = errors.New("transport creation failed")

	// ErrCryptoInit indicates the crypto subsystem or key generation failed.
	ErrCryptoInit = errors.New("crypto initialization failed")

	// ErrAddressing indicates the host resolved to no usable address.
	ErrAddressing = errors.New("invalid address / address not supported")

	// ErrDial indicates the peer could not be reached.
	ErrDial = errors.New("dial failed")

	// ErrTransportWrite indicates a failed or short write.
	ErrTransportWrite = errors.New("transport write failed")

	// ErrTransportRead indicates a read failure other than a transient
	// would-block or interrupted condition, including end of stream.
	ErrTransportRead = errors.New("transport read failed")

	// ErrHandshakeDecode indicates a key exchange carrying a malformed key.
	ErrHandshakeDecode = errors.New("handshake key decode failed")

	// ErrDecryption indicates a frame that could not be opened.
	ErrDecryption = errors.New("decryption failed")

	ErrNotConnected     = errors.New("not connected")
	ErrAlreadyConnected = errors.New("already connected")
	ErrConnectionClosed = errors.New("connection closed")
	ErrListenerClosed   = errors.New("listener closed")

	// ErrHandshakePending indicates chat text sent after this side offered its
	// key but before the peer's key arrived. The peer may already expect
	// sealed frames, so plaintext is refused.
	ErrHandshakePending = errors.New("handshake pending")

	// ErrDuplicateKeyExchange indicates a second key exchange on a connection
	// that already holds the peer's key.
	ErrDuplicateKeyExchange = errors.New("duplicate key exchange")

	// ErrMalformedMessage indicates a payload without a known tag.
	ErrMalformedMessage = errors.New("malformed message")
)

// isTransient reports whether a read error only means "try again".
func isTransient(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EWOULDBLOCK) ||
		errors.Is(err, syscall.EINTR)
}

// isResourceExhausted reports whether a dial or listen error stems from the
// process or system running out of sockets or buffers.
func isResourceExhausted(err error) bool {
	return errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ENOBUFS) ||
		errors.Is(err, syscall.ENOMEM)
}
