package log

import (
	"time"
)

// Event is a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// LocalRole is how the local side obtained the connection.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address (IP:port).
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"` // Wire layer
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Connection/encryption state
	ControlMsg  *ControlMsgEvent  `cbor:"13,keyasint,omitempty"` // Key exchange/exit
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the payload layer (tagged messages).
	LayerWire Layer = 1
	// LayerCrypto is the sealed-box and handshake layer.
	LayerCrypto Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerCrypto:
		return "CRYPTO"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a frame or payload.
	CategoryMessage Category = 0
	// CategoryControl indicates a control message (key exchange, exit).
	CategoryControl Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role indicates how the local endpoint obtained the connection.
// Both roles run the same protocol.
type Role uint8

const (
	// RoleDialer indicates the local side dialed out.
	RoleDialer Role = 0
	// RoleListener indicates the local side accepted the connection.
	RoleListener Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleDialer:
		return "DIALER"
	case RoleListener:
		return "LISTENER"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including delimiter or length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the frame payload (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded payload at the wire layer.
type MessageEvent struct {
	// Kind is the payload family.
	Kind MessageKind `cbor:"1,keyasint"`

	// Size is the plaintext payload size in bytes, tag included.
	Size int `cbor:"2,keyasint"`

	// Sealed indicates the payload travelled as a sealed box.
	Sealed bool `cbor:"3,keyasint,omitempty"`

	// Text is the chat text for text messages (may be truncated).
	Text string `cbor:"4,keyasint,omitempty"`
}

// MessageKind mirrors the payload family.
type MessageKind uint8

const (
	// MessageKindText indicates chat content.
	MessageKindText MessageKind = 0
	// MessageKindInternal indicates a control message.
	MessageKindInternal MessageKind = 1
)

// String returns the message kind name.
func (m MessageKind) String() string {
	switch m {
	case MessageKindText:
		return "TEXT"
	case MessageKindInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures connection and encryption lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntityEncryption indicates an encryption state change.
	StateEntityEncryption StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityEncryption:
		return "ENCRYPTION"
	default:
		return "UNKNOWN"
	}
}

// ControlMsgEvent captures internal control messages.
type ControlMsgEvent struct {
	// Type of control message.
	Type ControlMsgType `cbor:"1,keyasint"`

	// Fingerprint identifies the public key in a key exchange.
	Fingerprint string `cbor:"2,keyasint,omitempty"`
}

// ControlMsgType indicates the type of control message.
type ControlMsgType uint8

const (
	// ControlMsgPublicKey indicates a key exchange.
	ControlMsgPublicKey ControlMsgType = 0
	// ControlMsgExit indicates a teardown notice.
	ControlMsgExit ControlMsgType = 1
	// ControlMsgUnknown indicates an unrecognized internal message.
	ControlMsgUnknown ControlMsgType = 2
)

// String returns the control message type name.
func (c ControlMsgType) String() string {
	switch c {
	case ControlMsgPublicKey:
		return "PUBLIC_KEY"
	case ControlMsgExit:
		return "EXIT"
	case ControlMsgUnknown:
		return "UNKNOWN_CONTROL"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
