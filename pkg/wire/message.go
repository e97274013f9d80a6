package wire

import (
	"bytes"
	"errors"
	"fmt"
)

// Payload tags.
const (
	// TagText prefixes ordinary chat content.
	TagText = "TEXT:"

	// TagInternal prefixes control messages.
	TagInternal = "INTERNAL:"
)

// Control bodies carried by internal messages.
const (
	// ControlPublicKeyTag precedes the base64 public key in a key exchange.
	ControlPublicKeyTag = "publicKey:"

	// ControlExitBody announces that the sender is closing the connection.
	ControlExitBody = "exit"
)

// DefaultTerminator is the frame delimiter both peers agree on out of band.
var DefaultTerminator = []byte("\x00<<END>>\x00")

// Decoding errors.
var (
	// ErrUnknownTag indicates a payload that carries neither known tag.
	ErrUnknownTag = errors.New("unknown payload tag")

	// ErrEmptyPayload indicates a zero-length payload.
	ErrEmptyPayload = errors.New("empty payload")
)

// Kind is the payload family.
type Kind uint8

const (
	// KindText is chat content.
	KindText Kind = 0
	// KindInternal is a control message.
	KindInternal Kind = 1
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "TEXT"
	case KindInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Control classifies the body of an internal message.
type Control uint8

const (
	// ControlNone is used for text messages.
	ControlNone Control = 0
	// ControlPublicKey is a key exchange.
	ControlPublicKey Control = 1
	// ControlExit is a teardown notice.
	ControlExit Control = 2
	// ControlUnknown is an internal message with an unrecognized body.
	ControlUnknown Control = 3
)

// String returns the control name.
func (c Control) String() string {
	switch c {
	case ControlNone:
		return "NONE"
	case ControlPublicKey:
		return "PUBLIC_KEY"
	case ControlExit:
		return "EXIT"
	default:
		return "UNKNOWN"
	}
}

// Message is a decoded payload.
type Message struct {
	// Kind is the payload family.
	Kind Kind

	// Control classifies internal messages (ControlNone for text).
	Control Control

	// Body is the payload with its family tag removed.
	Body []byte
}

// Text returns the chat text for text messages and "" for internal ones.
func (m Message) Text() string {
	if m.Kind != KindText {
		return ""
	}
	return string(m.Body)
}

// PublicKey returns the encoded key carried by a key exchange.
// It returns "" for any other message.
func (m Message) PublicKey() string {
	if m.Control != ControlPublicKey {
		return ""
	}
	return string(m.Body[len(ControlPublicKeyTag):])
}

// IsExit reports whether the message is a teardown notice.
func (m Message) IsExit() bool {
	return m.Control == ControlExit
}

// String returns a short human-readable description.
func (m Message) String() string {
	if m.Kind == KindText {
		return fmt.Sprintf("TEXT(%q)", m.Body)
	}
	return fmt.Sprintf("INTERNAL(%s, %d bytes)", m.Control, len(m.Body))
}

// EncodeText tags chat text.
func EncodeText(text string) []byte {
	return append([]byte(TagText), text...)
}

// EncodeInternal tags a control body.
func EncodeInternal(body []byte) []byte {
	return append([]byte(TagInternal), body...)
}

// EncodePublicKey builds a key exchange payload for an already encoded key.
func EncodePublicKey(encodedKey string) []byte {
	return EncodeInternal([]byte(ControlPublicKeyTag + encodedKey))
}

// EncodeExit builds the teardown notice payload.
func EncodeExit() []byte {
	return EncodeInternal([]byte(ControlExitBody))
}

// Decode splits a payload into its family and body.
// The returned body aliases payload.
func Decode(payload []byte) (Message, error) {
	if len(payload) == 0 {
		return Message{}, ErrEmptyPayload
	}

	if body, ok := bytes.CutPrefix(payload, []byte(TagText)); ok {
		return Message{Kind: KindText, Control: ControlNone, Body: body}, nil
	}

	body, ok := bytes.CutPrefix(payload, []byte(TagInternal))
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownTag, truncate(payload, 16))
	}

	msg := Message{Kind: KindInternal, Body: body}
	switch {
	case bytes.HasPrefix(body, []byte(ControlPublicKeyTag)):
		msg.Control = ControlPublicKey
	case bytes.Equal(body, []byte(ControlExitBody)):
		msg.Control = ControlExit
	default:
		msg.Control = ControlUnknown
	}
	return msg, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
