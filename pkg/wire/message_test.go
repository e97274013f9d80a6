package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name      string
		payload   []byte
		kind      Kind
		control   Control
		body      string
		text      string
		publicKey string
	}{
		{
			name:    "text",
			payload: EncodeText("hihi"),
			kind:    KindText,
			control: ControlNone,
			body:    "hihi",
			text:    "hihi",
		},
		{
			name:    "empty text",
			payload: EncodeText(""),
			kind:    KindText,
			control: ControlNone,
			body:    "",
		},
		{
			name:      "public key",
			payload:   EncodePublicKey("AAAA"),
			kind:      KindInternal,
			control:   ControlPublicKey,
			body:      "publicKey:AAAA",
			publicKey: "AAAA",
		},
		{
			name:    "exit",
			payload: EncodeExit(),
			kind:    KindInternal,
			control: ControlExit,
			body:    "exit",
		},
		{
			name:    "unknown control",
			payload: EncodeInternal([]byte("reboot")),
			kind:    KindInternal,
			control: ControlUnknown,
			body:    "reboot",
		},
		{
			name:    "exit with suffix is not exit",
			payload: EncodeInternal([]byte("exited")),
			kind:    KindInternal,
			control: ControlUnknown,
			body:    "exited",
		},
		{
			name:    "text that looks like a key exchange",
			payload: EncodeText("INTERNAL:publicKey:AAAA"),
			kind:    KindText,
			control: ControlNone,
			body:    "INTERNAL:publicKey:AAAA",
			text:    "INTERNAL:publicKey:AAAA",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode(tt.payload)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if msg.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", msg.Kind, tt.kind)
			}
			if msg.Control != tt.control {
				t.Errorf("Control = %v, want %v", msg.Control, tt.control)
			}
			if string(msg.Body) != tt.body {
				t.Errorf("Body = %q, want %q", msg.Body, tt.body)
			}
			if msg.Text() != tt.text {
				t.Errorf("Text() = %q, want %q", msg.Text(), tt.text)
			}
			if msg.PublicKey() != tt.publicKey {
				t.Errorf("PublicKey() = %q, want %q", msg.PublicKey(), tt.publicKey)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("Decode(nil) error = %v, want ErrEmptyPayload", err)
	}
	if _, err := Decode([]byte("hello")); !errors.Is(err, ErrUnknownTag) {
		t.Errorf("Decode(untagged) error = %v, want ErrUnknownTag", err)
	}
}

func TestEncodeDoesNotAliasInput(t *testing.T) {
	body := []byte("publicKey:xyz")
	payload := EncodeInternal(body)
	payload[len(TagInternal)] = 'P'

	if !bytes.Equal(body, []byte("publicKey:xyz")) {
		t.Errorf("EncodeInternal modified its input: %q", body)
	}
}

func TestIsExit(t *testing.T) {
	msg, _ := Decode(EncodeExit())
	if !msg.IsExit() {
		t.Error("exit message not recognized")
	}
	msg, _ = Decode(EncodeText("exit"))
	if msg.IsExit() {
		t.Error("text \"exit\" treated as teardown notice")
	}
}

func TestKindAndControlString(t *testing.T) {
	if KindText.String() != "TEXT" || KindInternal.String() != "INTERNAL" || Kind(9).String() != "UNKNOWN" {
		t.Error("unexpected Kind names")
	}
	if ControlPublicKey.String() != "PUBLIC_KEY" || ControlExit.String() != "EXIT" || Control(9).String() != "UNKNOWN" {
		t.Error("unexpected Control names")
	}
}
