package log

import (
	"bytes"
	"testing"
	"time"
)

func TestEventRoundTripPreservesPayloads(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 45, 123456789, time.UTC)

	tests := []struct {
		name  string
		event Event
		check func(t *testing.T, got Event)
	}{
		{
			name: "frame",
			event: Event{
				Timestamp: ts, ConnectionID: "c1", Direction: DirectionOut,
				Layer: LayerTransport, Category: CategoryMessage,
				Frame: &FrameEvent{Size: 20, Data: []byte{0x00, 0x01, 0x00}, Truncated: true},
			},
			check: func(t *testing.T, got Event) {
				if got.Frame == nil {
					t.Fatal("Frame is nil")
				}
				if !bytes.Equal(got.Frame.Data, []byte{0x00, 0x01, 0x00}) {
					t.Errorf("Frame.Data = %x", got.Frame.Data)
				}
				if !got.Frame.Truncated {
					t.Error("Frame.Truncated lost")
				}
			},
		},
		{
			name: "message",
			event: Event{
				Timestamp: ts, ConnectionID: "c1", Direction: DirectionIn,
				Layer: LayerWire, Category: CategoryMessage, LocalRole: RoleListener,
				RemoteAddr: "127.0.0.1:16999",
				Message:    &MessageEvent{Kind: MessageKindText, Size: 9, Sealed: true, Text: "hihi"},
			},
			check: func(t *testing.T, got Event) {
				if got.Message == nil {
					t.Fatal("Message is nil")
				}
				if got.Message.Text != "hihi" || !got.Message.Sealed || got.Message.Size != 9 {
					t.Errorf("Message = %+v", *got.Message)
				}
				if got.LocalRole != RoleListener {
					t.Errorf("LocalRole = %v", got.LocalRole)
				}
				if got.RemoteAddr != "127.0.0.1:16999" {
					t.Errorf("RemoteAddr = %q", got.RemoteAddr)
				}
			},
		},
		{
			name: "state change",
			event: Event{
				Timestamp: ts, ConnectionID: "c2", Layer: LayerCrypto, Category: CategoryState,
				StateChange: &StateChangeEvent{
					Entity: StateEntityEncryption, OldState: "UNENCRYPTED", NewState: "ENCRYPTED",
					Reason: "peer key received",
				},
			},
			check: func(t *testing.T, got Event) {
				if got.StateChange == nil {
					t.Fatal("StateChange is nil")
				}
				if got.StateChange.Entity != StateEntityEncryption || got.StateChange.NewState != "ENCRYPTED" {
					t.Errorf("StateChange = %+v", *got.StateChange)
				}
			},
		},
		{
			name: "control",
			event: Event{
				Timestamp: ts, ConnectionID: "c3", Layer: LayerCrypto, Category: CategoryControl,
				ControlMsg: &ControlMsgEvent{Type: ControlMsgExit},
			},
			check: func(t *testing.T, got Event) {
				if got.ControlMsg == nil || got.ControlMsg.Type != ControlMsgExit {
					t.Errorf("ControlMsg = %+v", got.ControlMsg)
				}
			},
		},
		{
			name: "error",
			event: Event{
				Timestamp: ts, ConnectionID: "c4", Layer: LayerCrypto, Category: CategoryError,
				Error: &ErrorEventData{Layer: LayerCrypto, Message: "open failed", Context: "receive"},
			},
			check: func(t *testing.T, got Event) {
				if got.Error == nil || got.Error.Message != "open failed" || got.Error.Context != "receive" {
					t.Errorf("Error = %+v", got.Error)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeEvent(tt.event)
			if err != nil {
				t.Fatalf("EncodeEvent failed: %v", err)
			}
			got, err := DecodeEvent(data)
			if err != nil {
				t.Fatalf("DecodeEvent failed: %v", err)
			}
			if !got.Timestamp.Equal(ts) {
				t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
			}
			if got.ConnectionID != tt.event.ConnectionID {
				t.Errorf("ConnectionID = %q, want %q", got.ConnectionID, tt.event.ConnectionID)
			}
			if got.Layer != tt.event.Layer || got.Category != tt.event.Category {
				t.Errorf("Layer/Category = %v/%v, want %v/%v", got.Layer, got.Category, tt.event.Layer, tt.event.Category)
			}
			tt.check(t, got)
		})
	}
}

func TestEncodeEventIsDeterministic(t *testing.T) {
	event := Event{
		Timestamp:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ConnectionID: "c1",
		Layer:        LayerWire,
		Message:      &MessageEvent{Kind: MessageKindInternal, Size: 4},
	}

	a, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	b, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("encoding differs between calls")
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xff, 0x00}); err == nil {
		t.Error("expected error decoding garbage")
	}
}

func TestStreamEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for _, id := range []string{"a", "b"} {
		if err := enc.Encode(Event{ConnectionID: id, Timestamp: time.Now()}); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}

	dec := NewDecoder(&buf)
	for _, want := range []string{"a", "b"} {
		var got Event
		if err := dec.Decode(&got); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if got.ConnectionID != want {
			t.Errorf("ConnectionID = %q, want %q", got.ConnectionID, want)
		}
	}
}
