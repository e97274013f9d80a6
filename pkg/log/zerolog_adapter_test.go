package log

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestZerologAdapterLogsControl(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewZerologAdapter(zerolog.New(&buf).Level(zerolog.DebugLevel))

	adapter.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-9",
		Direction:    DirectionOut,
		Layer:        LayerCrypto,
		Category:     CategoryControl,
		ControlMsg:   &ControlMsgEvent{Type: ControlMsgPublicKey, Fingerprint: "abcd"},
	})

	entry := decodeJSONLine(t, &buf)
	if entry["component"] != "protocol" {
		t.Errorf("component: got %v", entry["component"])
	}
	if entry["ctrl_type"] != "PUBLIC_KEY" {
		t.Errorf("ctrl_type: got %v", entry["ctrl_type"])
	}
	if entry["fingerprint"] != "abcd" {
		t.Errorf("fingerprint: got %v", entry["fingerprint"])
	}
	if entry["level"] != "debug" {
		t.Errorf("level: got %v, want debug", entry["level"])
	}
}

func TestZerologAdapterErrorsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewZerologAdapter(zerolog.New(&buf).Level(zerolog.WarnLevel))

	adapter.Log(Event{Timestamp: time.Now(), Category: CategoryMessage, Frame: &FrameEvent{Size: 1}})
	if buf.Len() != 0 {
		t.Fatalf("debug event written at warn level: %q", buf.String())
	}

	adapter.Log(Event{
		Timestamp: time.Now(),
		Layer:     LayerCrypto,
		Category:  CategoryError,
		Error:     &ErrorEventData{Layer: LayerCrypto, Message: "open failed", Context: "receive"},
	})

	entry := decodeJSONLine(t, &buf)
	if entry["level"] != "warn" {
		t.Errorf("level: got %v, want warn", entry["level"])
	}
	if entry["error_msg"] != "open failed" {
		t.Errorf("error_msg: got %v", entry["error_msg"])
	}
}
