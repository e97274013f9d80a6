package log

import (
	"testing"
	"time"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := NoopLogger{}

	event := Event{
		Timestamp:    time.Now(),
		ConnectionID: "test-conn",
		Direction:    DirectionIn,
		Layer:        LayerTransport,
		Category:     CategoryMessage,
	}
	logger.Log(event)

	event.Frame = &FrameEvent{Size: 100, Data: []byte{1, 2, 3}}
	logger.Log(event)

	event.Frame = nil
	event.Message = &MessageEvent{Kind: MessageKindText, Size: 4}
	logger.Log(event)

	event.Message = nil
	event.StateChange = &StateChangeEvent{Entity: StateEntityConnection, NewState: "CONNECTED"}
	logger.Log(event)

	event.StateChange = nil
	event.ControlMsg = &ControlMsgEvent{Type: ControlMsgPublicKey}
	logger.Log(event)

	event.ControlMsg = nil
	event.Error = &ErrorEventData{Message: "test error"}
	logger.Log(event)
}

func TestNoopLoggerIsZeroValue(t *testing.T) {
	var logger NoopLogger
	logger.Log(Event{})
}
