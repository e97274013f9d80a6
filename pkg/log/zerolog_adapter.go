package log

import (
	"github.com/rs/zerolog"
)

// ZerologAdapter writes protocol events to a zerolog.Logger.
// Errors are logged at Warn level, everything else at Debug.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter creates a ZerologAdapter.
func NewZerologAdapter(logger zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: logger.With().Str("component", "protocol").Logger()}
}

// Log writes the event.
func (a *ZerologAdapter) Log(event Event) {
	var e *zerolog.Event
	if event.Category == CategoryError {
		e = a.logger.Warn()
	} else {
		e = a.logger.Debug()
	}

	e = e.Str("conn_id", event.ConnectionID).
		Str("direction", event.Direction.String()).
		Str("layer", event.Layer.String()).
		Str("category", event.Category.String())

	if event.RemoteAddr != "" {
		e = e.Str("remote", event.RemoteAddr)
	}

	switch {
	case event.Frame != nil:
		e = e.Int("frame_size", event.Frame.Size).Bool("truncated", event.Frame.Truncated)
	case event.Message != nil:
		e = e.Str("kind", event.Message.Kind.String()).
			Int("size", event.Message.Size).
			Bool("sealed", event.Message.Sealed)
	case event.StateChange != nil:
		e = e.Str("entity", event.StateChange.Entity.String()).
			Str("old_state", event.StateChange.OldState).
			Str("new_state", event.StateChange.NewState)
		if event.StateChange.Reason != "" {
			e = e.Str("reason", event.StateChange.Reason)
		}
	case event.ControlMsg != nil:
		e = e.Str("ctrl_type", event.ControlMsg.Type.String())
		if event.ControlMsg.Fingerprint != "" {
			e = e.Str("fingerprint", event.ControlMsg.Fingerprint)
		}
	case event.Error != nil:
		e = e.Str("error_layer", event.Error.Layer.String()).
			Str("error_msg", event.Error.Message).
			Str("error_context", event.Error.Context)
	}

	e.Time("ts", event.Timestamp).Msg("protocol")
}

var _ Logger = (*ZerologAdapter)(nil)
