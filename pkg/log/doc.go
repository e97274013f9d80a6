// Package log provides structured protocol logging for boxchat.
//
// This package defines the Logger interface and the Event types used to
// capture what a connection does on the wire: raw frames, decoded payloads,
// handshake and connection state changes, control messages and errors. It is
// separate from operational logging (zerolog in the CLI); protocol capture
// gives a machine-readable trace for debugging a peer.
//
// # Basic Usage
//
//	// Console output through zerolog
//	cfg.Logger = log.NewZerologAdapter(zl)
//
//	// Binary file
//	cfg.Logger, _ = log.NewFileLogger("session.blog")
//
//	// Both
//	cfg.Logger = log.NewMultiLogger(console, file)
//
// # Event Types
//
//   - Transport: frames as written or read (FrameEvent)
//   - Wire: decoded payloads (MessageEvent)
//   - Crypto: encryption state changes (StateChangeEvent)
//
// Key exchange and exit messages have dedicated ControlMsgEvent entries.
//
// # File Format
//
// Log files hold a stream of CBOR-encoded events with integer keys, usually
// with a .blog extension. The "boxchat log" subcommands view, summarize and
// export them.
package log
