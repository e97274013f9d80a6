// Package transport implements boxchat connections.
//
// A connection carries tagged payloads over TCP and upgrades itself from
// plaintext to sealed boxes once both peers have exchanged public keys.
// Dialing and accepting peers run the same state machine.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   TEXT: / INTERNAL: payloads   │
//	├────────────────────────────────┤
//	│  Sealed box (after handshake)  │
//	├────────────────────────────────┤
//	│  Terminator or length framing  │
//	├────────────────────────────────┤
//	│             TCP                │
//	└────────────────────────────────┘
//
// # Handshake
//
// Either side offers its key with InitiateHandshake, which sends
//
//	INTERNAL:publicKey:<base64>
//
// The receiving side stores the key, answers with its own key (unless it
// already offered one) and switches to encrypted mode inside Receive. The
// offering side switches when its own Receive sees the answer. Until then
// it refuses to send chat text with ErrHandshakePending.
//
// # Framing
//
// The default framing appends wire.DefaultTerminator to every payload. Bytes
// read past a terminator are kept for the next Receive. Payloads that
// contain the terminator are rejected; sealed payloads are re-sealed with a
// fresh ephemeral key instead. FramingLengthPrefix replaces the terminator
// with a 4-byte big-endian length and has no such restriction. Both peers
// must use the same mode.
//
// # Teardown
//
// Close sends INTERNAL:exit best-effort and closes the socket exactly once.
// WithConnection ties a connection to a function scope.
package transport
