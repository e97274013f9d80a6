// Package wire defines the boxchat payload format.
//
// Every frame on the wire carries one payload followed by the connection's
// frame delimiter. A payload starts with a tag naming its family:
//
//	TEXT:<utf-8 chat text>
//	INTERNAL:<control body>
//
// Control bodies are either a key exchange or a teardown notice:
//
//	INTERNAL:publicKey:<standard base64 of a 32-byte X25519 key>
//	INTERNAL:exit
//
// Once a connection has switched to encrypted mode the whole tagged payload
// is sealed before framing, so the tag is only visible after opening.
package wire
