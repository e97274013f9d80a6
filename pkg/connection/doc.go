// Package connection dials boxchat peers with retries.
//
// A failed dial is retried with exponential backoff:
//
//  1. Initial delay: 500 milliseconds
//  2. Exponential increase: 1s, 2s, 4s, 8s, 16s
//  3. Maximum delay: 30 seconds
//  4. Reset to the initial delay after a successful dial
//
// # Jitter
//
// Peers restarting together would otherwise redial in lockstep:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
//
// # Sessions
//
// Every attempt creates a new transport.Connection with a fresh key pair.
// Nothing from a previous connection is resumed; a redialed peer must
// repeat the key exchange.
package connection
