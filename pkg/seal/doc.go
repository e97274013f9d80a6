// Package seal implements anonymous-sender sealed boxes for boxchat.
//
// A sender encrypts with the recipient's public key only; the ciphertext
// carries a fresh ephemeral public key and no sender identity. The recipient
// opens it with its own key pair. There is no sender authentication: anyone
// holding a recipient's public key can produce a valid ciphertext for it.
//
// The construction is X25519 + XSalsa20-Poly1305 (golang.org/x/crypto/nacl/box)
// and is byte-compatible with libsodium's crypto_box_seal.
package seal
