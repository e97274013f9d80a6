package seal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/nacl/box"
)

// Key and ciphertext sizes.
const (
	// KeySize is the size of public and secret keys in bytes.
	KeySize = 32

	// Overhead is the number of bytes a sealed box adds to its plaintext.
	Overhead = box.AnonymousOverhead
)

// Errors returned by this package.
var (
	// ErrCryptoInit indicates the system random source is unusable.
	ErrCryptoInit = errors.New("crypto subsystem unavailable")

	// ErrOpen indicates a ciphertext that could not be opened.
	ErrOpen = errors.New("sealed box open failed")

	// ErrKeyDecode indicates a malformed encoded public key.
	ErrKeyDecode = errors.New("invalid public key encoding")

	// ErrInvalidKey indicates a nil key.
	ErrInvalidKey = errors.New("invalid key")
)

var (
	initOnce sync.Once
	initErr  error
)

// Init prepares process-wide crypto state. It runs its checks once; later
// calls return the first result.
func Init() error {
	initOnce.Do(func() {
		var probe [KeySize]byte
		if _, err := io.ReadFull(rand.Reader, probe[:]); err != nil {
			initErr = fmt.Errorf("%w: %w", ErrCryptoInit, err)
		}
	})
	return initErr
}

// PublicKey is an X25519 public key.
type PublicKey = [KeySize]byte

// KeyPair is a local X25519 key pair.
type KeyPair struct {
	Public *PublicKey
	Secret *[KeySize]byte
}

// GenerateKeyPair creates a key pair from crypto/rand.
func GenerateKeyPair() (KeyPair, error) {
	if err := Init(); err != nil {
		return KeyPair{}, err
	}
	return GenerateKeyPairFrom(rand.Reader)
}

// GenerateKeyPairFrom creates a key pair from the given entropy source.
func GenerateKeyPairFrom(r io.Reader) (KeyPair, error) {
	pub, sec, err := box.GenerateKey(r)
	if err != nil {
		return KeyPair{}, fmt.Errorf("%w: %w", ErrCryptoInit, err)
	}
	return KeyPair{Public: pub, Secret: sec}, nil
}

// Seal encrypts msg for the holder of peer. Each call uses a fresh
// ephemeral key, so sealing the same message twice yields different bytes.
func Seal(msg []byte, peer *PublicKey) ([]byte, error) {
	if peer == nil {
		return nil, ErrInvalidKey
	}
	out, err := box.SealAnonymous(make([]byte, 0, len(msg)+Overhead), msg, peer, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	return out, nil
}

// Open decrypts a sealed box addressed to kp.
func Open(ciphertext []byte, kp KeyPair) ([]byte, error) {
	if kp.Public == nil || kp.Secret == nil {
		return nil, ErrInvalidKey
	}
	if len(ciphertext) < Overhead {
		return nil, fmt.Errorf("%w: ciphertext too short (%d < %d)", ErrOpen, len(ciphertext), Overhead)
	}
	msg, ok := box.OpenAnonymous(make([]byte, 0, len(ciphertext)-Overhead), ciphertext, kp.Public, kp.Secret)
	if !ok {
		return nil, ErrOpen
	}
	return msg, nil
}

// EncodePublicKey returns the padded standard base64 form of key.
func EncodePublicKey(key *PublicKey) string {
	return base64.StdEncoding.EncodeToString(key[:])
}

// DecodePublicKey parses the padded standard base64 form of a public key.
func DecodePublicKey(s string) (*PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyDecode, err)
	}
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrKeyDecode, len(raw), KeySize)
	}
	var key PublicKey
	copy(key[:], raw)
	return &key, nil
}

// Fingerprint returns a short printable identifier for a public key.
func Fingerprint(key *PublicKey) string {
	if key == nil {
		return "-"
	}
	const n = 8
	return fmt.Sprintf("%x", key[:n])
}
