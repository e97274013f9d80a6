package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/boxchat/boxchat-go/pkg/log"
	"github.com/boxchat/boxchat-go/pkg/seal"
	"github.com/boxchat/boxchat-go/pkg/wire"
)

// DefaultPort is the conventional boxchat TCP port.
const DefaultPort = 16999

// MaxSealAttempts bounds how often a payload is re-sealed when its
// ciphertext happens to contain the frame terminator.
const MaxSealAttempts = 3

// ConnectionState is the transport lifecycle state.
type ConnectionState int

const (
	// StateDisconnected indicates no transport is attached yet.
	StateDisconnected ConnectionState = iota

	// StateConnecting indicates resolution or dialing in progress.
	StateConnecting

	// StateConnected indicates an attached transport.
	StateConnected

	// StateClosed indicates the connection was torn down.
	StateClosed
)

// String returns the connection state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// EncryptionState is the handshake state. ENCRYPTED is terminal.
type EncryptionState int

const (
	// StateUnencrypted indicates frames travel in plaintext.
	StateUnencrypted EncryptionState = iota

	// StateEncrypted indicates every frame is a sealed box.
	StateEncrypted
)

// String returns the encryption state name.
func (s EncryptionState) String() string {
	switch s {
	case StateUnencrypted:
		return "UNENCRYPTED"
	case StateEncrypted:
		return "ENCRYPTED"
	default:
		return "UNKNOWN"
	}
}

// ConnectionConfig configures a boxchat connection.
type ConnectionConfig struct {
	// Framing selects the frame delimiter (default: terminator).
	Framing FramingMode

	// Terminator is the frame delimiter in terminator mode
	// (default: wire.DefaultTerminator).
	Terminator []byte

	// MaxMessageSize is the maximum frame payload size (default: 64KB).
	MaxMessageSize uint32

	// Family restricts which addresses Connect may dial.
	Family AddressFamily

	// Resolver resolves hosts for Connect (default: DefaultResolver).
	Resolver *Resolver

	// ConnectTimeout bounds dialing (0 = no timeout beyond the context).
	ConnectTimeout time.Duration

	// ReadTimeout is the deadline for each Receive (0 = no timeout).
	ReadTimeout time.Duration

	// WriteTimeout is the deadline for each send (0 = no timeout).
	WriteTimeout time.Duration

	// CloseTimeout bounds the best-effort exit notice sent by Close (default: 2s).
	CloseTimeout time.Duration

	// Logger for protocol logging (optional).
	Logger log.Logger
}

// DefaultConnectionConfig returns the default connection configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		Framing:        FramingTerminator,
		Terminator:     wire.DefaultTerminator,
		MaxMessageSize: DefaultMaxMessageSize,
		Family:         FamilyAny,
		CloseTimeout:   2 * time.Second,
	}
}

// Connection is one end of a boxchat link.
//
// Both ends run the same state machine whether they dialed or accepted.
// Any number of goroutines may send concurrently; Receive calls are
// serialized and key exchanges are handled as a side effect of Receive.
type Connection struct {
	config ConnectionConfig
	connID string
	role   log.Role
	keys   seal.KeyPair

	// Set once before state becomes StateConnected.
	conn   net.Conn
	framer FrameCodec

	state     atomic.Int32
	attached  atomic.Bool
	active    atomic.Bool
	closeOnce sync.Once
	onClose   func(*Connection)

	// sendMu serializes the outbound path. keySent and encrypted are
	// only written while it is held.
	sendMu    sync.Mutex
	keySent   atomic.Bool
	encrypted atomic.Bool
	remoteKey atomic.Pointer[seal.PublicKey]

	recvMu sync.Mutex
}

// NewConnection creates an unattached connection with a fresh key pair.
func NewConnection(config ConnectionConfig) (*Connection, error) {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.Terminator == nil {
		config.Terminator = wire.DefaultTerminator
	}
	if config.CloseTimeout == 0 {
		config.CloseTimeout = 2 * time.Second
	}
	if config.Resolver == nil {
		config.Resolver = DefaultResolver
	}

	if err := seal.Init(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCryptoInit, err)
	}
	keys, err := seal.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCryptoInit, err)
	}

	c := &Connection{
		config: config,
		connID: uuid.New().String(),
		keys:   keys,
	}
	c.state.Store(int32(StateDisconnected))
	return c, nil
}

// Dial creates a connection and connects it to host:port.
func Dial(ctx context.Context, config ConnectionConfig, host string, port int) (*Connection, error) {
	c, err := NewConnection(config)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(ctx, host, port); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// WithConnection runs fn and closes c when fn returns or panics.
// A Close error is returned only when fn itself succeeded.
func WithConnection(c *Connection, fn func(*Connection) error) (err error) {
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(c)
}

// ConnID returns the unique connection identifier.
func (c *Connection) ConnID() string {
	return c.connID
}

// State returns the transport lifecycle state.
func (c *Connection) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// Active reports whether a transport is attached and not yet closed.
func (c *Connection) Active() bool {
	return c.active.Load()
}

// Encrypted reports whether frames are now sealed.
func (c *Connection) Encrypted() bool {
	return c.encrypted.Load()
}

// EncryptionState returns the handshake state.
func (c *Connection) EncryptionState() EncryptionState {
	if c.encrypted.Load() {
		return StateEncrypted
	}
	return StateUnencrypted
}

// HandshakePending reports whether this side offered its key and is still
// waiting for the peer's.
func (c *Connection) HandshakePending() bool {
	return c.keySent.Load() && !c.encrypted.Load()
}

// LocalPublicKey returns a copy of the local public key.
func (c *Connection) LocalPublicKey() *seal.PublicKey {
	k := *c.keys.Public
	return &k
}

// RemotePublicKey returns a copy of the peer's key, or nil before the
// peer's key exchange arrived.
func (c *Connection) RemotePublicKey() *seal.PublicKey {
	p := c.remoteKey.Load()
	if p == nil {
		return nil
	}
	k := *p
	return &k
}

// LocalAddr returns the local network address, or nil when unattached.
func (c *Connection) LocalAddr() net.Addr {
	if !c.attached.Load() {
		return nil
	}
	return c.conn.LocalAddr()
}

// RemoteAddr returns the peer's network address, or nil when unattached.
func (c *Connection) RemoteAddr() net.Addr {
	if !c.attached.Load() {
		return nil
	}
	return c.conn.RemoteAddr()
}

// Connect resolves host and dials the first address it yields.
func (c *Connection) Connect(ctx context.Context, host string, port int) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		if c.State() == StateClosed {
			return ErrConnectionClosed
		}
		return ErrAlreadyConnected
	}
	c.role = log.RoleDialer
	c.logState(StateDisconnected, StateConnecting, "")

	fail := func(err error) error {
		c.state.CompareAndSwap(int32(StateConnecting), int32(StateDisconnected))
		c.logState(StateConnecting, StateDisconnected, err.Error())
		return err
	}

	addrs := c.config.Resolver.Resolve(ctx, host, c.config.Family)
	if len(addrs) == 0 {
		return fail(fmt.Errorf("%w: %q (%s)", ErrAddressing, host, c.config.Family))
	}
	address := net.JoinHostPort(addrs[0], strconv.Itoa(port))

	dialer := &net.Dialer{Timeout: c.config.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		if isResourceExhausted(err) {
			return fail(fmt.Errorf("%w: %w", ErrTransportCreation, err))
		}
		return fail(fmt.Errorf("%w: %s: %w", ErrDial, address, err))
	}

	if err := c.attach(conn, StateConnecting); err != nil {
		conn.Close()
		return fail(err)
	}
	return nil
}

// Attach hands an already established transport to the connection, for
// example one returned by a listener's Accept.
func (c *Connection) Attach(conn net.Conn) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		if c.State() == StateClosed {
			return ErrConnectionClosed
		}
		return ErrAlreadyConnected
	}
	c.role = log.RoleListener
	if err := c.attach(conn, StateDisconnected); err != nil {
		c.state.CompareAndSwap(int32(StateConnecting), int32(StateDisconnected))
		return err
	}
	return nil
}

func (c *Connection) attach(conn net.Conn, from ConnectionState) error {
	framer, err := NewFrameCodec(c.config.Framing, conn, c.config.Terminator, c.config.MaxMessageSize)
	if err != nil {
		return err
	}
	if c.config.Logger != nil {
		framer.SetLogger(c.config.Logger, c.connID)
	}

	c.conn = conn
	c.framer = framer
	c.attached.Store(true)
	c.active.Store(true)

	// A concurrent Close wins over a dial that finishes late.
	if !c.state.CompareAndSwap(int32(StateConnecting), int32(StateConnected)) {
		c.active.Store(false)
		return ErrConnectionClosed
	}
	c.logState(from, StateConnected, "")
	return nil
}

// Send writes raw as one frame, sealing it first once the connection is
// encrypted. raw must already carry its payload tag.
func (c *Connection) Send(raw []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.sendLocked(raw)
}

// SendMessage sends chat text.
func (c *Connection) SendMessage(text string) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.keySent.Load() && !c.encrypted.Load() {
		return ErrHandshakePending
	}
	return c.sendLocked(wire.EncodeText(text))
}

// SendInternal sends a control body. A body starting with the key exchange
// tag counts as this side's key offer.
func (c *Connection) SendInternal(body []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err := c.sendLocked(wire.EncodeInternal(body)); err != nil {
		return err
	}
	if bytes.HasPrefix(body, []byte(wire.ControlPublicKeyTag)) {
		c.keySent.Store(true)
	}
	return nil
}

// InitiateHandshake offers the local public key to the peer. The
// connection switches to encrypted mode when Receive sees the peer's reply.
// Calling it again, or after the peer already offered its key, does nothing.
func (c *Connection) InitiateHandshake() error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.keySent.Load() || c.encrypted.Load() {
		return nil
	}
	if err := c.sendKeyLocked(); err != nil {
		return err
	}
	return nil
}

func (c *Connection) sendKeyLocked() error {
	encoded := seal.EncodePublicKey(c.keys.Public)
	if err := c.sendLocked(wire.EncodePublicKey(encoded)); err != nil {
		return err
	}
	c.keySent.Store(true)
	c.logControl(log.DirectionOut, log.ControlMsgPublicKey, seal.Fingerprint(c.keys.Public))
	return nil
}

func (c *Connection) sendLocked(raw []byte) error {
	if c.State() != StateConnected || !c.active.Load() {
		if c.State() == StateClosed {
			return ErrConnectionClosed
		}
		return ErrNotConnected
	}

	if c.config.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}

	sealed := c.encrypted.Load()
	if !sealed {
		if err := c.framer.WriteFrame(raw); err != nil {
			c.logError(log.LayerTransport, err, "send")
			return err
		}
		c.logMessage(log.DirectionOut, raw, false)
		return nil
	}

	peer := c.remoteKey.Load()
	var err error
	for attempt := 0; attempt < MaxSealAttempts; attempt++ {
		var ct []byte
		ct, err = seal.Seal(raw, peer)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrTransportWrite, err)
			break
		}
		err = c.framer.WriteFrame(ct)
		if !errors.Is(err, ErrTerminatorCollision) {
			break
		}
	}
	if err != nil {
		c.logError(log.LayerCrypto, err, "send")
		return err
	}
	c.logMessage(log.DirectionOut, raw, true)
	return nil
}

// Receive blocks until the next frame arrives and returns it decoded.
//
// Frames are opened once the connection is encrypted. A key exchange from
// the peer is handled here: the key is stored, the local key is sent back
// unless it was already offered, and the connection switches to encrypted
// mode. The key exchange is still returned to the caller as an internal
// message without text. An exit notice is returned as is; the caller is
// expected to close its side.
func (c *Connection) Receive() (wire.Message, error) {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()

	if c.State() != StateConnected || !c.active.Load() {
		if c.State() == StateClosed {
			return wire.Message{}, ErrConnectionClosed
		}
		return wire.Message{}, ErrNotConnected
	}

	if c.config.ReadTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}

	frame, err := c.framer.ReadFrame()
	if err != nil {
		if !c.active.Load() {
			return wire.Message{}, fmt.Errorf("%w: %w", ErrConnectionClosed, err)
		}
		c.logError(log.LayerTransport, err, "receive")
		return wire.Message{}, err
	}

	// Only Receive flips the flag, and Receive is serialized.
	sealed := c.encrypted.Load()
	payload := frame
	if sealed {
		payload, err = seal.Open(frame, c.keys)
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrDecryption, err)
			c.logError(log.LayerCrypto, err, "receive")
			return wire.Message{}, err
		}
	}

	msg, err := wire.Decode(payload)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrMalformedMessage, err)
		c.logError(log.LayerWire, err, "receive")
		return wire.Message{}, err
	}
	c.logMessage(log.DirectionIn, payload, sealed)

	switch msg.Control {
	case wire.ControlPublicKey:
		if err := c.handleKeyExchange(msg); err != nil {
			return msg, err
		}
	case wire.ControlExit:
		c.logControl(log.DirectionIn, log.ControlMsgExit, "")
	case wire.ControlUnknown:
		c.logControl(log.DirectionIn, log.ControlMsgUnknown, "")
	}
	return msg, nil
}

func (c *Connection) handleKeyExchange(msg wire.Message) error {
	key, err := seal.DecodePublicKey(msg.PublicKey())
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrHandshakeDecode, err)
		c.logError(log.LayerCrypto, err, "key exchange")
		return err
	}
	c.logControl(log.DirectionIn, log.ControlMsgPublicKey, seal.Fingerprint(key))

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.remoteKey.CompareAndSwap(nil, key) {
		c.logError(log.LayerCrypto, ErrDuplicateKeyExchange, "key exchange")
		return ErrDuplicateKeyExchange
	}

	// The reply goes out in plaintext before the flag flips; no sealed
	// frame can be written in between because sendMu is held.
	if !c.keySent.Load() {
		if err := c.sendKeyLocked(); err != nil {
			return err
		}
	}

	c.encrypted.Store(true)
	c.logEncryption()
	return nil
}

// Close sends a best-effort exit notice, closes the transport and marks the
// connection inactive. Only the first call does anything; later calls
// return nil.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.teardown()
	})
	return err
}

func (c *Connection) teardown() error {
	prev := ConnectionState(c.state.Swap(int32(StateClosed)))
	if prev != StateConnected {
		c.active.Store(false)
		return nil
	}

	// Bounds both the exit write and any send blocked on a stalled peer.
	c.conn.SetWriteDeadline(time.Now().Add(c.config.CloseTimeout))

	c.sendMu.Lock()
	if !c.HandshakePending() {
		c.writeExitLocked()
	}
	c.active.Store(false)
	c.sendMu.Unlock()

	err := c.conn.Close()
	c.logState(StateConnected, StateClosed, "")

	if c.onClose != nil {
		c.onClose(c)
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// writeExitLocked writes the exit notice directly: the state is already
// StateClosed, which sendLocked refuses.
func (c *Connection) writeExitLocked() {
	raw := wire.EncodeExit()
	payload := raw
	if c.encrypted.Load() {
		var err error
		for attempt := 0; attempt < MaxSealAttempts; attempt++ {
			payload, err = seal.Seal(raw, c.remoteKey.Load())
			if err != nil {
				return
			}
			if err = c.framer.WriteFrame(payload); !errors.Is(err, ErrTerminatorCollision) {
				break
			}
		}
		if err != nil {
			return
		}
	} else if err := c.framer.WriteFrame(payload); err != nil {
		return
	}
	c.logControl(log.DirectionOut, log.ControlMsgExit, "")
}

// Protocol logging helpers.

func (c *Connection) baseEvent(dir log.Direction, layer log.Layer, cat log.Category) log.Event {
	ev := log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    dir,
		Layer:        layer,
		Category:     cat,
		LocalRole:    c.role,
	}
	if c.attached.Load() {
		ev.RemoteAddr = c.conn.RemoteAddr().String()
	}
	return ev
}

func (c *Connection) logState(from, to ConnectionState, reason string) {
	if c.config.Logger == nil {
		return
	}
	ev := c.baseEvent(log.DirectionIn, log.LayerTransport, log.CategoryState)
	ev.StateChange = &log.StateChangeEvent{
		Entity:   log.StateEntityConnection,
		OldState: from.String(),
		NewState: to.String(),
		Reason:   reason,
	}
	c.config.Logger.Log(ev)
}

func (c *Connection) logEncryption() {
	if c.config.Logger == nil {
		return
	}
	ev := c.baseEvent(log.DirectionIn, log.LayerCrypto, log.CategoryState)
	ev.StateChange = &log.StateChangeEvent{
		Entity:   log.StateEntityEncryption,
		OldState: StateUnencrypted.String(),
		NewState: StateEncrypted.String(),
		Reason:   "peer key received",
	}
	c.config.Logger.Log(ev)
}

func (c *Connection) logMessage(dir log.Direction, payload []byte, sealed bool) {
	if c.config.Logger == nil {
		return
	}
	msg, err := wire.Decode(payload)
	if err != nil {
		return
	}
	ev := c.baseEvent(dir, log.LayerWire, log.CategoryMessage)
	me := &log.MessageEvent{Size: len(payload), Sealed: sealed}
	if msg.Kind == wire.KindText {
		me.Kind = log.MessageKindText
		me.Text = truncateText(msg.Text(), MaxLogFrameDataSize)
	} else {
		me.Kind = log.MessageKindInternal
	}
	ev.Message = me
	c.config.Logger.Log(ev)
}

func (c *Connection) logControl(dir log.Direction, typ log.ControlMsgType, fingerprint string) {
	if c.config.Logger == nil {
		return
	}
	ev := c.baseEvent(dir, log.LayerCrypto, log.CategoryControl)
	ev.ControlMsg = &log.ControlMsgEvent{Type: typ, Fingerprint: fingerprint}
	c.config.Logger.Log(ev)
}

func (c *Connection) logError(layer log.Layer, err error, context string) {
	if c.config.Logger == nil {
		return
	}
	ev := c.baseEvent(log.DirectionIn, layer, log.CategoryError)
	ev.Error = &log.ErrorEventData{Layer: layer, Message: err.Error(), Context: context}
	c.config.Logger.Log(ev)
}

func truncateText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
