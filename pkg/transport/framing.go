package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/boxchat/boxchat-go/pkg/log"
	"github.com/boxchat/boxchat-go/pkg/wire"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4

	// DefaultMaxMessageSize is the default maximum payload size (64 KB).
	DefaultMaxMessageSize = 65536

	// DefaultReadChunkSize is how much a terminator framer asks the
	// transport for per read.
	DefaultReadChunkSize = 4096

	// MaxLogFrameDataSize is the maximum frame data size to include in logs (4 KB).
	MaxLogFrameDataSize = 4096

	// maxEmptyReads bounds consecutive (0, nil) reads before a read is
	// treated as stalled.
	maxEmptyReads = 100
)

// Framing errors.
var (
	// ErrMessageTooLarge indicates the payload exceeds the maximum size.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrMessageEmpty indicates an empty payload in length-prefix mode.
	ErrMessageEmpty = errors.New("message is empty")

	// ErrFrameTruncated indicates the stream ended inside a frame.
	ErrFrameTruncated = errors.New("frame truncated")

	// ErrTerminatorCollision indicates a payload that would be split early
	// because it contains the frame terminator.
	ErrTerminatorCollision = errors.New("payload contains frame terminator")

	// ErrInvalidTerminator indicates an empty terminator.
	ErrInvalidTerminator = errors.New("invalid frame terminator")
)

// FramingMode selects how payloads are delimited on the stream.
type FramingMode int

const (
	// FramingTerminator appends a fixed terminator to every payload.
	FramingTerminator FramingMode = iota

	// FramingLengthPrefix precedes every payload with a 4-byte big-endian length.
	FramingLengthPrefix
)

// String returns the mode name.
func (m FramingMode) String() string {
	switch m {
	case FramingTerminator:
		return "terminator"
	case FramingLengthPrefix:
		return "length-prefix"
	default:
		return "unknown"
	}
}

// ParseFramingMode parses "terminator" or "length-prefix".
func ParseFramingMode(s string) (FramingMode, error) {
	switch strings.ToLower(s) {
	case "", "terminator":
		return FramingTerminator, nil
	case "length-prefix", "length", "prefix":
		return FramingLengthPrefix, nil
	default:
		return FramingTerminator, fmt.Errorf("unknown framing mode %q", s)
	}
}

// FrameCodec reads and writes whole payloads on a byte stream.
// WriteFrame is safe for concurrent use; ReadFrame is not.
type FrameCodec interface {
	// ReadFrame blocks until a complete payload is available.
	ReadFrame() ([]byte, error)

	// WriteFrame writes payload and its delimiter as one Write.
	WriteFrame(payload []byte) error

	// SetLogger configures frame logging. Pass nil to disable.
	SetLogger(logger log.Logger, connID string)
}

// NewFrameCodec creates the codec for mode on rw.
func NewFrameCodec(mode FramingMode, rw io.ReadWriter, terminator []byte, maxSize uint32) (FrameCodec, error) {
	switch mode {
	case FramingTerminator:
		return NewTerminatorFramer(rw, terminator, maxSize)
	case FramingLengthPrefix:
		return NewLengthPrefixFramer(rw, maxSize), nil
	default:
		return nil, fmt.Errorf("unknown framing mode %d", mode)
	}
}

// frameLog holds the optional logger shared by both framers.
type frameLog struct {
	logger log.Logger
	connID string
}

func (fl *frameLog) SetLogger(logger log.Logger, connID string) {
	fl.logger = logger
	fl.connID = connID
}

func (fl *frameLog) log(data []byte, frameSize int, direction log.Direction) {
	if fl.logger == nil {
		return
	}

	frameData := data
	truncated := false
	if len(data) > MaxLogFrameDataSize {
		frameData = data[:MaxLogFrameDataSize]
		truncated = true
	}

	fl.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: fl.connID,
		Direction:    direction,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      frameSize,
			Data:      frameData,
			Truncated: truncated,
		},
	})
}

// TerminatorFramer delimits payloads with a fixed byte sequence.
//
// Reads accumulate into a length-aware buffer, so payloads may contain zero
// bytes. Bytes that arrive after a terminator stay buffered for the next
// ReadFrame.
type TerminatorFramer struct {
	rw             io.ReadWriter
	terminator     []byte
	maxMessageSize int

	// Read side, owned by the single reader.
	chunk   []byte
	buf     bytes.Buffer
	scanned int

	wmu sync.Mutex
	frameLog
}

// NewTerminatorFramer creates a terminator framer. A nil terminator selects
// wire.DefaultTerminator; a zero maxSize selects DefaultMaxMessageSize.
func NewTerminatorFramer(rw io.ReadWriter, terminator []byte, maxSize uint32) (*TerminatorFramer, error) {
	if terminator == nil {
		terminator = wire.DefaultTerminator
	}
	if len(terminator) == 0 {
		return nil, ErrInvalidTerminator
	}
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &TerminatorFramer{
		rw:             rw,
		terminator:     bytes.Clone(terminator),
		maxMessageSize: int(maxSize),
		chunk:          make([]byte, DefaultReadChunkSize),
	}, nil
}

// Terminator returns the delimiter in use.
func (f *TerminatorFramer) Terminator() []byte {
	return bytes.Clone(f.terminator)
}

// Check reports whether payload can be framed: it must fit the size limit
// and the first terminator in payload+terminator must be the appended one.
func (f *TerminatorFramer) Check(payload []byte) error {
	if len(payload) > f.maxMessageSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(payload), f.maxMessageSize)
	}
	frame := make([]byte, 0, len(payload)+len(f.terminator))
	frame = append(frame, payload...)
	frame = append(frame, f.terminator...)
	if bytes.Index(frame, f.terminator) != len(payload) {
		return ErrTerminatorCollision
	}
	return nil
}

// WriteFrame writes payload followed by the terminator in one Write.
func (f *TerminatorFramer) WriteFrame(payload []byte) error {
	if err := f.Check(payload); err != nil {
		return err
	}

	frame := make([]byte, 0, len(payload)+len(f.terminator))
	frame = append(frame, payload...)
	frame = append(frame, f.terminator...)

	f.wmu.Lock()
	defer f.wmu.Unlock()

	n, err := f.rw.Write(frame)
	if err == nil && n != len(frame) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransportWrite, err)
	}

	f.log(payload, len(frame), log.DirectionOut)
	return nil
}

// ReadFrame returns the bytes before the next terminator.
//
// Would-block and interrupted reads are retried. End of stream and every
// other read error are returned wrapped in ErrTransportRead.
func (f *TerminatorFramer) ReadFrame() ([]byte, error) {
	empty := 0
	for {
		if payload, ok := f.next(); ok {
			f.log(payload, len(payload)+len(f.terminator), log.DirectionIn)
			return payload, nil
		}
		if f.buf.Len() >= f.maxMessageSize+len(f.terminator) {
			size := f.buf.Len()
			f.reset()
			return nil, fmt.Errorf("%w: no terminator within %d bytes", ErrMessageTooLarge, size)
		}

		n, err := f.rw.Read(f.chunk)
		if n > 0 {
			f.buf.Write(f.chunk[:n])
			empty = 0
		}
		if err != nil {
			if isTransient(err) {
				continue
			}
			// A final chunk may still complete a frame.
			if payload, ok := f.next(); ok {
				f.log(payload, len(payload)+len(f.terminator), log.DirectionIn)
				return payload, nil
			}
			if errors.Is(err, io.EOF) && f.buf.Len() > 0 {
				err = fmt.Errorf("%w: %d bytes without terminator", ErrFrameTruncated, f.buf.Len())
			}
			return nil, fmt.Errorf("%w: %w", ErrTransportRead, err)
		}
		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				return nil, fmt.Errorf("%w: %w", ErrTransportRead, io.ErrNoProgress)
			}
		}
	}
}

// Buffered returns the number of bytes read past the last returned frame.
func (f *TerminatorFramer) Buffered() int {
	return f.buf.Len()
}

// next extracts one payload from the accumulation buffer. Only bytes not
// searched yet (plus an overlap for a terminator split across reads) are
// scanned.
func (f *TerminatorFramer) next() ([]byte, bool) {
	data := f.buf.Bytes()
	start := f.scanned - len(f.terminator) + 1
	if start < 0 {
		start = 0
	}

	idx := bytes.Index(data[start:], f.terminator)
	if idx < 0 {
		f.scanned = len(data)
		return nil, false
	}

	end := start + idx
	payload := bytes.Clone(data[:end])
	if payload == nil {
		payload = []byte{}
	}
	f.buf.Next(end + len(f.terminator))
	f.scanned = 0
	return payload, true
}

func (f *TerminatorFramer) reset() {
	f.buf.Reset()
	f.scanned = 0
}

// LengthPrefixFramer precedes every payload with its length as a 4-byte
// big-endian integer.
type LengthPrefixFramer struct {
	r              io.Reader
	w              io.Writer
	maxMessageSize uint32
	lengthBuf      [LengthPrefixSize]byte

	wmu sync.Mutex
	frameLog
}

// NewLengthPrefixFramer creates a length-prefix framer. A zero maxSize
// selects DefaultMaxMessageSize.
func NewLengthPrefixFramer(rw io.ReadWriter, maxSize uint32) *LengthPrefixFramer {
	if maxSize == 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &LengthPrefixFramer{
		r:              retryReader{rw},
		w:              rw,
		maxMessageSize: maxSize,
	}
}

// WriteFrame writes the length prefix and payload in one Write.
func (f *LengthPrefixFramer) WriteFrame(payload []byte) error {
	if len(payload) == 0 {
		return ErrMessageEmpty
	}
	if uint64(len(payload)) > uint64(f.maxMessageSize) {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(payload), f.maxMessageSize)
	}

	frame := make([]byte, LengthPrefixSize, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	frame = append(frame, payload...)

	f.wmu.Lock()
	defer f.wmu.Unlock()

	n, err := f.w.Write(frame)
	if err == nil && n != len(frame) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransportWrite, err)
	}

	f.log(payload, len(frame), log.DirectionOut)
	return nil
}

// ReadFrame reads one length-prefixed payload.
func (f *LengthPrefixFramer) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(f.r, f.lengthBuf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = ErrFrameTruncated
		}
		return nil, fmt.Errorf("%w: %w", ErrTransportRead, err)
	}

	length := binary.BigEndian.Uint32(f.lengthBuf[:])
	if length == 0 {
		return nil, ErrMessageEmpty
	}
	if length > f.maxMessageSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, f.maxMessageSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(f.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			err = ErrFrameTruncated
		}
		return nil, fmt.Errorf("%w: %w", ErrTransportRead, err)
	}

	f.log(payload, LengthPrefixSize+len(payload), log.DirectionIn)
	return payload, nil
}

// retryReader hides transient read errors from io.ReadFull.
type retryReader struct {
	r io.Reader
}

func (rr retryReader) Read(p []byte) (int, error) {
	for empty := 0; ; {
		n, err := rr.r.Read(p)
		if err != nil && n == 0 && isTransient(err) {
			continue
		}
		if n == 0 && err == nil {
			empty++
			if empty >= maxEmptyReads {
				return 0, io.ErrNoProgress
			}
			continue
		}
		return n, err
	}
}

var (
	_ FrameCodec = (*TerminatorFramer)(nil)
	_ FrameCodec = (*LengthPrefixFramer)(nil)
)
