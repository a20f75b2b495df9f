package protocol

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
)

// Framing selects how payloads are delimited on the byte stream.
type Framing string

// Supported framings.
const (
	// FramingLine terminates every payload with '\n'. JSON payloads are
	// compact and escape newlines, so a line is always one message.
	FramingLine Framing = "line"
	// FramingLength prefixes every payload with its length as a 4-byte
	// big-endian integer.
	FramingLength Framing = "length"
	// FramingLegacy writes the payload as is; the reader collects fixed-size
	// chunks until a read comes back short. A payload whose size is an exact
	// multiple of the chunk size is only terminated by the next write or by
	// the peer closing the stream, so this mode exists for compatibility only.
	FramingLegacy Framing = "legacy"
)

// Protocol constants
const (
	protocolHeaderSize     = 4
	maxUint32Value         = 4294967295
	DefaultMaxMessageSize  = 1024 * 1024
	DefaultLegacyChunkSize = 65536
)

// ErrFrameTooLarge is returned when an incoming frame exceeds the configured
// maximum message size.
var ErrFrameTooLarge = errors.New("frame exceeds maximum message size")

// ParseFraming validates a framing name.
func ParseFraming(name string) (Framing, error) {
	switch f := Framing(name); f {
	case "":
		return FramingLine, nil
	case FramingLine, FramingLength, FramingLegacy:
		return f, nil
	}
	return "", errors.Newf("unknown framing %q", name)
}

// Options tunes frame reading. Zero values select the defaults.
type Options struct {
	MaxMessageSize  int // Largest accepted payload in bytes
	LegacyChunkSize int // Read size for FramingLegacy
}

func (o Options) withDefaults() Options {
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = DefaultMaxMessageSize
	}
	if o.LegacyChunkSize <= 0 {
		o.LegacyChunkSize = DefaultLegacyChunkSize
	}
	return o
}

// FrameReader reads one payload at a time from a stream. ReadFrame returns
// io.EOF when the stream ends cleanly between frames.
type FrameReader interface {
	ReadFrame() ([]byte, error)
}

// NewFrameReader returns a FrameReader for the given framing. The reader
// may buffer, so one FrameReader must be used for the life of the stream.
func NewFrameReader(f Framing, r io.Reader, opts Options) FrameReader {
	opts = opts.withDefaults()
	switch f {
	case FramingLength:
		return &lengthReader{r: r, max: opts.MaxMessageSize}
	case FramingLegacy:
		return &legacyReader{r: r, buf: make([]byte, opts.LegacyChunkSize), max: opts.MaxMessageSize}
	default:
		return &lineReader{r: bufio.NewReader(r), max: opts.MaxMessageSize}
	}
}

// WriteFrame writes payload to w using framing f.
//
// Example:
//
//	if err := protocol.WriteFrame(protocol.FramingLength, conn, payload); err != nil {
//		return err
//	}
func WriteFrame(f Framing, w io.Writer, payload []byte) error {
	switch f {
	case FramingLength:
		dataLen := len(payload)
		if dataLen > maxUint32Value {
			return errors.New("data too large")
		}
		frame := make([]byte, protocolHeaderSize, protocolHeaderSize+dataLen)
		binary.BigEndian.PutUint32(frame, uint32(dataLen))
		_, err := w.Write(append(frame, payload...))
		return err
	case FramingLegacy:
		_, err := w.Write(payload)
		return err
	default:
		if bytes.IndexByte(payload, '\n') >= 0 {
			return errors.New("payload contains a newline and cannot be line framed")
		}
		frame := make([]byte, 0, len(payload)+1)
		frame = append(frame, payload...)
		frame = append(frame, '\n')
		_, err := w.Write(frame)
		return err
	}
}

type lineReader struct {
	r   *bufio.Reader
	max int
}

// ReadFrame skips blank lines and tolerates a trailing '\r'.
func (l *lineReader) ReadFrame() ([]byte, error) {
	var frame []byte
	for {
		chunk, err := l.r.ReadSlice('\n')
		frame = append(frame, chunk...)
		if len(frame) > l.max+1 {
			return nil, ErrFrameTooLarge
		}

		switch {
		case err == nil:
			line := bytes.TrimRight(frame, "\r\n")
			if len(bytes.TrimSpace(line)) == 0 {
				frame = frame[:0]
				continue
			}
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(bytes.TrimSpace(frame)) > 0:
			return nil, io.ErrUnexpectedEOF
		default:
			return nil, err
		}
	}
}

type lengthReader struct {
	r   io.Reader
	max int
}

func (l *lengthReader) ReadFrame() ([]byte, error) {
	lengthBuf := make([]byte, protocolHeaderSize)
	if _, err := io.ReadFull(l.r, lengthBuf); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(lengthBuf)
	if uint64(length) > uint64(l.max) {
		return nil, errors.Wrapf(ErrFrameTooLarge, "%d bytes", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(l.r, data); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return data, nil
}

type legacyReader struct {
	r   io.Reader
	buf []byte
	max int
}

func (l *legacyReader) ReadFrame() ([]byte, error) {
	var frame []byte
	for {
		n, err := l.r.Read(l.buf)
		frame = append(frame, l.buf[:n]...)
		if len(frame) > l.max {
			return nil, ErrFrameTooLarge
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(frame) > 0 {
				return frame, nil
			}
			return nil, err
		}
		if n > 0 && n < len(l.buf) {
			return frame, nil
		}
	}
}
