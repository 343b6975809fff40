package frame

import (
	"errors"
	"io"

	"github.com/danmuck/packetizer/internal/protocol/match"
)

var (
	ErrNoEndDelimiter      = errors.New("frame: end delimiter required")
	ErrPayloadTooLarge     = errors.New("frame: payload too large")
	ErrPayloadHasDelimiter = errors.New("frame: payload would be split by a delimiter")
)

// Delimiters are the start and end patterns wrapped around each payload.
// Start may be empty.
type Delimiters struct {
	Start []byte
	End   []byte
}

// Limits constrains frame encode size.
type Limits struct {
	MaxPayloadBytes uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 64 * 1024,
	}
}

// LimitsFor bounds payloads to what a receiving framer buffer of capacity
// bytes can hold: the end delimiter is buffered before it is recognised.
func LimitsFor(capacity int, d Delimiters) Limits {
	n := capacity - len(d.End)
	if n < 0 {
		n = 0
	}
	return Limits{MaxPayloadBytes: uint64(n)}
}

// Check reports whether a receiver framing with d would hand payload back
// intact: neither delimiter may complete early inside payload+end.
func (d Delimiters) Check(payload []byte, limits Limits) error {
	if len(d.End) == 0 {
		return ErrNoEndDelimiter
	}
	if uint64(len(payload)) > limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}

	start := match.New(d.Start)
	end := match.New(d.End)
	total := len(payload) + len(d.End)
	for i := 0; i < total; i++ {
		b := byteAt(payload, d.End, i)
		if start.Feed(b) {
			return ErrPayloadHasDelimiter
		}
		if end.Feed(b) && i != total-1 {
			return ErrPayloadHasDelimiter
		}
	}
	return nil
}

func byteAt(payload, end []byte, i int) byte {
	if i < len(payload) {
		return payload[i]
	}
	return end[i-len(payload)]
}

// AppendFrame appends start, payload and end to dst.
func AppendFrame(dst []byte, d Delimiters, payload []byte, limits Limits) ([]byte, error) {
	if err := d.Check(payload, limits); err != nil {
		return dst, err
	}
	dst = append(dst, d.Start...)
	dst = append(dst, payload...)
	dst = append(dst, d.End...)
	return dst, nil
}

// WriteFrame writes start, payload and end to w.
func WriteFrame(w io.Writer, d Delimiters, payload []byte, limits Limits) error {
	if err := d.Check(payload, limits); err != nil {
		return err
	}
	if len(d.Start) > 0 {
		if _, err := w.Write(d.Start); err != nil {
			return err
		}
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	if _, err := w.Write(d.End); err != nil {
		return err
	}
	return nil
}
