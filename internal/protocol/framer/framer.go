package framer

import (
	"errors"
	"io"

	"github.com/danmuck/packetizer/internal/protocol/match"
)

// DefaultBufferSize is the capacity used by NewDefault.
const DefaultBufferSize = 32

var (
	ErrNoBuffer    = errors.New("framer: no buffer")
	ErrInvalidSize = errors.New("framer: invalid size")
)

// Framer reassembles delimited frames from a byte stream.
//
// The zero value has no buffer; every append on it fails with ErrNoBuffer
// until SetBufferSize succeeds.
type Framer struct {
	buf   []byte
	index int

	start      match.Matcher
	end        match.Matcher
	startFound bool

	lastLen  int
	resolved bool

	funcs    Funcs
	listener handlers
}

// New returns a Framer with a buffer of capacity bytes.
func New(capacity int) (*Framer, error) {
	f := &Framer{}
	if err := f.SetBufferSize(capacity); err != nil {
		return nil, err
	}
	return f, nil
}

// NewDefault returns a Framer with a DefaultBufferSize buffer.
func NewDefault() *Framer {
	f := &Framer{}
	_ = f.SetBufferSize(DefaultBufferSize)
	return f
}

// SetBufferSize replaces the buffer with one of exactly n bytes and clears
// all framing state. Configured conditions and handlers are kept. A failed
// call leaves the Framer untouched.
func (f *Framer) SetBufferSize(n int) error {
	if n <= 0 {
		return ErrInvalidSize
	}
	f.buf = make([]byte, n)
	f.Clear()
	return nil
}

// Clear drops any buffered data and resets matching state. Conditions and
// handlers are kept.
func (f *Framer) Clear() {
	f.reset()
	clear(f.buf)
}

func (f *Framer) reset() {
	f.index = 0
	f.start.Reset()
	f.end.Reset()
	f.startFound = false
	f.lastLen = 0
	f.resolved = false
}

// SetStartCondition sets the delimiter that must precede each frame. An
// empty pattern removes the start condition. Any in-progress frame is
// dropped.
func (f *Framer) SetStartCondition(pattern []byte) {
	f.start.Set(pattern)
	f.reset()
}

// SetEndCondition sets the delimiter that completes each frame. An empty
// pattern removes the end condition, leaving overflow as the only way the
// buffer is handed out. Any in-progress frame is dropped.
func (f *Framer) SetEndCondition(pattern []byte) {
	f.end.Set(pattern)
	f.reset()
}

func (f *Framer) SetStartString(s string) {
	f.SetStartCondition([]byte(s))
}

func (f *Framer) SetEndString(s string) {
	f.SetEndCondition([]byte(s))
}

// SetListener attaches l, replacing any previous listener. l may implement
// any subset of StartHandler, FrameHandler and OverflowHandler.
func (f *Framer) SetListener(l any) error {
	h, ok := resolve(l)
	if !ok {
		return ErrInvalidListener
	}
	f.listener = h
	return nil
}

func (f *Framer) RemoveListener() {
	f.listener = handlers{}
}

// OnStart sets the function called when a start condition completes.
// Functions run before the listener. Passing nil removes it.
func (f *Framer) OnStart(fn func()) {
	f.funcs.Start = fn
}

// OnFrame sets the function called with each completed frame.
func (f *Framer) OnFrame(fn func(payload []byte)) {
	f.funcs.Frame = fn
}

// OnOverflow sets the function called with the full buffer on overflow.
func (f *Framer) OnOverflow(fn func(payload []byte)) {
	f.funcs.Overflow = fn
}

// AppendByte feeds one byte through the start matcher, the buffer and the
// end matcher, dispatching at most one event.
func (f *Framer) AppendByte(b byte) error {
	if len(f.buf) == 0 {
		return ErrNoBuffer
	}
	f.resolved = false

	if f.start.Enabled() {
		if f.start.Feed(b) {
			f.index = 0
			f.end.Reset()
			f.startFound = true
			f.emitStart()
			return nil
		}
		if !f.startFound {
			return nil
		}
	}

	f.buf[f.index] = b

	if f.end.Feed(b) {
		n := 0
		if endLen := f.end.Len(); f.index >= endLen {
			n = f.index + 1 - endLen
		}
		f.lastLen = n
		f.resolved = true
		f.emitFrame(f.buf[:n])

		f.index = 0
		f.end.Reset()
		f.start.Reset()
		f.startFound = false
		return nil
	}

	f.index++
	if f.index >= len(f.buf) {
		// Only the write position wraps; a partial end match carries over.
		f.emitOverflow(f.buf)
		f.index = 0
	}
	return nil
}

// Append feeds every byte of p in order.
func (f *Framer) Append(p []byte) error {
	if len(f.buf) == 0 {
		return ErrNoBuffer
	}
	if len(p) == 0 {
		return ErrInvalidSize
	}
	for _, b := range p {
		_ = f.AppendByte(b)
	}
	return nil
}

func (f *Framer) AppendString(s string) error {
	if len(f.buf) == 0 {
		return ErrNoBuffer
	}
	if len(s) == 0 {
		return ErrInvalidSize
	}
	for i := 0; i < len(s); i++ {
		_ = f.AppendByte(s[i])
	}
	return nil
}

// Write implements io.Writer. An empty p is a no-op.
func (f *Framer) Write(p []byte) (int, error) {
	if len(f.buf) == 0 {
		return 0, ErrNoBuffer
	}
	for _, b := range p {
		_ = f.AppendByte(b)
	}
	return len(p), nil
}

var _ io.Writer = (*Framer)(nil)

func (f *Framer) BufferSize() int {
	return len(f.buf)
}

// Buffer returns the whole internal buffer. Only the first Buffered() bytes
// belong to the frame in progress.
func (f *Framer) Buffer() []byte {
	return f.buf
}

// Buffered returns the bytes written to the frame in progress.
func (f *Framer) Buffered() []byte {
	return f.buf[:f.index]
}

// LastFrameLength reports the length of the frame completed by the most
// recent append call. ok is false when that call did not complete a frame.
func (f *Framer) LastFrameLength() (n int, ok bool) {
	if !f.resolved {
		return 0, false
	}
	return f.lastLen, true
}

func (f *Framer) HasStartCondition() bool {
	return f.start.Enabled()
}

func (f *Framer) HasEndCondition() bool {
	return f.end.Enabled()
}

// StartCondition returns a copy of the start pattern, nil when unset.
func (f *Framer) StartCondition() []byte {
	return f.start.Pattern()
}

// EndCondition returns a copy of the end pattern, nil when unset.
func (f *Framer) EndCondition() []byte {
	return f.end.Pattern()
}

// WriteStartCondition writes the start pattern to w. It does nothing when no
// start condition is set.
func (f *Framer) WriteStartCondition(w io.Writer) error {
	return writePattern(w, &f.start)
}

// WriteEndCondition writes the end pattern to w. It does nothing when no end
// condition is set.
func (f *Framer) WriteEndCondition(w io.Writer) error {
	return writePattern(w, &f.end)
}

func writePattern(w io.Writer, m *match.Matcher) error {
	if !m.Enabled() {
		return nil
	}
	_, err := w.Write(m.Pattern())
	return err
}

func (f *Framer) emitStart() {
	f.funcs.OnFrameStart()
	f.listener.onStart()
}

func (f *Framer) emitFrame(payload []byte) {
	f.funcs.OnFrame(payload)
	f.listener.onFrame(payload)
}

func (f *Framer) emitOverflow(payload []byte) {
	f.funcs.OnOverflow(payload)
	f.listener.onOverflow(payload)
}
