package framer

import "errors"

var ErrInvalidListener = errors.New("framer: listener implements no handler")

// StartHandler is notified when a start condition completes.
type StartHandler interface {
	OnFrameStart()
}

// FrameHandler receives each completed frame. payload aliases the framer
// buffer and len(payload) is the frame length, delimiter excluded.
type FrameHandler interface {
	OnFrame(payload []byte)
}

// OverflowHandler receives the full buffer when it fills before an end
// condition completes. len(payload) is the buffer capacity.
type OverflowHandler interface {
	OnOverflow(payload []byte)
}

// Listener handles every framer event. Listeners passed to SetListener may
// implement any subset of the handler interfaces instead.
type Listener interface {
	StartHandler
	FrameHandler
	OverflowHandler
}

// Funcs adapts plain functions to a Listener. Nil fields are skipped.
type Funcs struct {
	Start    func()
	Frame    func(payload []byte)
	Overflow func(payload []byte)
}

var _ Listener = Funcs{}

func (f Funcs) OnFrameStart() {
	if f.Start != nil {
		f.Start()
	}
}

func (f Funcs) OnFrame(payload []byte) {
	if f.Frame != nil {
		f.Frame(payload)
	}
}

func (f Funcs) OnOverflow(payload []byte) {
	if f.Overflow != nil {
		f.Overflow(payload)
	}
}

// handlers is a listener resolved into its implemented handler set.
type handlers struct {
	start    StartHandler
	frame    FrameHandler
	overflow OverflowHandler
}

func resolve(l any) (handlers, bool) {
	var h handlers
	if l == nil {
		return h, false
	}
	h.start, _ = l.(StartHandler)
	h.frame, _ = l.(FrameHandler)
	h.overflow, _ = l.(OverflowHandler)
	return h, h.start != nil || h.frame != nil || h.overflow != nil
}

func (h handlers) onStart() {
	if h.start != nil {
		h.start.OnFrameStart()
	}
}

func (h handlers) onFrame(payload []byte) {
	if h.frame != nil {
		h.frame.OnFrame(payload)
	}
}

func (h handlers) onOverflow(payload []byte) {
	if h.overflow != nil {
		h.overflow.OnOverflow(payload)
	}
}

type multi []handlers

// Multi fans every event out to each listener in order. Each listener may
// implement any subset of the handler interfaces; those implementing none
// are dropped.
func Multi(listeners ...any) Listener {
	out := make(multi, 0, len(listeners))
	for _, l := range listeners {
		if h, ok := resolve(l); ok {
			out = append(out, h)
		}
	}
	return out
}

func (m multi) OnFrameStart() {
	for _, h := range m {
		h.onStart()
	}
}

func (m multi) OnFrame(payload []byte) {
	for _, h := range m {
		h.onFrame(payload)
	}
}

func (m multi) OnOverflow(payload []byte) {
	for _, h := range m {
		h.onOverflow(payload)
	}
}
