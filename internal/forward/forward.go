// Package forward publishes completed frames to message brokers.
package forward

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"

	"github.com/danmuck/packetizer/internal/observability"
	"github.com/danmuck/packetizer/internal/protocol/framer"
	"github.com/rs/zerolog/log"
)

var ErrNoPublisher = errors.New("forward: no publisher")

// Publisher delivers one frame payload. Implementations own payload after
// the call returns.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
	Target() string
}

// Sink is a framer FrameHandler that copies each completed frame out of the
// framer buffer and hands it to a Publisher. Publish failures are logged and
// counted; they never reach the framer.
type Sink struct {
	ctx    context.Context
	stream string
	pub    Publisher

	published atomic.Uint64
	failed    atomic.Uint64
}

var _ framer.FrameHandler = (*Sink)(nil)

func NewSink(ctx context.Context, stream string, pub Publisher) (*Sink, error) {
	if pub == nil {
		return nil, ErrNoPublisher
	}
	return &Sink{ctx: ctx, stream: stream, pub: pub}, nil
}

func (s *Sink) OnFrame(payload []byte) {
	cp := bytes.Clone(payload)
	if err := s.pub.Publish(s.ctx, cp); err != nil {
		s.failed.Add(1)
		observability.RecordForward(s.stream, s.pub.Target(), false)
		log.Warn().
			Err(err).
			Str("stream", s.stream).
			Str("target", s.pub.Target()).
			Int("bytes", len(cp)).
			Msg("frame forward failed")
		return
	}
	s.published.Add(1)
	observability.RecordForward(s.stream, s.pub.Target(), true)
}

// Stats returns forwarded and failed frame counts. Safe for concurrent use.
func (s *Sink) Stats() (published, failed uint64) {
	return s.published.Load(), s.failed.Load()
}
