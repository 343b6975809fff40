package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"github.com/danmuck/packetizer/internal/forward"
	"github.com/danmuck/packetizer/internal/observability"
	"github.com/danmuck/packetizer/internal/protocol/framer"
	"github.com/danmuck/packetizer/internal/stream"
	"github.com/rs/zerolog"
)

// counters mirror framer events with atomics so /status can read them from
// HTTP goroutines while the pump owns the framer.
type counters struct {
	starts    atomic.Uint64
	frames    atomic.Uint64
	overflows atomic.Uint64
	bytes     atomic.Uint64
}

func (c *counters) OnFrameStart() { c.starts.Add(1) }
func (c *counters) OnFrame([]byte) { c.frames.Add(1) }
func (c *counters) OnOverflow([]byte) { c.overflows.Add(1) }

type logSink struct {
	logger   zerolog.Logger
	payloads bool
}

func (s logSink) OnFrameStart() {
	s.logger.Trace().Msg("frame start")
}

func (s logSink) OnFrame(payload []byte) {
	event := s.logger.Info().Int("len", len(payload))
	if s.payloads {
		event = event.Str("payload", hex.EncodeToString(payload))
	}
	event.Msg("frame")
}

func (s logSink) OnOverflow(payload []byte) {
	s.logger.Warn().Int("capacity", len(payload)).Msg("buffer overflow, frame dropped")
}

type forwarder struct {
	sink  *forward.Sink
	close func()
}

type pipeline struct {
	cfg        runtimeConfig
	startHex   string
	endHex     string
	bufferSize int
	framer     *framer.Framer
	pump       *stream.Pump
	counts     *counters
	forwarders []forwarder
}

// dialers are swapped in tests.
type dialers struct {
	nats  func(url, name string) (forward.NATSConn, func(), error)
	redis func(addr string) (forward.StreamAdder, func())
}

func defaultDialers() dialers {
	return dialers{
		nats: func(url, name string) (forward.NATSConn, func(), error) {
			nc, err := forward.DialNATS(url, name)
			if err != nil {
				return nil, nil, err
			}
			return nc, func() {
				_ = nc.Drain()
			}, nil
		},
		redis: func(addr string) (forward.StreamAdder, func()) {
			rc := forward.NewRedisClient(addr)
			return rc, func() {
				_ = rc.Close()
			}
		},
	}
}

func newPipeline(ctx context.Context, cfg runtimeConfig, logger zerolog.Logger, d dialers) (*pipeline, error) {
	f, err := buildFramer(cfg)
	if err != nil {
		return nil, err
	}
	p := &pipeline{
		cfg:        cfg,
		startHex:   hex.EncodeToString(f.StartCondition()),
		endHex:     hex.EncodeToString(f.EndCondition()),
		bufferSize: f.BufferSize(),
		framer:     f,
		counts:     &counters{},
	}

	logger = logger.With().Str("stream", cfg.Stream).Logger()
	listeners := []any{
		p.counts,
		observability.NewMetricsSink(cfg.Stream),
		logSink{logger: logger, payloads: cfg.LogPayloads},
	}

	if cfg.NATSURL != "" {
		subject := cfg.NATSSubject
		if subject == "" {
			subject = "frames." + cfg.Stream
		}
		nc, closeFn, err := d.nats(cfg.NATSURL, "framectl-"+cfg.Stream)
		if err != nil {
			p.Close()
			return nil, err
		}
		if err := p.addForwarder(ctx, forward.NewNATSPublisher(nc, subject), closeFn); err != nil {
			closeFn()
			p.Close()
			return nil, err
		}
	}
	if cfg.RedisAddr != "" {
		key := cfg.RedisStream
		if key == "" {
			key = "frames:" + cfg.Stream
		}
		rc, closeFn := d.redis(cfg.RedisAddr)
		if err := p.addForwarder(ctx, forward.NewRedisPublisher(rc, key, cfg.RedisMaxLen), closeFn); err != nil {
			closeFn()
			p.Close()
			return nil, err
		}
	}
	for _, fw := range p.forwarders {
		listeners = append(listeners, fw.sink)
	}

	if err := f.SetListener(framer.Multi(listeners...)); err != nil {
		p.Close()
		return nil, err
	}

	p.pump = &stream.Pump{
		Framer:    f,
		ChunkSize: cfg.ChunkSize,
		OnChunk: func(n int) {
			p.counts.bytes.Add(uint64(n))
			observability.RecordBytes(cfg.Stream, n)
		},
	}
	return p, nil
}

func (p *pipeline) addForwarder(ctx context.Context, pub forward.Publisher, closeFn func()) error {
	sink, err := forward.NewSink(ctx, p.cfg.Stream, pub)
	if err != nil {
		return fmt.Errorf("forwarder %s: %w", pub.Target(), err)
	}
	p.forwarders = append(p.forwarders, forwarder{sink: sink, close: closeFn})
	return nil
}

func (p *pipeline) Close() {
	for _, fw := range p.forwarders {
		if fw.close != nil {
			fw.close()
		}
	}
	p.forwarders = nil
}

type pipelineStatus struct {
	Stream     string `json:"stream"`
	BufferSize int    `json:"buffer_size"`
	Start      string `json:"start_hex,omitempty"`
	End        string `json:"end_hex,omitempty"`
	Bytes      uint64 `json:"bytes"`
	Starts     uint64 `json:"frame_starts"`
	Frames     uint64 `json:"frames"`
	Overflows  uint64 `json:"overflows"`
	Forwarded  uint64 `json:"forwarded"`
	Failed     uint64 `json:"forward_failed"`
}

// status is safe to call concurrently with the pump: it reads only values
// fixed at construction and atomics.
func (p *pipeline) status() pipelineStatus {
	out := pipelineStatus{
		Stream:     p.cfg.Stream,
		BufferSize: p.bufferSize,
		Start:      p.startHex,
		End:        p.endHex,
		Bytes:      p.counts.bytes.Load(),
		Starts:     p.counts.starts.Load(),
		Frames:     p.counts.frames.Load(),
		Overflows:  p.counts.overflows.Load(),
	}
	for _, fw := range p.forwarders {
		published, failed := fw.sink.Stats()
		out.Forwarded += published
		out.Failed += failed
	}
	return out
}
