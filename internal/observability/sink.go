package observability

import (
	"github.com/danmuck/packetizer/internal/protocol/framer"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink records framer events for one stream. Counters are resolved
// once so the event path does no label lookups.
type MetricsSink struct {
	starts    prometheus.Counter
	frames    prometheus.Counter
	overflows prometheus.Counter
	sizes     prometheus.Observer
}

var _ framer.Listener = (*MetricsSink)(nil)

func NewMetricsSink(stream string) *MetricsSink {
	RegisterMetrics()
	return &MetricsSink{
		starts:    frameStarts.WithLabelValues(stream),
		frames:    framesTotal.WithLabelValues(stream),
		overflows: overflowsTotal.WithLabelValues(stream),
		sizes:     frameSize.WithLabelValues(stream),
	}
}

func (s *MetricsSink) OnFrameStart() {
	s.starts.Inc()
}

func (s *MetricsSink) OnFrame(payload []byte) {
	s.frames.Inc()
	s.sizes.Observe(float64(len(payload)))
}

func (s *MetricsSink) OnOverflow([]byte) {
	s.overflows.Inc()
}
