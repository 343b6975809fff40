package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	frameStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packetizer",
			Subsystem: "framer",
			Name:      "frame_starts_total",
			Help:      "Start conditions matched.",
		},
		[]string{"stream"},
	)
	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packetizer",
			Subsystem: "framer",
			Name:      "frames_total",
			Help:      "Frames completed by an end condition.",
		},
		[]string{"stream"},
	)
	overflowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packetizer",
			Subsystem: "framer",
			Name:      "overflows_total",
			Help:      "Buffer overflows before an end condition.",
		},
		[]string{"stream"},
	)
	bytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packetizer",
			Subsystem: "framer",
			Name:      "bytes_total",
			Help:      "Bytes fed into the framer.",
		},
		[]string{"stream"},
	)
	frameSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "packetizer",
			Subsystem: "framer",
			Name:      "frame_size_bytes",
			Help:      "Payload size of completed frames.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"stream"},
	)
	forwardTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packetizer",
			Subsystem: "forward",
			Name:      "frames_total",
			Help:      "Frames handed to a forwarder.",
		},
		[]string{"stream", "target", "success"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packetizer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "packetizer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			frameStarts, framesTotal, overflowsTotal, bytesTotal, frameSize,
			forwardTotal, httpRequests, httpDuration,
		)
	})
}

func RecordFrameStart(stream string) {
	RegisterMetrics()
	frameStarts.WithLabelValues(stream).Inc()
}

func RecordFrame(stream string, size int) {
	RegisterMetrics()
	framesTotal.WithLabelValues(stream).Inc()
	frameSize.WithLabelValues(stream).Observe(float64(size))
}

func RecordOverflow(stream string) {
	RegisterMetrics()
	overflowsTotal.WithLabelValues(stream).Inc()
}

func RecordBytes(stream string, n int) {
	RegisterMetrics()
	bytesTotal.WithLabelValues(stream).Add(float64(n))
}

func RecordForward(stream, target string, success bool) {
	RegisterMetrics()
	forwardTotal.WithLabelValues(stream, target, strconv.FormatBool(success)).Inc()
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
