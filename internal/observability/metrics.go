package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/sumoctl/internal/arsdk/frame"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sumoctl",
			Subsystem: "link",
			Name:      "frames_sent_total",
			Help:      "Frames written to the device.",
		},
		[]string{"type", "buffer"},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sumoctl",
			Subsystem: "link",
			Name:      "frames_received_total",
			Help:      "Frames decoded from the device.",
		},
		[]string{"type", "buffer"},
	)
	frameErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sumoctl",
			Subsystem: "link",
			Name:      "frame_errors_total",
			Help:      "Frame encode, decode and transport failures.",
		},
		[]string{"op"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sumoctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sumoctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesSent, framesReceived, frameErrors, httpRequests, httpDuration)
	})
}

func RecordFrameSent(f frame.Frame) {
	RegisterMetrics()
	framesSent.WithLabelValues(f.Type.String(), f.BufferID.String()).Inc()
}

func RecordFrameReceived(f frame.Frame) {
	RegisterMetrics()
	framesReceived.WithLabelValues(f.Type.String(), f.BufferID.String()).Inc()
}

// RecordFrameError counts a failure for op (encode, decode, write, read).
func RecordFrameError(op string) {
	RegisterMetrics()
	frameErrors.WithLabelValues(op).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
