// Package metrics exposes Prometheus counters and gauges for the bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all instruments. Create one per process with New and share it
// across sessions; every instrument is safe for concurrent use.
type Metrics struct {
	SessionsActive  prometheus.Gauge
	SessionsCreated prometheus.Counter
	DialFailures    prometheus.Counter

	ClientFrames   prometheus.Counter
	UpstreamFrames prometheus.Counter

	ChunksEncoded     prometheus.Counter
	EncodeErrors      prometheus.Counter
	DecodeErrors      prometheus.Counter
	ContainersFlushed prometheus.Counter

	BytesTransferred *prometheus.CounterVec
}

// New registers every instrument with reg. Tests pass their own registry so
// parallel instances never collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voxbridge_sessions_active",
			Help: "Number of currently open bridge sessions.",
		}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxbridge_sessions_created_total",
			Help: "Total bridge sessions accepted since start.",
		}),
		DialFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxbridge_upstream_dial_failures_total",
			Help: "Upstream WebSocket handshakes that did not complete.",
		}),
		ClientFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxbridge_client_frames_total",
			Help: "Frames received from clients.",
		}),
		UpstreamFrames: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxbridge_upstream_frames_total",
			Help: "Frames received from the voice server.",
		}),
		ChunksEncoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxbridge_chunks_encoded_total",
			Help: "Fixed-size PCM chunks compressed and sent upstream.",
		}),
		EncodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxbridge_encode_errors_total",
			Help: "Chunks dropped because compression failed.",
		}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxbridge_decode_errors_total",
			Help: "Upstream frames dropped because decompression failed.",
		}),
		ContainersFlushed: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxbridge_containers_flushed_total",
			Help: "Audio containers delivered to clients.",
		}),
		BytesTransferred: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voxbridge_bytes_transferred_total",
			Help: "Payload bytes relayed, labelled by direction.",
		}, []string{"direction"}),
	}
}
