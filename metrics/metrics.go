// Package metrics exposes the Prometheus counters and gauges the producer,
// consumer, and discovery workers update. All metrics are registered against
// a package-level registry that callers can mount at /metrics via
// promhttp.HandlerFor, or leave unmounted for in-process-only collection.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry is the collector registry the inspector metrics live on. It is
// separate from prometheus.DefaultRegisterer so embedding applications don't
// collide with their own metric names.
var Registry = prometheus.NewRegistry()

var (
	// QueueDroppedTotal counts events dropped by the MPSC queue or the
	// staging buffer under overflow (§7 OverflowDrop).
	QueueDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inspector_queue_dropped_total",
		Help: "Total number of QueueItem events dropped on overflow.",
	})

	// BytesSentTotal counts uncompressed staging-buffer bytes the producer
	// worker hands to its LZ4 frame writer for sending.
	BytesSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inspector_bytes_sent_total",
		Help: "Total uncompressed bytes passed to the LZ4 stream by the producer.",
	})

	// BytesReceivedTotal counts decompressed bytes the consumer's network
	// thread reads from its LZ4 frame reader.
	BytesReceivedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inspector_bytes_received_total",
		Help: "Total decompressed bytes read from the LZ4 stream by the consumer.",
	})

	// SessionsTotal counts completed handshakes (producer side).
	SessionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inspector_sessions_total",
		Help: "Total number of sessions that completed a handshake.",
	})

	// ServerQuerySpaceLeft reports the server-query rate-limit credit last
	// set by either the producer worker or the consumer client, both of
	// which update it.
	ServerQuerySpaceLeft = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "inspector_server_query_space_left",
		Help: "Remaining server-query rate-limit credit on the active session.",
	})

	// KeepAliveTotal counts forced KeepAlive commits emitted by the producer
	// worker's idle policy.
	KeepAliveTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inspector_keepalive_total",
		Help: "Total number of forced KeepAlive commits.",
	})

	// NameCollisionsTotal counts 64-bit name-handle hash collisions detected
	// by the producer's name registry (internal/collision.Tracker).
	NameCollisionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inspector_name_collisions_total",
		Help: "Total number of name-handle hash collisions detected.",
	})
)

func init() {
	Registry.MustRegister(
		QueueDroppedTotal,
		BytesSentTotal,
		BytesReceivedTotal,
		SessionsTotal,
		ServerQuerySpaceLeft,
		KeepAliveTotal,
		NameCollisionsTotal,
	)
}
