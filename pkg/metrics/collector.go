package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boxchat/boxchat-go/pkg/log"
	"github.com/boxchat/boxchat-go/pkg/transport"
)

// Namespace prefixes every boxchat metric name.
const Namespace = "boxchat"

// Collector counts protocol events.
type Collector struct {
	registry *prometheus.Registry

	frames      *prometheus.CounterVec
	frameBytes  *prometheus.CounterVec
	messages    *prometheus.CounterVec
	controls    *prometheus.CounterVec
	handshakes  prometheus.Counter
	errors      *prometheus.CounterVec
	connections prometheus.Gauge
}

var _ log.Logger = (*Collector)(nil)

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "transport",
				Name:      "frames_total",
				Help:      "Frames written or read.",
			},
			[]string{"direction"},
		),
		frameBytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "transport",
				Name:      "frame_bytes_total",
				Help:      "Frame bytes written or read, delimiter included.",
			},
			[]string{"direction"},
		),
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "wire",
				Name:      "messages_total",
				Help:      "Decoded messages by kind.",
			},
			[]string{"direction", "kind", "sealed"},
		),
		controls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "wire",
				Name:      "control_messages_total",
				Help:      "Control messages by type.",
			},
			[]string{"direction", "type"},
		),
		handshakes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "crypto",
				Name:      "handshakes_completed_total",
				Help:      "Connections that switched to encrypted mode.",
			},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "errors_total",
				Help:      "Protocol errors by layer.",
			},
			[]string{"layer"},
		),
		connections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "transport",
				Name:      "connections",
				Help:      "Connections currently attached.",
			},
		),
	}

	c.registry.MustRegister(
		c.frames,
		c.frameBytes,
		c.messages,
		c.controls,
		c.handshakes,
		c.errors,
		c.connections,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Log implements log.Logger.
func (c *Collector) Log(event log.Event) {
	dir := event.Direction.String()

	switch {
	case event.Frame != nil:
		c.frames.WithLabelValues(dir).Inc()
		c.frameBytes.WithLabelValues(dir).Add(float64(event.Frame.Size))

	case event.Message != nil:
		sealed := "false"
		if event.Message.Sealed {
			sealed = "true"
		}
		c.messages.WithLabelValues(dir, event.Message.Kind.String(), sealed).Inc()

	case event.ControlMsg != nil:
		c.controls.WithLabelValues(dir, event.ControlMsg.Type.String()).Inc()

	case event.StateChange != nil:
		c.observeState(event.StateChange)

	case event.Error != nil:
		c.errors.WithLabelValues(event.Error.Layer.String()).Inc()
	}
}

func (c *Collector) observeState(sc *log.StateChangeEvent) {
	switch sc.Entity {
	case log.StateEntityEncryption:
		if sc.NewState == transport.StateEncrypted.String() {
			c.handshakes.Inc()
		}
	case log.StateEntityConnection:
		connected := transport.StateConnected.String()
		switch {
		case sc.NewState == connected:
			c.connections.Inc()
		case sc.OldState == connected:
			c.connections.Dec()
		}
	}
}
