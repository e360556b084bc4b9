package osc

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instrumentation for one server/transport
// pairing. All collectors are optional: a nil *Metrics on a Server disables
// instrumentation entirely.
type Metrics struct {
	PacketsParsed      prometheus.Counter
	ParseFailures      prometheus.Counter
	MessagesDispatched prometheus.Counter
	CallbackPanics     prometheus.Counter
	QueueDepth         prometheus.Gauge
	FramesDecoded      *prometheus.CounterVec
	FramingErrors      *prometheus.CounterVec
}

// NewMetrics creates the collector set. Register it with a registry via
// Register before use.
func NewMetrics() *Metrics {
	return &Metrics{
		PacketsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osc",
			Subsystem: "packets",
			Name:      "parsed_total",
			Help:      "Total number of packets parsed successfully",
		}),
		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osc",
			Subsystem: "packets",
			Name:      "parse_failures_total",
			Help:      "Total number of packets dropped as unparseable",
		}),
		MessagesDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osc",
			Subsystem: "dispatch",
			Name:      "messages_total",
			Help:      "Total number of messages resolved and dispatched",
		}),
		CallbackPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osc",
			Subsystem: "dispatch",
			Name:      "callback_panics_total",
			Help:      "Total number of callbacks that panicked during dispatch or drain",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "osc",
			Subsystem: "dispatch",
			Name:      "queue_depth",
			Help:      "Callbacks waiting for the next drain tick",
		}),
		FramesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "osc",
			Subsystem: "stream",
			Name:      "frames_decoded_total",
			Help:      "Total number of stream frames decoded",
		}, []string{"codec"}),
		FramingErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "osc",
			Subsystem: "stream",
			Name:      "framing_errors_total",
			Help:      "Total number of fatal stream framing errors",
		}, []string{"codec"}),
	}
}

// Register registers every collector with the given registerer.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PacketsParsed,
		m.ParseFailures,
		m.MessagesDispatched,
		m.CallbackPanics,
		m.QueueDepth,
		m.FramesDecoded,
		m.FramingErrors,
	}
}
