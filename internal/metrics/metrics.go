package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "relay"

// Discard reasons.
const (
	ReasonMalformed   = "malformed"
	ReasonMissingRoom = "missing_room"
	ReasonUnknownType = "unknown_type"
)

// Metrics holds the relay's collectors. Each instance owns its registry so
// several servers can live in one process.
type Metrics struct {
	Registry *prometheus.Registry

	RoomsActive       prometheus.Gauge
	ConnectionsActive prometheus.Gauge
	MessagesRouted    *prometheus.CounterVec
	MessagesDiscarded *prometheus.CounterVec
	ForwardDeliveries *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		RoomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Number of rooms with at least one member.",
		}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of open signaling connections.",
		}),
		MessagesRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_routed_total",
			Help:      "Inbound messages dispatched, by type.",
		}, []string{"type"}),
		MessagesDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_discarded_total",
			Help:      "Inbound messages dropped without side effects, by reason.",
		}, []string{"reason"}),
		ForwardDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_deliveries_total",
			Help:      "Per-recipient outcome of relayed handshake messages.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.RoomsActive,
		m.ConnectionsActive,
		m.MessagesRouted,
		m.MessagesDiscarded,
		m.ForwardDeliveries,
	)

	return m
}

func (m *Metrics) Routed(msgType string) {
	if m == nil {
		return
	}
	m.MessagesRouted.WithLabelValues(msgType).Inc()
}

func (m *Metrics) Discarded(reason string) {
	if m == nil {
		return
	}
	m.MessagesDiscarded.WithLabelValues(reason).Inc()
}

func (m *Metrics) Forwarded(delivered, dropped int) {
	if m == nil {
		return
	}
	m.ForwardDeliveries.WithLabelValues("delivered").Add(float64(delivered))
	m.ForwardDeliveries.WithLabelValues("dropped").Add(float64(dropped))
}

func (m *Metrics) RoomCreated() {
	if m == nil {
		return
	}
	m.RoomsActive.Inc()
}

func (m *Metrics) RoomDeleted() {
	if m == nil {
		return
	}
	m.RoomsActive.Dec()
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ConnectionsActive.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ConnectionsActive.Dec()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
