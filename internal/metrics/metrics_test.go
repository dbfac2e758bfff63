package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.Routed("offer")
	m.Routed("offer")
	m.Discarded(ReasonMissingRoom)
	m.Forwarded(2, 1)
	m.RoomCreated()
	m.RoomCreated()
	m.RoomCreated()
	m.RoomCreated()
	m.RoomDeleted()
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesRouted.WithLabelValues("offer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesDiscarded.WithLabelValues(ReasonMissingRoom)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ForwardDeliveries.WithLabelValues("delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ForwardDeliveries.WithLabelValues("dropped")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RoomsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnectionsActive))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Routed("join")
		m.Discarded(ReasonMalformed)
		m.Forwarded(1, 1)
		m.RoomCreated()
		m.RoomDeleted()
		m.ConnectionOpened()
		m.ConnectionClosed()
	})
}

func TestHandlerExposesRelayMetrics(t *testing.T) {
	m := New()
	m.Routed("join")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `relay_messages_routed_total{type="join"} 1`)
	assert.Contains(t, rec.Body.String(), "relay_connections_active 0")
}
