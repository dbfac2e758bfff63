package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immxrtalbeast/axenix_relay/internal/domain"
	"github.com/immxrtalbeast/axenix_relay/internal/metrics"
	"github.com/immxrtalbeast/axenix_relay/internal/repository"
	"github.com/immxrtalbeast/axenix_relay/lib/logger"
)

func newRoomService() (*RoomService, *metrics.Metrics) {
	m := metrics.New()
	return NewRoomService(repository.NewInMemoryRoomDirectory(), logger.Discard(), m), m
}

func TestRoomServiceTracksRoomGauge(t *testing.T) {
	ctx := context.Background()
	svc, m := newRoomService()
	a := domain.NewConnection("a", 4)
	b := domain.NewConnection("b", 4)

	assert.Equal(t, []string{a.ID}, svc.Join(ctx, "r1", a))
	assert.Equal(t, []string{a.ID, b.ID}, svc.Join(ctx, "r1", b))
	svc.Join(ctx, "r2", b)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RoomsActive))

	svc.Leave(ctx, "r1", a)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoomsActive))

	svc.Leave(ctx, "r2", b)
	svc.Leave(ctx, "r2", b)
	svc.Leave(ctx, "", b)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RoomsActive))
	assert.Empty(t, svc.ListRooms(ctx))
}

func TestRoomServiceForwardCountsDeliveries(t *testing.T) {
	ctx := context.Background()
	svc, m := newRoomService()
	sender := domain.NewConnection("s", 4)
	ok := domain.NewConnection("ok", 4)
	full := domain.NewConnection("full", 0)

	svc.Join(ctx, "r", sender)
	svc.Join(ctx, "r", ok)
	svc.Join(ctx, "r", full)

	res := svc.Forward(ctx, "r", sender, []byte(`{"type":"offer"}`))
	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ForwardDeliveries.WithLabelValues("delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ForwardDeliveries.WithLabelValues("dropped")))

	res = svc.Forward(ctx, "nowhere", sender, []byte(`{}`))
	assert.Zero(t, res.Delivered)
	assert.Zero(t, res.Dropped)
}

func TestRoomServiceGetRoom(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRoomService()
	a := domain.NewConnection("a", 1)

	_, err := svc.GetRoom(ctx, "r")
	require.ErrorIs(t, err, ErrRoomNotFound)

	svc.Join(ctx, "r", a)
	room, err := svc.GetRoom(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "r", room.ID)
	assert.Equal(t, []string{a.ID}, room.Members)
}

func TestRoomServiceGaugeMatchesDirectoryUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	svc, m := newRoomService()

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := domain.NewConnection(fmt.Sprintf("c%d", i), 1)
			for j := 0; j < 50; j++ {
				room := fmt.Sprintf("r%d", (i+j)%4)
				svc.Join(ctx, room, conn)
				if j%3 == 0 {
					svc.Leave(ctx, conn.Room(), conn)
				}
			}
			if i%2 == 0 {
				svc.Leave(ctx, conn.Room(), conn)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, float64(len(svc.ListRooms(ctx))), testutil.ToFloat64(m.RoomsActive))

	for _, room := range svc.ListRooms(ctx) {
		assert.NotEmpty(t, room.Members)
	}
}
