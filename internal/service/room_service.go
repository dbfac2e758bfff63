package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/immxrtalbeast/axenix_relay/internal/domain"
	"github.com/immxrtalbeast/axenix_relay/internal/metrics"
	"github.com/immxrtalbeast/axenix_relay/internal/repository"
)

var ErrRoomNotFound = errors.New("room not found")

// RoomService is the room directory as seen by the rest of the relay: it
// delegates membership to the repository and reports what changed.
type RoomService struct {
	rooms   repository.RoomDirectory
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewRoomService(rooms repository.RoomDirectory, log *slog.Logger, m *metrics.Metrics) *RoomService {
	if log == nil {
		log = slog.Default()
	}
	return &RoomService{
		rooms:   rooms,
		log:     log,
		metrics: m,
	}
}

// Join returns the roster after conn was added. It is meant for the joining
// connection only; existing members are not notified.
func (s *RoomService) Join(ctx context.Context, roomID string, conn *domain.Connection) []string {
	const op = "service.room.join"
	log := s.log.With(
		slog.String("op", op),
		slog.String("room_id", roomID),
		slog.String("conn_id", conn.ID),
	)

	res := s.rooms.Join(roomID, conn)

	if res.PreviousRoom != "" {
		log.Info("member left room", slog.String("previous_room", res.PreviousRoom))
		if res.PreviousRoomDeleted {
			log.Info("room deleted", slog.String("deleted_room", res.PreviousRoom))
			s.metrics.RoomDeleted()
		}
	}
	if res.RoomCreated {
		log.Info("room created")
		s.metrics.RoomCreated()
	}
	log.Info("member joined room", slog.Int("members", len(res.Roster)))

	return res.Roster
}

// Leave is safe to call any number of times for the same connection.
func (s *RoomService) Leave(ctx context.Context, roomID string, conn *domain.Connection) {
	const op = "service.room.leave"

	if roomID == "" {
		return
	}

	res := s.rooms.Leave(roomID, conn)
	if !res.Removed && !res.RoomDeleted {
		return
	}

	log := s.log.With(
		slog.String("op", op),
		slog.String("room_id", roomID),
		slog.String("conn_id", conn.ID),
	)
	log.Info("member left room")
	if res.RoomDeleted {
		log.Info("room deleted")
		s.metrics.RoomDeleted()
	}
}

func (s *RoomService) Forward(ctx context.Context, roomID string, sender *domain.Connection, frame []byte) repository.ForwardResult {
	const op = "service.room.forward"

	res := s.rooms.Forward(roomID, sender, frame)
	s.metrics.Forwarded(res.Delivered, res.Dropped)

	log := s.log.With(
		slog.String("op", op),
		slog.String("room_id", roomID),
		slog.String("conn_id", sender.ID),
	)
	if res.Dropped > 0 {
		log.Warn("message forwarded with drops",
			slog.Int("delivered", res.Delivered),
			slog.Int("dropped", res.Dropped),
		)
	} else {
		log.Debug("message forwarded", slog.Int("delivered", res.Delivered))
	}

	return res
}

func (s *RoomService) ListRooms(ctx context.Context) []domain.RoomSnapshot {
	return s.rooms.List()
}

func (s *RoomService) GetRoom(ctx context.Context, roomID string) (domain.RoomSnapshot, error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return domain.RoomSnapshot{}, ErrRoomNotFound
	}
	return room, nil
}
