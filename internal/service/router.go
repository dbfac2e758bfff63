package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/immxrtalbeast/axenix_relay/internal/domain"
	"github.com/immxrtalbeast/axenix_relay/internal/metrics"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrMissingRoom      = errors.New("message has no room")
	ErrUnknownType      = errors.New("unsupported message type")
)

// SignalRouter dispatches one inbound frame by its type. Handshake frames
// are relayed byte for byte; their payload is never decoded.
type SignalRouter struct {
	rooms   RoomInteractor
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewSignalRouter(rooms RoomInteractor, log *slog.Logger, m *metrics.Metrics) *SignalRouter {
	if log == nil {
		log = slog.Default()
	}
	return &SignalRouter{
		rooms:   rooms,
		log:     log,
		metrics: m,
	}
}

// Route returns a non-nil error only for frames it discarded. Discarding
// has no side effects on the directory or the connection.
func (r *SignalRouter) Route(ctx context.Context, conn *domain.Connection, frame []byte) error {
	const op = "service.router.route"

	var env domain.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		r.metrics.Discarded(metrics.ReasonMalformed)
		return fmt.Errorf("%s: %w: %v", op, ErrMalformedMessage, err)
	}
	if env.Room == "" {
		r.metrics.Discarded(metrics.ReasonMissingRoom)
		return fmt.Errorf("%s: %w", op, ErrMissingRoom)
	}

	switch {
	case env.Type == domain.MessageJoin:
		r.metrics.Routed(string(env.Type))
		return r.join(ctx, conn, env.Room)
	case env.Type.IsHandshake():
		r.metrics.Routed(string(env.Type))
		r.rooms.Forward(ctx, env.Room, conn, frame)
		return nil
	default:
		r.metrics.Discarded(metrics.ReasonUnknownType)
		return fmt.Errorf("%s: %w: %q", op, ErrUnknownType, env.Type)
	}
}

func (r *SignalRouter) join(ctx context.Context, conn *domain.Connection, roomID string) error {
	const op = "service.router.join"

	roster := r.rooms.Join(ctx, roomID, conn)

	raw, err := json.Marshal(domain.NewUserList(roomID, roster))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !conn.Enqueue(raw) {
		r.log.Warn("user list dropped",
			slog.String("op", op),
			slog.String("conn_id", conn.ID),
			slog.String("room_id", roomID),
		)
	}
	return nil
}
