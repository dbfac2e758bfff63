package service

import (
	"context"

	"github.com/immxrtalbeast/axenix_relay/internal/domain"
	"github.com/immxrtalbeast/axenix_relay/internal/repository"
)

type RoomInteractor interface {
	Join(ctx context.Context, roomID string, conn *domain.Connection) []string
	Leave(ctx context.Context, roomID string, conn *domain.Connection)
	Forward(ctx context.Context, roomID string, sender *domain.Connection, frame []byte) repository.ForwardResult
	ListRooms(ctx context.Context) []domain.RoomSnapshot
	GetRoom(ctx context.Context, roomID string) (domain.RoomSnapshot, error)
}

type MessageRouter interface {
	Route(ctx context.Context, conn *domain.Connection, frame []byte) error
}
