package repository

import "github.com/immxrtalbeast/axenix_relay/internal/domain"

// ForwardResult counts what happened to one relayed frame.
type ForwardResult struct {
	Delivered int
	Dropped   int
}

// JoinResult describes the membership change made by a join.
type JoinResult struct {
	Roster      []string
	RoomCreated bool
	// PreviousRoom is set when the connection moved out of another room.
	PreviousRoom        string
	PreviousRoomDeleted bool
}

// LeaveResult describes the membership change made by a leave.
type LeaveResult struct {
	Removed     bool
	RoomDeleted bool
}

// RoomDirectory maps room ids to member connections. Implementations must make
// every method atomic with respect to the others.
type RoomDirectory interface {
	Join(roomID string, conn *domain.Connection) JoinResult
	Leave(roomID string, conn *domain.Connection) LeaveResult
	Forward(roomID string, sender *domain.Connection, frame []byte) ForwardResult
	Roster(roomID string) ([]string, bool)
	Get(roomID string) (domain.RoomSnapshot, bool)
	List() []domain.RoomSnapshot
	Stats() Stats
}

type Stats struct {
	Rooms   int
	Members int
}
