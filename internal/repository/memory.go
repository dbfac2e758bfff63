package repository

import (
	"sort"
	"sync"

	"github.com/immxrtalbeast/axenix_relay/internal/domain"
)

// InMemoryRoomDirectory keeps every room behind one mutex. A room is in the
// map if and only if it has at least one member.
type InMemoryRoomDirectory struct {
	mu    sync.Mutex
	rooms map[string]*domain.Room
}

func NewInMemoryRoomDirectory() *InMemoryRoomDirectory {
	return &InMemoryRoomDirectory{
		rooms: make(map[string]*domain.Room),
	}
}

// Join adds conn to roomID, creating the room when needed. A connection that
// is a member of a different room is moved out of it first. Closed
// connections are never added.
func (d *InMemoryRoomDirectory) Join(roomID string, conn *domain.Connection) JoinResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	var res JoinResult

	if conn.State() == domain.ConnStateClosed {
		return res
	}

	if prev := conn.Room(); prev != "" && prev != roomID {
		if left := d.leaveLocked(prev, conn); left.Removed {
			res.PreviousRoom = prev
			res.PreviousRoomDeleted = left.RoomDeleted
		}
	}

	room, ok := d.rooms[roomID]
	if !ok {
		room = domain.NewRoom(roomID)
		d.rooms[roomID] = room
		res.RoomCreated = true
	}

	room.Add(conn)
	conn.SetRoom(roomID)

	res.Roster = room.Roster()
	return res
}

// Leave is a no-op when the room or the membership does not exist.
func (d *InMemoryRoomDirectory) Leave(roomID string, conn *domain.Connection) LeaveResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.leaveLocked(roomID, conn)
}

func (d *InMemoryRoomDirectory) leaveLocked(roomID string, conn *domain.Connection) LeaveResult {
	var res LeaveResult

	room, ok := d.rooms[roomID]
	if !ok {
		return res
	}

	res.Removed = room.Remove(conn)
	if res.Removed && conn.Room() == roomID {
		conn.SetRoom("")
	}

	if room.IsEmpty() {
		delete(d.rooms, roomID)
		res.RoomDeleted = true
	}

	return res
}

// Forward queues frame on every member of roomID except sender. A member
// whose queue rejects the frame is counted as dropped and skipped.
func (d *InMemoryRoomDirectory) Forward(roomID string, sender *domain.Connection, frame []byte) ForwardResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	var res ForwardResult

	room, ok := d.rooms[roomID]
	if !ok {
		return res
	}

	for _, member := range room.Members() {
		if member == sender {
			continue
		}
		if member.Enqueue(frame) {
			res.Delivered++
		} else {
			res.Dropped++
		}
	}

	return res
}

func (d *InMemoryRoomDirectory) Roster(roomID string) ([]string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[roomID]
	if !ok {
		return nil, false
	}
	return room.Roster(), true
}

func (d *InMemoryRoomDirectory) Get(roomID string) (domain.RoomSnapshot, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[roomID]
	if !ok {
		return domain.RoomSnapshot{}, false
	}
	return room.Snapshot(), true
}

// List returns snapshots of all rooms ordered by id.
func (d *InMemoryRoomDirectory) List() []domain.RoomSnapshot {
	d.mu.Lock()
	result := make([]domain.RoomSnapshot, 0, len(d.rooms))
	for _, room := range d.rooms {
		result = append(result, room.Snapshot())
	}
	d.mu.Unlock()

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (d *InMemoryRoomDirectory) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Stats{Rooms: len(d.rooms)}
	for _, room := range d.rooms {
		s.Members += room.Len()
	}
	return s
}
