package domain

import "time"

// Room is a named set of connections. It carries no lock of its own: every
// access goes through the room directory, which serializes it.
type Room struct {
	ID        string
	CreatedAt time.Time

	members []*Connection
}

// RoomSnapshot is a copy of a room's state safe to hand out of the directory.
type RoomSnapshot struct {
	ID        string
	Members   []string
	CreatedAt time.Time
}

func NewRoom(id string) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now().UTC(),
	}
}

func (r *Room) Has(conn *Connection) bool {
	for _, m := range r.members {
		if m == conn {
			return true
		}
	}
	return false
}

// Add appends conn unless it is already a member.
func (r *Room) Add(conn *Connection) bool {
	if r.Has(conn) {
		return false
	}
	r.members = append(r.members, conn)
	return true
}

func (r *Room) Remove(conn *Connection) bool {
	for i, m := range r.members {
		if m == conn {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Room) Len() int {
	return len(r.members)
}

func (r *Room) IsEmpty() bool {
	return len(r.members) == 0
}

// Roster lists member identities in join order.
func (r *Room) Roster() []string {
	ids := make([]string, 0, len(r.members))
	for _, m := range r.members {
		ids = append(ids, m.ID)
	}
	return ids
}

func (r *Room) Members() []*Connection {
	out := make([]*Connection, len(r.members))
	copy(out, r.members)
	return out
}

func (r *Room) Snapshot() RoomSnapshot {
	return RoomSnapshot{
		ID:        r.ID,
		Members:   r.Roster(),
		CreatedAt: r.CreatedAt,
	}
}
