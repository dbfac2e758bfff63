package converter

import (
	"time"

	"github.com/immxrtalbeast/axenix_relay/internal/domain"
)

type RoomResponse struct {
	ID          string    `json:"id"`
	Members     []string  `json:"members"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func RoomToApi(r domain.RoomSnapshot) *RoomResponse {
	members := r.Members
	if members == nil {
		members = []string{}
	}
	return &RoomResponse{
		ID:          r.ID,
		Members:     members,
		MemberCount: len(members),
		CreatedAt:   r.CreatedAt,
	}
}

func RoomsToApi(rooms []domain.RoomSnapshot) []*RoomResponse {
	out := make([]*RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, RoomToApi(r))
	}
	return out
}
