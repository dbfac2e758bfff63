package domain

import "encoding/json"

type MessageType string

const (
	MessageJoin      MessageType = "join"
	MessageUserList  MessageType = "user_list"
	MessageOffer     MessageType = "offer"
	MessageAnswer    MessageType = "answer"
	MessageCandidate MessageType = "candidate"
)

// IsHandshake reports whether messages of this type are relayed to the rest of the room.
func (t MessageType) IsHandshake() bool {
	switch t {
	case MessageOffer, MessageAnswer, MessageCandidate:
		return true
	}
	return false
}

// Envelope is the only part of an inbound frame the relay looks at.
type Envelope struct {
	Type MessageType `json:"type"`
	Room string      `json:"room"`
}

// SignalMessage is the full document exchanged by peers. The relay itself
// never decodes SDP or Candidate.
type SignalMessage struct {
	Type      MessageType     `json:"type"`
	Room      string          `json:"room,omitempty"`
	SDP       string          `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	Users     []string        `json:"users,omitempty"`
}

func NewUserList(room string, users []string) SignalMessage {
	if users == nil {
		users = []string{}
	}
	return SignalMessage{
		Type:  MessageUserList,
		Room:  room,
		Users: users,
	}
}
