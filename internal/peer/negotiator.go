package peer

import "encoding/json"

// Negotiator is the peer-to-peer transport the handshake is applied to.
// SDP strings and candidate documents pass through the relay untouched;
// only the Negotiator understands them.
type Negotiator interface {
	CreateOffer() (string, error)
	AcceptOffer(sdp string) (string, error)
	AcceptAnswer(sdp string) error
	AddRemoteCandidate(candidate json.RawMessage) error
	OnLocalCandidate(fn func(candidate json.RawMessage))
	OnTrack(fn func(kind string))
	Close() error
}
