package peer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v3"

	"github.com/immxrtalbeast/axenix_relay/lib/logger/sl"
)

// PionNegotiator is a receive-only Negotiator backed by a pion peer
// connection. Remote candidates that arrive before the remote description
// are held back and applied once it is set.
type PionNegotiator struct {
	pc  *webrtc.PeerConnection
	log *slog.Logger

	mu        sync.Mutex
	remoteSet bool
	pending   []webrtc.ICECandidateInit
}

func NewPionNegotiator(stunServers []string, log *slog.Logger) (*PionNegotiator, error) {
	const op = "peer.pion.new"

	if log == nil {
		log = slog.Default()
	}

	var iceServers []webrtc.ICEServer
	if len(stunServers) > 0 {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: stunServers})
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo} {
		_, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		})
		if err != nil {
			_ = pc.Close()
			return nil, fmt.Errorf("%s: add %s transceiver: %w", op, kind, err)
		}
	}

	n := &PionNegotiator{pc: pc, log: log}

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		n.log.Info("peer connection state", slog.String("state", state.String()))
	})

	return n, nil
}

func (n *PionNegotiator) CreateOffer() (string, error) {
	const op = "peer.pion.create_offer"

	offer, err := n.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := n.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return offer.SDP, nil
}

func (n *PionNegotiator) AcceptOffer(sdp string) (string, error) {
	const op = "peer.pion.accept_offer"

	if err := n.setRemote(webrtc.SDPTypeOffer, sdp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	answer, err := n.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := n.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return answer.SDP, nil
}

func (n *PionNegotiator) AcceptAnswer(sdp string) error {
	const op = "peer.pion.accept_answer"

	if err := n.setRemote(webrtc.SDPTypeAnswer, sdp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (n *PionNegotiator) setRemote(sdpType webrtc.SDPType, sdp string) error {
	err := n.pc.SetRemoteDescription(webrtc.SessionDescription{Type: sdpType, SDP: sdp})
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.remoteSet = true
	pending := n.pending
	n.pending = nil
	n.mu.Unlock()

	var errs []error
	for _, c := range pending {
		if err := n.pc.AddICECandidate(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *PionNegotiator) AddRemoteCandidate(candidate json.RawMessage) error {
	const op = "peer.pion.add_candidate"

	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(candidate, &init); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n.mu.Lock()
	if !n.remoteSet {
		n.pending = append(n.pending, init)
		n.mu.Unlock()
		return nil
	}
	n.mu.Unlock()

	if err := n.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (n *PionNegotiator) OnLocalCandidate(fn func(candidate json.RawMessage)) {
	n.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			n.log.Warn("encode local candidate", sl.Err(err))
			return
		}
		fn(raw)
	})
}

func (n *PionNegotiator) OnTrack(fn func(kind string)) {
	n.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		fn(track.Kind().String())
	})
}

// Negotiated reports whether both descriptions are in place.
func (n *PionNegotiator) Negotiated() bool {
	return n.pc.SignalingState() == webrtc.SignalingStateStable &&
		n.pc.RemoteDescription() != nil &&
		n.pc.LocalDescription() != nil
}

func (n *PionNegotiator) Close() error {
	return n.pc.Close()
}
