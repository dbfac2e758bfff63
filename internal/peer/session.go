package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/immxrtalbeast/axenix_relay/internal/domain"
	"github.com/immxrtalbeast/axenix_relay/lib/logger/sl"
)

// Signaler carries signaling messages to and from the relay.
type Signaler interface {
	Send(msg domain.SignalMessage) error
	Receive() (domain.SignalMessage, error)
	Close() error
}

type SessionConfig struct {
	Room string
	// Offer makes this peer send an offer right after joining.
	Offer bool
}

// Session joins one room and drives the handshake between the relay and a
// Negotiator. Negotiation failures are logged and do not end the session.
type Session struct {
	sig Signaler
	neg Negotiator
	cfg SessionConfig
	log *slog.Logger

	mu       sync.Mutex
	roster   []string
	onRoster func([]string)
}

func NewSession(sig Signaler, neg Negotiator, cfg SessionConfig, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		sig: sig,
		neg: neg,
		cfg: cfg,
		log: log.With(slog.String("room", cfg.Room)),
	}
}

// OnRoster registers fn to be called with every user_list received.
func (s *Session) OnRoster(fn func(users []string)) {
	s.mu.Lock()
	s.onRoster = fn
	s.mu.Unlock()
}

func (s *Session) Roster() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.roster))
	copy(out, s.roster)
	return out
}

// Run joins the room and handles messages until ctx is done or the relay
// goes away. Cancelling ctx closes the signaler.
func (s *Session) Run(ctx context.Context) error {
	const op = "peer.session.run"

	if s.cfg.Room == "" {
		return fmt.Errorf("%s: room is required", op)
	}

	s.neg.OnLocalCandidate(func(candidate json.RawMessage) {
		err := s.sig.Send(domain.SignalMessage{
			Type:      domain.MessageCandidate,
			Room:      s.cfg.Room,
			Candidate: candidate,
		})
		if err != nil {
			s.log.Warn("send candidate", sl.Err(err))
		}
	})
	s.neg.OnTrack(func(kind string) {
		s.log.Info("remote track received", slog.String("kind", kind))
	})

	stop := context.AfterFunc(ctx, func() { _ = s.sig.Close() })
	defer stop()

	if err := s.sig.Send(domain.SignalMessage{Type: domain.MessageJoin, Room: s.cfg.Room}); err != nil {
		return fmt.Errorf("%s: join: %w", op, err)
	}

	if s.cfg.Offer {
		sdp, err := s.neg.CreateOffer()
		if err != nil {
			return fmt.Errorf("%s: create offer: %w", op, err)
		}
		if err := s.sig.Send(domain.SignalMessage{Type: domain.MessageOffer, Room: s.cfg.Room, SDP: sdp}); err != nil {
			return fmt.Errorf("%s: send offer: %w", op, err)
		}
	}

	for {
		msg, err := s.sig.Receive()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := s.handle(msg); err != nil {
			s.log.Warn("handshake step failed", slog.String("type", string(msg.Type)), sl.Err(err))
		}
	}
}

var errEmptyPayload = errors.New("empty payload")

func (s *Session) handle(msg domain.SignalMessage) error {
	switch msg.Type {
	case domain.MessageUserList:
		s.mu.Lock()
		s.roster = append([]string(nil), msg.Users...)
		fn := s.onRoster
		s.mu.Unlock()

		s.log.Info("roster updated", slog.Int("users", len(msg.Users)))
		if fn != nil {
			fn(msg.Users)
		}
		return nil

	case domain.MessageOffer:
		if msg.SDP == "" {
			return errEmptyPayload
		}
		answer, err := s.neg.AcceptOffer(msg.SDP)
		if err != nil {
			return err
		}
		return s.sig.Send(domain.SignalMessage{Type: domain.MessageAnswer, Room: s.cfg.Room, SDP: answer})

	case domain.MessageAnswer:
		if msg.SDP == "" {
			return errEmptyPayload
		}
		return s.neg.AcceptAnswer(msg.SDP)

	case domain.MessageCandidate:
		if len(msg.Candidate) == 0 {
			return errEmptyPayload
		}
		return s.neg.AddRemoteCandidate(msg.Candidate)

	default:
		s.log.Debug("ignoring message", slog.String("type", string(msg.Type)))
		return nil
	}
}
