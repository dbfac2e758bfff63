package peer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immxrtalbeast/axenix_relay/internal/domain"
	"github.com/immxrtalbeast/axenix_relay/lib/logger"
)

type fakeSignaler struct {
	inbox  chan domain.SignalMessage
	sent   chan domain.SignalMessage
	closed chan struct{}
	once   sync.Once
}

func newFakeSignaler() *fakeSignaler {
	return &fakeSignaler{
		inbox:  make(chan domain.SignalMessage, 16),
		sent:   make(chan domain.SignalMessage, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeSignaler) Send(msg domain.SignalMessage) error {
	select {
	case <-f.closed:
		return errors.New("closed")
	default:
	}
	f.sent <- msg
	return nil
}

func (f *fakeSignaler) Receive() (domain.SignalMessage, error) {
	select {
	case msg := <-f.inbox:
		return msg, nil
	case <-f.closed:
		return domain.SignalMessage{}, errors.New("closed")
	}
}

func (f *fakeSignaler) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeSignaler) next(t *testing.T) domain.SignalMessage {
	t.Helper()
	select {
	case msg := <-f.sent:
		return msg
	case <-time.After(2 * time.Second):
		require.FailNow(t, "nothing sent")
		return domain.SignalMessage{}
	}
}

type fakeNegotiator struct {
	mu         sync.Mutex
	offers     []string
	answers    []string
	candidates []string
	onLocal    func(json.RawMessage)
	failAnswer bool
}

func (n *fakeNegotiator) CreateOffer() (string, error) { return "local-offer", nil }

func (n *fakeNegotiator) AcceptOffer(sdp string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.offers = append(n.offers, sdp)
	return "local-answer", nil
}

func (n *fakeNegotiator) AcceptAnswer(sdp string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failAnswer {
		return errors.New("bad answer")
	}
	n.answers = append(n.answers, sdp)
	return nil
}

func (n *fakeNegotiator) AddRemoteCandidate(c json.RawMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.candidates = append(n.candidates, string(c))
	return nil
}

func (n *fakeNegotiator) OnLocalCandidate(fn func(json.RawMessage)) {
	n.mu.Lock()
	n.onLocal = fn
	n.mu.Unlock()
}

func (n *fakeNegotiator) OnTrack(func(string)) {}
func (n *fakeNegotiator) Close() error         { return nil }

func (n *fakeNegotiator) emitLocal(raw string) {
	n.mu.Lock()
	fn := n.onLocal
	n.mu.Unlock()
	fn(json.RawMessage(raw))
}

func (n *fakeNegotiator) snapshot() (offers, answers, candidates []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.offers...), append([]string(nil), n.answers...), append([]string(nil), n.candidates...)
}

func runSession(t *testing.T, s *Session) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return cancel, done
}

func TestSessionOffererFlow(t *testing.T) {
	sig, neg := newFakeSignaler(), &fakeNegotiator{}
	s := NewSession(sig, neg, SessionConfig{Room: "R", Offer: true}, logger.Discard())

	rosters := make(chan []string, 1)
	s.OnRoster(func(users []string) { rosters <- users })

	cancel, done := runSession(t, s)

	assert.Equal(t, domain.SignalMessage{Type: domain.MessageJoin, Room: "R"}, sig.next(t))
	assert.Equal(t, domain.SignalMessage{Type: domain.MessageOffer, Room: "R", SDP: "local-offer"}, sig.next(t))

	sig.inbox <- domain.NewUserList("R", []string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, <-rosters)
	assert.Equal(t, []string{"a", "b"}, s.Roster())

	sig.inbox <- domain.SignalMessage{Type: domain.MessageAnswer, Room: "R", SDP: "remote-answer"}
	sig.inbox <- domain.SignalMessage{Type: domain.MessageCandidate, Room: "R", Candidate: json.RawMessage(`{"candidate":"c1"}`)}

	require.Eventually(t, func() bool {
		_, answers, candidates := neg.snapshot()
		return len(answers) == 1 && len(candidates) == 1
	}, 2*time.Second, 5*time.Millisecond)

	_, answers, candidates := neg.snapshot()
	assert.Equal(t, []string{"remote-answer"}, answers)
	assert.Equal(t, []string{`{"candidate":"c1"}`}, candidates)

	neg.emitLocal(`{"candidate":"local"}`)
	local := sig.next(t)
	assert.Equal(t, domain.MessageCandidate, local.Type)
	assert.Equal(t, "R", local.Room)
	assert.JSONEq(t, `{"candidate":"local"}`, string(local.Candidate))

	cancel()
	require.NoError(t, <-done)
}

func TestSessionAnswererFlow(t *testing.T) {
	sig, neg := newFakeSignaler(), &fakeNegotiator{}
	s := NewSession(sig, neg, SessionConfig{Room: "R"}, logger.Discard())
	cancel, done := runSession(t, s)
	defer cancel()

	assert.Equal(t, domain.MessageJoin, sig.next(t).Type)

	sig.inbox <- domain.SignalMessage{Type: domain.MessageOffer, Room: "R", SDP: "remote-offer"}
	assert.Equal(t, domain.SignalMessage{Type: domain.MessageAnswer, Room: "R", SDP: "local-answer"}, sig.next(t))

	offers, _, _ := neg.snapshot()
	assert.Equal(t, []string{"remote-offer"}, offers)

	sig.Close()
	require.Error(t, <-done, "relay going away ends the session with an error")
}

func TestSessionSurvivesBadHandshakeSteps(t *testing.T) {
	sig, neg := newFakeSignaler(), &fakeNegotiator{failAnswer: true}
	s := NewSession(sig, neg, SessionConfig{Room: "R"}, logger.Discard())
	cancel, done := runSession(t, s)

	sig.next(t)
	sig.inbox <- domain.SignalMessage{Type: domain.MessageAnswer, Room: "R", SDP: "x"}
	sig.inbox <- domain.SignalMessage{Type: domain.MessageOffer, Room: "R"}
	sig.inbox <- domain.SignalMessage{Type: domain.MessageCandidate, Room: "R"}
	sig.inbox <- domain.SignalMessage{Type: "chat", Room: "R"}
	sig.inbox <- domain.SignalMessage{Type: domain.MessageOffer, Room: "R", SDP: "ok"}

	assert.Equal(t, domain.MessageAnswer, sig.next(t).Type)

	cancel()
	require.NoError(t, <-done)
}

func TestSessionRequiresRoom(t *testing.T) {
	s := NewSession(newFakeSignaler(), &fakeNegotiator{}, SessionConfig{}, logger.Discard())
	require.Error(t, s.Run(context.Background()))
}
