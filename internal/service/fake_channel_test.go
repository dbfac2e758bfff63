package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errChannelClosed = errors.New("channel closed")

// fakeChannel is an in-memory Channel. Frames pushed with send are returned
// by ReadFrame; frames written by the server arrive on written.
type fakeChannel struct {
	addr     string
	incoming chan []byte
	written  chan []byte
	closed   chan struct{}
	once     sync.Once

	mu        sync.Mutex
	failWrite bool
	pings     int
	readGate  chan struct{}
}

func newFakeChannel(addr string) *fakeChannel {
	return &fakeChannel{
		addr:     addr,
		incoming: make(chan []byte, 64),
		written:  make(chan []byte, 64),
		closed:   make(chan struct{}),
	}
}

func (f *fakeChannel) ReadFrame() ([]byte, error) {
	select {
	case frame := <-f.incoming:
		return frame, nil
	case <-f.closed:
		f.mu.Lock()
		gate := f.readGate
		f.mu.Unlock()
		if gate != nil {
			<-gate
		}
		return nil, errChannelClosed
	}
}

func (f *fakeChannel) WriteFrame(frame []byte) error {
	f.mu.Lock()
	fail := f.failWrite
	f.mu.Unlock()
	if fail {
		return errors.New("broken pipe")
	}

	select {
	case <-f.closed:
		return errChannelClosed
	default:
	}
	f.written <- frame
	return nil
}

func (f *fakeChannel) Ping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return nil
}

func (f *fakeChannel) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeChannel) RemoteAddr() string { return f.addr }

func (f *fakeChannel) IsExpectedClose(err error) bool {
	return errors.Is(err, errChannelClosed)
}

func (f *fakeChannel) send(frame string) {
	f.incoming <- []byte(frame)
}

func (f *fakeChannel) breakWrites() {
	f.mu.Lock()
	f.failWrite = true
	f.mu.Unlock()
}

// holdReads keeps ReadFrame from reporting the close until the returned
// release func runs.
func (f *fakeChannel) holdReads() func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.readGate = gate
	f.mu.Unlock()
	return func() { close(gate) }
}

func (f *fakeChannel) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

func (f *fakeChannel) next(t *testing.T) []byte {
	t.Helper()
	select {
	case frame := <-f.written:
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func (f *fakeChannel) expectNothing(t *testing.T) {
	t.Helper()
	select {
	case frame := <-f.written:
		t.Fatalf("unexpected frame %s", frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func (f *fakeChannel) waitClosed(t *testing.T) {
	t.Helper()
	select {
	case <-f.closed:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "channel was not closed")
	}
}
