package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type ConnState string

const (
	ConnStateConnected ConnState = "connected"
	ConnStateJoined    ConnState = "joined"
	ConnStateClosed    ConnState = "closed"
)

// Connection represents one live signaling channel to a peer.
// Its room is only changed by the room directory, under the directory lock.
type Connection struct {
	ID         string
	RemoteAddr string
	CreatedAt  time.Time

	mu       sync.RWMutex
	room     string
	state    ConnState
	closed   bool
	stalled  bool
	outbound chan []byte
}

func NewConnection(remoteAddr string, sendBuffer int) *Connection {
	if sendBuffer < 0 {
		sendBuffer = 0
	}
	return &Connection{
		ID:         uuid.New().String(),
		RemoteAddr: remoteAddr,
		CreatedAt:  time.Now().UTC(),
		state:      ConnStateConnected,
		outbound:   make(chan []byte, sendBuffer),
	}
}

func (c *Connection) Room() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room
}

func (c *Connection) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SetRoom records the room membership. An empty room keeps the current state,
// a closed connection keeps nothing.
func (c *Connection) SetRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.room = ""
		return
	}
	c.room = room
	if room != "" {
		c.state = ConnStateJoined
	}
}

// Enqueue queues a frame for the writer without blocking. It reports false
// when the queue is full, closed or no longer drained; the frame is dropped.
func (c *Connection) Enqueue(frame []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.stalled {
		return false
	}
	select {
	case c.outbound <- frame:
		return true
	default:
		return false
	}
}

// Stall is called by the writer once it gives up on the channel. Room
// membership is kept until cleanup, but nothing is queued any more.
func (c *Connection) Stall() {
	c.mu.Lock()
	c.stalled = true
	c.mu.Unlock()
}

// Outbound is drained by the connection's single writer.
func (c *Connection) Outbound() <-chan []byte {
	return c.outbound
}

// Close moves the connection to its terminal state and closes the outbound
// queue. Only the first call does anything; it reports whether it was the one.
func (c *Connection) Close() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	c.state = ConnStateClosed
	c.room = ""
	close(c.outbound)
	return true
}
