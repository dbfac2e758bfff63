package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/immxrtalbeast/axenix_relay/internal/domain"
	"github.com/immxrtalbeast/axenix_relay/internal/metrics"
	"github.com/immxrtalbeast/axenix_relay/lib/logger/sl"
)

var ErrShuttingDown = errors.New("connection manager is shutting down")

// Channel is one client's bidirectional message transport.
type Channel interface {
	// ReadFrame blocks until the next text frame arrives or the channel fails.
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	Ping() error
	// Close must be idempotent and safe to call while ReadFrame is blocked.
	Close() error
	RemoteAddr() string
}

// ClosedErrorClassifier is optionally implemented by a Channel to tell an
// ordinary disconnect apart from a failure worth a warning.
type ClosedErrorClassifier interface {
	IsExpectedClose(err error) bool
}

type ManagerOptions struct {
	SendBuffer int
	PingPeriod time.Duration
}

// ConnectionManager drives every connection from accept to cleanup. Each
// served connection goes through cleanup exactly once, leaving no trace of
// it in the room directory.
type ConnectionManager struct {
	rooms   RoomInteractor
	router  MessageRouter
	log     *slog.Logger
	metrics *metrics.Metrics
	opts    ManagerOptions

	mu       sync.Mutex
	sessions map[*domain.Connection]Channel
	closing  bool
	wg       sync.WaitGroup
}

func NewConnectionManager(rooms RoomInteractor, router MessageRouter, log *slog.Logger, m *metrics.Metrics, opts ManagerOptions) *ConnectionManager {
	if log == nil {
		log = slog.Default()
	}
	return &ConnectionManager{
		rooms:    rooms,
		router:   router,
		log:      log,
		metrics:  m,
		opts:     opts,
		sessions: make(map[*domain.Connection]Channel),
	}
}

// Serve handles ch until it closes. It returns the error that ended the
// receive loop.
func (m *ConnectionManager) Serve(ctx context.Context, ch Channel) error {
	const op = "service.lifecycle.serve"

	conn := domain.NewConnection(ch.RemoteAddr(), m.opts.SendBuffer)
	if !m.register(conn, ch) {
		_ = ch.Close()
		return ErrShuttingDown
	}
	defer m.wg.Done()

	log := m.log.With(
		slog.String("op", op),
		slog.String("conn_id", conn.ID),
		slog.String("remote_addr", conn.RemoteAddr),
	)
	log.Info("connection accepted")
	m.metrics.ConnectionOpened()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		m.writePump(log, conn, ch)
	}()

	err := m.readLoop(ctx, log, conn, ch)

	m.cleanup(ctx, conn, ch)
	<-writerDone

	if m.isExpectedClose(ch, err) {
		log.Debug("connection closed", sl.Err(err))
	} else {
		log.Warn("connection closed", sl.Err(err))
	}
	return err
}

func (m *ConnectionManager) readLoop(ctx context.Context, log *slog.Logger, conn *domain.Connection, ch Channel) error {
	for {
		frame, err := ch.ReadFrame()
		if err != nil {
			return err
		}

		if err := m.router.Route(ctx, conn, frame); err != nil {
			log.Info("message discarded", sl.Err(err))
		}
	}
}

// writePump is the only writer on ch. It stops when the outbound queue is
// closed by cleanup or when a write fails; a failed write stalls the queue and
// closes ch so the receive loop ends too.
func (m *ConnectionManager) writePump(log *slog.Logger, conn *domain.Connection, ch Channel) {
	var tick <-chan time.Time
	if m.opts.PingPeriod > 0 {
		ticker := time.NewTicker(m.opts.PingPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case frame, ok := <-conn.Outbound():
			if !ok {
				return
			}
			if err := ch.WriteFrame(frame); err != nil {
				log.Debug("write failed", sl.Err(err))
				conn.Stall()
				_ = ch.Close()
				return
			}
		case <-tick:
			if err := ch.Ping(); err != nil {
				log.Debug("ping failed", sl.Err(err))
				conn.Stall()
				_ = ch.Close()
				return
			}
		}
	}
}

// cleanup runs once, from Serve, after the receive loop has stopped. The
// directory leave happens before the connection is marked closed.
func (m *ConnectionManager) cleanup(ctx context.Context, conn *domain.Connection, ch Channel) {
	m.rooms.Leave(ctx, conn.Room(), conn)
	conn.Close()
	_ = ch.Close()

	m.mu.Lock()
	delete(m.sessions, conn)
	m.mu.Unlock()

	m.metrics.ConnectionClosed()
}

func (m *ConnectionManager) register(conn *domain.Connection, ch Channel) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing {
		return false
	}
	m.sessions[conn] = ch
	m.wg.Add(1)
	return true
}

func (m *ConnectionManager) isExpectedClose(ch Channel, err error) bool {
	if c, ok := ch.(ClosedErrorClassifier); ok {
		return c.IsExpectedClose(err)
	}
	return false
}

// Active returns the number of connections currently being served.
func (m *ConnectionManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown refuses new connections, closes every live channel and waits for
// their cleanup to finish or for ctx to expire.
func (m *ConnectionManager) Shutdown(ctx context.Context) error {
	const op = "service.lifecycle.shutdown"

	m.mu.Lock()
	m.closing = true
	channels := make([]Channel, 0, len(m.sessions))
	for _, ch := range m.sessions {
		channels = append(channels, ch)
	}
	m.mu.Unlock()

	m.log.Info("closing connections", slog.String("op", op), slog.Int("count", len(channels)))
	for _, ch := range channels {
		_ = ch.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
