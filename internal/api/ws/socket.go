package ws

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/immxrtalbeast/axenix_relay/internal/config"
)

// Socket adapts a gorilla websocket connection to the relay's Channel.
// ReadFrame must only be called from one goroutine, WriteFrame and Ping
// from one other.
type Socket struct {
	conn      *websocket.Conn
	writeWait time.Duration
	pongWait  time.Duration
	closeOnce sync.Once
}

func NewUpgrader(cfg config.WebSocketConfig) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

func NewSocket(conn *websocket.Conn, cfg config.WebSocketConfig) *Socket {
	s := &Socket{
		conn:      conn,
		writeWait: cfg.WriteWait,
		pongWait:  cfg.PongWait,
	}

	if cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	s.extendReadDeadline()
	conn.SetPongHandler(func(string) error {
		s.extendReadDeadline()
		return nil
	})

	return s
}

func (s *Socket) extendReadDeadline() {
	if s.pongWait > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	}
}

// ReadFrame returns the next text frame. Binary frames are skipped.
func (s *Socket) ReadFrame() ([]byte, error) {
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType == websocket.TextMessage {
			return data, nil
		}
	}
}

func (s *Socket) WriteFrame(frame []byte) error {
	s.setWriteDeadline()
	return s.conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *Socket) Ping() error {
	s.setWriteDeadline()
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *Socket) setWriteDeadline() {
	if s.writeWait > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	}
}

// Close sends a best-effort close frame and closes the connection.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			deadline,
		)
		err = s.conn.Close()
	})
	return err
}

func (s *Socket) RemoteAddr() string {
	return s.conn.RemoteAddr().String()
}

func (s *Socket) IsExpectedClose(err error) bool {
	if err == nil {
		return true
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure,
	) {
		return true
	}
	return errors.Is(err, websocket.ErrCloseSent) || errors.Is(err, net.ErrClosed)
}
