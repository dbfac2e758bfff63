package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/immxrtalbeast/axenix_relay/internal/domain"
	"github.com/immxrtalbeast/axenix_relay/lib/logger/sl"
)

const writeWait = 10 * time.Second

// Client is the peer side of the signaling channel.
type Client struct {
	conn *websocket.Conn
	log  *slog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func Dial(ctx context.Context, url string, log *slog.Logger) (*Client, error) {
	const op = "peer.client.dial"

	if log == nil {
		log = slog.Default()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Client{conn: conn, log: log}, nil
}

// Send is safe for concurrent use.
func (c *Client) Send(msg domain.SignalMessage) error {
	const op = "peer.client.send"

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Receive blocks for the next decodable message. Frames that are not valid
// signaling documents are logged and skipped.
func (c *Client) Receive() (domain.SignalMessage, error) {
	const op = "peer.client.receive"

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return domain.SignalMessage{}, fmt.Errorf("%s: %w", op, err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg domain.SignalMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn("undecodable frame", slog.String("op", op), sl.Err(err))
			continue
		}
		return msg, nil
	}
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
