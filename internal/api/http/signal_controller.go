package http

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/immxrtalbeast/axenix_relay/internal/api/ws"
	"github.com/immxrtalbeast/axenix_relay/internal/config"
	"github.com/immxrtalbeast/axenix_relay/internal/service"
	"github.com/immxrtalbeast/axenix_relay/lib/logger/sl"
)

type ConnectionServer interface {
	Serve(ctx context.Context, ch service.Channel) error
}

type SignalController struct {
	conns    ConnectionServer
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewSignalController(conns ConnectionServer, cfg config.WebSocketConfig, log *slog.Logger) *SignalController {
	if log == nil {
		log = slog.Default()
	}
	return &SignalController{
		conns:    conns,
		cfg:      cfg,
		upgrader: ws.NewUpgrader(cfg),
		log:      log,
	}
}

// Connect upgrades the request and serves the socket until it closes.
func (c *SignalController) Connect(ctx *gin.Context) {
	const op = "api.http.signal.connect"

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		c.log.Debug("websocket upgrade failed",
			slog.String("op", op),
			slog.String("remote_addr", ctx.Request.RemoteAddr),
			sl.Err(err),
		)
		return
	}

	_ = c.conns.Serve(ctx.Request.Context(), ws.NewSocket(conn, c.cfg))
}
