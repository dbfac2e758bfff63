package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	httpapi "github.com/immxrtalbeast/axenix_relay/internal/api/http"
	"github.com/immxrtalbeast/axenix_relay/internal/config"
	"github.com/immxrtalbeast/axenix_relay/internal/metrics"
	"github.com/immxrtalbeast/axenix_relay/internal/repository"
	"github.com/immxrtalbeast/axenix_relay/internal/service"
	"github.com/immxrtalbeast/axenix_relay/lib/logger/sl"
)

// App is a fully wired relay: directory, router, connection manager and
// the HTTP surface in front of them.
type App struct {
	cfg *config.Config
	log *slog.Logger

	Metrics     *metrics.Metrics
	Directory   *repository.InMemoryRoomDirectory
	Rooms       *service.RoomService
	Connections *service.ConnectionManager
	Handler     http.Handler
}

func New(cfg *config.Config, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}

	m := metrics.New()
	directory := repository.NewInMemoryRoomDirectory()
	rooms := service.NewRoomService(directory, log, m)
	router := service.NewSignalRouter(rooms, log, m)
	conns := service.NewConnectionManager(rooms, router, log, m, service.ManagerOptions{
		SendBuffer: cfg.WebSocket.SendBuffer,
		PingPeriod: cfg.WebSocket.PingPeriod(),
	})

	signalController := httpapi.NewSignalController(conns, cfg.WebSocket, log)
	roomController := httpapi.NewRoomController(rooms, cfg.WebRTC.STUNServers)

	return &App{
		cfg:         cfg,
		log:         log,
		Metrics:     m,
		Directory:   directory,
		Rooms:       rooms,
		Connections: conns,
		Handler:     httpapi.SetupRouter(cfg.HTTP, signalController, roomController, m.Handler()),
	}
}

// Run binds the configured address and serves until ctx is cancelled.
// A bind failure is returned before anything starts.
func (a *App) Run(ctx context.Context) error {
	const op = "app.run"

	ln, err := net.Listen("tcp", a.cfg.HTTP.Address)
	if err != nil {
		return fmt.Errorf("%s: listen %s: %w", op, a.cfg.HTTP.Address, err)
	}

	return a.Serve(ctx, ln)
}

func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	const op = "app.serve"
	log := a.log.With(slog.String("op", op))

	srv := &http.Server{
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("relay listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	case <-ctx.Done():
	}

	log.Info("shutdown started")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", sl.Err(err))
	}
	// Hijacked websocket connections are not tracked by http.Server.
	if err := a.Connections.Shutdown(shutdownCtx); err != nil {
		log.Error("connection shutdown", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("shutdown complete")
	return nil
}
