package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/immxrtalbeast/axenix_relay/internal/app"
	"github.com/immxrtalbeast/axenix_relay/internal/config"
	"github.com/immxrtalbeast/axenix_relay/lib/logger"
	"github.com/immxrtalbeast/axenix_relay/lib/logger/sl"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := logger.New(cfg.Env)

	if cfg.Env == logger.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	relay := app.New(cfg, log)

	log.Info("starting relay",
		slog.String("env", cfg.Env),
		slog.String("addr", cfg.HTTP.Address),
		slog.String("ws_path", cfg.HTTP.WSPath),
	)
	if err := relay.Run(ctx); err != nil {
		log.Error("relay stopped", sl.Err(err))
		os.Exit(1)
	}
}
