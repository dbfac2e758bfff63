package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/immxrtalbeast/axenix_relay/internal/peer"
	"github.com/immxrtalbeast/axenix_relay/lib/logger"
	"github.com/immxrtalbeast/axenix_relay/lib/logger/sl"
)

func main() {
	var (
		url   = flag.String("url", "ws://localhost:8765/", "relay websocket url")
		room  = flag.String("room", "test_room", "room to join")
		offer = flag.Bool("offer", false, "send an offer after joining")
		stun  = flag.String("stun", "stun:stun.l.google.com:19302", "comma separated STUN servers")
		env   = flag.String("env", logger.EnvLocal, "logging environment (local, dev, prod)")
	)
	flag.Parse()

	log := logger.New(*env)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, log, *url, *room, *offer, splitList(*stun))
	cancel()

	if err != nil {
		log.Error("peer stopped", sl.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, url, room string, offer bool, stunServers []string) error {
	client, err := peer.Dial(ctx, url, log)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer client.Close()

	neg, err := peer.NewPionNegotiator(stunServers, log)
	if err != nil {
		return fmt.Errorf("create peer connection: %w", err)
	}
	defer neg.Close()

	session := peer.NewSession(client, neg, peer.SessionConfig{
		Room:  room,
		Offer: offer,
	}, log)
	session.OnRoster(func(users []string) {
		log.Info("connected users", slog.Any("users", users))
	})

	log.Info("joining room", slog.String("url", url), slog.String("room", room), slog.Bool("offer", offer))
	if err := session.Run(ctx); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
