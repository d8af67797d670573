package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nmarceau/chime/internal/adapter/driven/auth"
	"github.com/nmarceau/chime/internal/adapter/driven/gateway/ws"
	store "github.com/nmarceau/chime/internal/adapter/driven/persistence/badger"
	handler "github.com/nmarceau/chime/internal/adapter/driving/http"
	"github.com/nmarceau/chime/internal/config"
	"github.com/nmarceau/chime/internal/core/service"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	w := zerolog.ConsoleWriter{Out: os.Stdout}
	l := zerolog.New(w).With().Timestamp().Caller().Logger()
	log.Logger = l

	cfg, err := config.Load()
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	db, err := store.Open(cfg.BadgerPath)
	if err != nil {
		l.Fatal().Err(err).Msg("Failed to open store")
	}
	defer db.Close()

	if len(cfg.SeedUsers) > 0 {
		users, err := db.Seed(context.Background(), cfg.SeedUsers)
		if err != nil {
			l.Fatal().Err(err).Msg("Failed to seed users")
		}
		for _, u := range users {
			l.Info().Str("username", u.Username).Str("user_id", u.ID.String()).Msg("Seeded user")
		}
	}

	tokens := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)
	hub := ws.NewHub()

	calls := service.NewCalls(hub, db.Users(), db.CallSessions(), cfg.RingTimeout)
	presence := service.NewPresence(hub, db.Users(), calls)
	relay := service.NewRelay(hub, db.Messages())
	signals := service.NewSignals(calls, hub)

	h := handler.NewHandler(tokens, tokens, db.Users(), hub, presence, relay, calls, signals)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: h.NewRouter(),
	}

	go func() {
		l.Info().Str("addr", cfg.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	l.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("Server forced to shutdown")
	}

	hub.Shutdown()
	l.Info().Msg("Server exited")
}
