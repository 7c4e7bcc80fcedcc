package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/blogstub"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/config"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/log"
	"github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/server"
)

func main() {
	cfg, err := config.Load(os.Getenv("AUTHORPANEL_CONFIG"))
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level)

	store := blogstub.NewStore(nil)
	if err := store.Seed([]blogstub.SeedUser{
		{Username: cfg.Stub.SeedUsername, Password: cfg.Stub.SeedPassword, Email: cfg.Stub.SeedUsername + "@atom.local", Author: "Atom Author"},
		{Username: "reader", Password: "reader-pass", Email: "reader@atom.local"},
	}); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed store")
	}

	api := blogstub.New(cfg.Stub, store, logger)
	httpServer := server.NewHTTPServer(cfg, logger, api.Register)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()
	logger.Info().Str("username", cfg.Stub.SeedUsername).Msg("seeded author account")

	waitForShutdown(logger, httpServer)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
