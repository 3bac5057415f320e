package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/trycode2018/chathub/internal/adapters/directory"
	router "github.com/trycode2018/chathub/internal/adapters/http"
	"github.com/trycode2018/chathub/internal/adapters/store"
	"github.com/trycode2018/chathub/internal/app"
	"github.com/trycode2018/chathub/internal/config"
	"github.com/trycode2018/chathub/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	dir, err := directory.Load(cfg.UsersFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.UsersFile).Msg("failed to load user directory")
	}

	var msgStore core.MessageStore
	switch cfg.Store {
	case "badger":
		b, err := store.OpenBadger(cfg.BadgerPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.BadgerPath).Msg("failed to open message store")
		}
		defer func() {
			if err := b.Close(); err != nil {
				log.Error().Err(err).Msg("close message store")
			}
		}()
		msgStore = b
	default:
		msgStore = store.NewMemory()
	}

	presence := core.NewPresenceRegistry()
	hub := app.NewHub(presence, dir, msgStore, app.Options{
		EchoToSender: cfg.EchoToSender,
		PageSize:     cfg.PageSize,
	})

	r := router.SetupRouter(ctx, cfg, hub)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("chathub server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
