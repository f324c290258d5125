package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"albumserver/internal/config"
	"albumserver/internal/logging"
	"albumserver/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("album server stopped")
	}
}

func run() error {
	cfg, err := config.Load(".env", "config/local.env")
	if err != nil {
		return err
	}

	logging.SetGlobal(logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	dataStore := store.New(db, store.Options{
		Driver:       cfg.Database.Driver,
		UniqueTitles: cfg.Database.UniqueTitles,
	})
	if err := dataStore.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("prepare schema: %w", err)
	}

	albumSvc, closeCache := newAlbumService(ctx, cfg, dataStore)
	defer closeCache()

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           newHTTPHandler(cfg, albumSvc),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("driver", cfg.Database.Driver).
			Msg("album server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
