package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional; real environment variables take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cfg, err := ParseConfig(os.Args[1:], os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	var (
		db      *DB
		history MatchHistory
		err     error
	)
	if cfg.DBPath != "" {
		db, err = OpenDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		history = db
		logger.Info("match ledger enabled", "path", cfg.DBPath)
	}
	recorder := NewRecorder(db, logger)

	var publisher *Publisher
	if cfg.NATSURL != "" {
		publisher, err = NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			return err
		}
		logger.Info("match events enabled", "url", cfg.NATSURL, "subject", SubjectMatchEnded)
	}

	var sink MatchSink = recorder
	if publisher != nil {
		sink = MatchSinks(recorder, publisher)
	}

	invites, err := NewInvites(cfg.InviteSecret, cfg.PublicURL)
	if err != nil {
		return err
	}
	if cfg.InviteSecret == "" {
		logger.Warn("no invite secret configured; invite links expire on restart")
	}

	rooms := NewRegistry(cfg.MaxRooms, logger)
	coord := NewCoordinator(rooms, sink, logger)
	hub := NewHub(coord, rooms, invites, logger)
	go hub.Run()

	housekeeping, err := StartHousekeeping(cfg.StatsInterval, hub, rooms, recorder, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           SetupRoutes(hub, history, cfg.ClientDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
	hub.CloseAll()
	rooms.Close()
	if err := housekeeping.Stop(); err != nil {
		logger.Error("housekeeping shutdown", "err", err)
	}
	recorder.Stop()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("nats drain", "err", err)
		}
	}
	logger.Info("server stopped")
	return nil
}
