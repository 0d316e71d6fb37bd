package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/plst/internal/metrics"
	"github.com/desertthunder/plst/internal/models"
	"github.com/desertthunder/plst/internal/server"
	"github.com/desertthunder/plst/internal/shared"
	"github.com/desertthunder/plst/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

const pruneInterval = time.Minute

// Serve runs the HTTP API and viewer sockets until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if host := cmd.String("host"); host != "" {
		config.Server.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		config.Server.Port = port
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Init(ctx, config.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			r.logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	metrics.Register(prometheus.DefaultRegisterer)

	s, err := r.open(config)
	if err != nil {
		return err
	}
	defer s.Close()

	if pid := models.PlaylistID(config.Playback.CurrentPlaylist); pid.Valid() {
		if _, err := s.service.Playlist(ctx, pid); errors.Is(err, shared.ErrNotFound) {
			r.logger.Warn("controlled playlist does not exist", "playlist", pid)
		} else if err != nil {
			return err
		}
	}

	go r.prune(ctx, s)

	srv := server.New(config.Server, s.service, r.logger)
	defer srv.Close()

	return srv.ListenAndServe(ctx)
}

// prune drops idle rooms until ctx is done.
func (r *Runner) prune(ctx context.Context, s *session) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.coordinator.Prune(); n > 0 {
				r.logger.Debug("pruned idle rooms", "count", n)
			}
		}
	}
}
