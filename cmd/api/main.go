package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ewilliams-labs/tastemap/internal/adapters/rest"
	"github.com/ewilliams-labs/tastemap/internal/adapters/spotify"
	"github.com/ewilliams-labs/tastemap/internal/adapters/sqlite"
	"github.com/ewilliams-labs/tastemap/internal/config"
	"github.com/ewilliams-labs/tastemap/internal/core/ports"
	"github.com/ewilliams-labs/tastemap/internal/core/services"
	"github.com/ewilliams-labs/tastemap/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// 1. Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Driven adapters
	repo, err := sqlite.NewAdapter(cfg.Storage.Path)
	if err != nil {
		slog.Error("failed to initialize database", "path", cfg.Storage.Path, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	spotifyClient, err := spotify.NewClientFromConfig(context.Background(), spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: cfg.Spotify.RefreshToken,
		BaseURL:      cfg.Spotify.BaseURL,
		MaxRetries:   cfg.Spotify.MaxRetries,
		RetryBackoff: time.Duration(cfg.Spotify.RetryBackoffMs) * time.Millisecond,
	})
	if err != nil {
		slog.Error("failed to initialize spotify client", "error", err)
		os.Exit(1)
	}

	// 3. Core
	svc := services.NewOrchestrator(spotifyClient, repo, services.Options{
		Rule:             cfg.Rule(),
		IncludeLiked:     cfg.Insights.IncludeLiked,
		MinPlaylists:     cfg.Insights.MinPlaylists,
		MinVariants:      cfg.Insights.MinVariants,
		GenreArtistLimit: cfg.Insights.GenreArtistLimit,
		ShareBaseURL:     cfg.Server.ShareBaseURL,
	})

	var analyzer ports.PreviewAnalyzer
	if cfg.Worker.PreviewAnalysis {
		analyzer = worker.NewPreviewAnalyzer(nil)
	}
	pool := worker.NewPool(svc, analyzer, cfg.Worker.QueueSize)
	pool.Start(cfg.Worker.Count)

	// 4. Driving adapter
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           rest.NewHandler(svc, pool),
		ReadHeaderTimeout: 15 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("tastemap api listening", "addr", srv.Addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			slog.Error("server failed", "error", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown error", "error", err)
	}
	pool.Stop(shutdownCtx)
}
