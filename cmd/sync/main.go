// Command sync pulls the Spotify library into the local store and prints a
// summary of the resulting insights.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/ewilliams-labs/tastemap/internal/adapters/spotify"
	"github.com/ewilliams-labs/tastemap/internal/adapters/sqlite"
	"github.com/ewilliams-labs/tastemap/internal/config"
	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/insights"
	"github.com/ewilliams-labs/tastemap/internal/core/services"
)

type report struct {
	Sync       services.SyncResult           `json:"sync"`
	Metrics    insights.Metrics              `json:"metrics"`
	Duplicates []insights.DuplicateGroup     `json:"duplicates"`
	Near       []insights.NearDuplicateGroup `json:"near_duplicates"`
	DNA        services.DNAResult            `json:"dna"`
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	liked := flag.Bool("liked", false, "also fetch liked songs")
	enrich := flag.Bool("enrich", false, "fetch audio features and artist genres after syncing")
	reportPath := flag.String("report", "", "write a JSON insights report to this path")
	flag.Parse()

	if err := run(*configPath, *liked, *enrich, *reportPath); err != nil {
		slog.Error("sync failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, liked, enrich bool, reportPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := sqlite.NewAdapter(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer repo.Close()

	client, err := spotify.NewClientFromConfig(ctx, spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: cfg.Spotify.RefreshToken,
		BaseURL:      cfg.Spotify.BaseURL,
		MaxRetries:   cfg.Spotify.MaxRetries,
		RetryBackoff: time.Duration(cfg.Spotify.RetryBackoffMs) * time.Millisecond,
	})
	if err != nil {
		return err
	}

	includeLiked := liked || cfg.Insights.IncludeLiked
	svc := services.NewOrchestrator(client, repo, services.Options{
		Rule:             cfg.Rule(),
		IncludeLiked:     includeLiked,
		MinPlaylists:     cfg.Insights.MinPlaylists,
		MinVariants:      cfg.Insights.MinVariants,
		GenreArtistLimit: cfg.Insights.GenreArtistLimit,
		ShareBaseURL:     cfg.Server.ShareBaseURL,
	})

	var bar *progressbar.ProgressBar
	res, err := svc.Sync(ctx, services.SyncOptions{
		IncludeLiked: includeLiked,
		Progress: func(done, total int, pl domain.Playlist) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetTheme(progressbar.ThemeASCII),
					progressbar.OptionFullWidth(),
					progressbar.OptionShowCount(),
					progressbar.OptionSetDescription("Fetching playlists..."),
				)
			}
			bar.Describe(pl.Name)
			_ = bar.Set(done)
		},
	})
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}

	if enrich {
		if _, err := svc.EnrichAudioFeatures(ctx); err != nil {
			return err
		}
		if _, err := svc.EnrichGenres(ctx, 0); err != nil {
			return err
		}
	}

	opts := services.AnalysisOptions{}
	rep := report{Sync: res}
	if rep.Metrics, err = svc.Metrics(ctx, opts); err != nil {
		return err
	}
	if rep.Duplicates, err = svc.Duplicates(ctx, opts); err != nil {
		return err
	}
	if rep.Near, err = svc.NearDuplicates(ctx, opts); err != nil {
		return err
	}
	if rep.DNA, err = svc.DNA(ctx, opts); err != nil {
		return err
	}

	printSummary(os.Stdout, rep)

	if reportPath != "" {
		if err := writeReport(reportPath, rep); err != nil {
			return err
		}
		slog.Info("report written", "path", reportPath)
	}
	return nil
}

func printSummary(w io.Writer, rep report) {
	m := rep.Metrics
	fmt.Fprintf(w, "Playlists:        %d (%d public, %d private, %d collaborative)\n",
		m.PlaylistCount, m.PlaylistsPublicCount, m.PlaylistsPrivateCount, m.PlaylistsCollaborativeCount)
	fmt.Fprintf(w, "Liked songs:      %d\n", m.LikedCount)
	fmt.Fprintf(w, "Tracks:           %d total, %d unique by %s\n", m.TotalTracks, m.UniqueTracks, m.UniqueBy)
	fmt.Fprintf(w, "Unavailable:      %d\n", m.UnavailableTracks)
	fmt.Fprintf(w, "Artists/albums:   %d / %d\n", m.UniqueArtistCount, m.UniqueAlbumCount)
	fmt.Fprintf(w, "Duplicate groups: %d exact, %d near\n", len(rep.Duplicates), len(rep.Near))
	if len(m.TopArtists) > 0 {
		fmt.Fprintf(w, "Top artist:       %s (%d)\n", m.TopArtists[0].Name, m.TopArtists[0].Count)
	}
	fmt.Fprintf(w, "Vibe:             %s\n", m.VibeText)
	if rep.DNA.ShareURL != "" {
		fmt.Fprintf(w, "Share:            %s\n", rep.DNA.ShareURL)
	}
}

func writeReport(path string, rep report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
