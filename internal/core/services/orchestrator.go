package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/insights"
	"github.com/ewilliams-labs/tastemap/internal/core/ports"
)

const defaultGenreArtistLimit = 200

// Options are the analysis defaults. Per-request AnalysisOptions override
// Rule and IncludeLiked.
type Options struct {
	Rule             domain.DedupeRule
	IncludeLiked     bool
	MinPlaylists     int
	MinVariants      int
	GenreArtistLimit int
	ShareBaseURL     string
}

// Orchestrator coordinates the library source, the repository and the
// insights engine.
type Orchestrator struct {
	source ports.LibrarySource
	repo   ports.LibraryRepository
	opts   Options

	now   func() time.Time
	newID func() string
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(source ports.LibrarySource, repo ports.LibraryRepository, opts Options) *Orchestrator {
	if opts.Rule == "" {
		opts.Rule = domain.DedupeByTrackID
	}
	if opts.GenreArtistLimit <= 0 {
		opts.GenreArtistLimit = defaultGenreArtistLimit
	}
	return &Orchestrator{
		source: source,
		repo:   repo,
		opts:   opts,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Defaults returns the options the orchestrator was built with.
func (o *Orchestrator) Defaults() Options {
	return o.opts
}

// SyncProgress is called after each playlist is fetched.
type SyncProgress func(done, total int, playlist domain.Playlist)

// SyncOptions controls a library sync.
type SyncOptions struct {
	IncludeLiked bool
	Progress     SyncProgress
}

// SyncResult summarizes a stored snapshot.
type SyncResult struct {
	RunID       string `json:"run_id"`
	Playlists   int    `json:"playlists"`
	Items       int    `json:"items"`
	Liked       int    `json:"liked"`
	Unavailable int    `json:"unavailable"`
}

// Sync fetches the whole library and replaces the stored snapshot.
// Enrichment data already stored is kept.
func (o *Orchestrator) Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	profile, err := o.source.GetProfile(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("service: failed to fetch profile: %w", err)
	}
	playlists, err := o.source.GetPlaylists(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("service: failed to fetch playlists: %w", err)
	}

	lib := domain.Library{
		RunID:           o.newID(),
		FetchedAt:       o.now().UTC().Format(time.RFC3339),
		Profile:         profile,
		Playlists:       playlists,
		ItemsByPlaylist: make(map[string][]domain.PlaylistItem, len(playlists)),
	}
	res := SyncResult{RunID: lib.RunID, Playlists: len(playlists)}

	for i, pl := range playlists {
		items, err := o.source.GetPlaylistItems(ctx, pl.ID)
		if err != nil {
			return SyncResult{}, fmt.Errorf("service: failed to fetch items for playlist %s: %w", pl.ID, err)
		}
		lib.ItemsByPlaylist[pl.ID] = items
		res.Items += len(items)
		if opts.Progress != nil {
			opts.Progress(i+1, len(playlists), pl)
		}
	}

	if opts.IncludeLiked {
		liked, err := o.source.GetSavedTracks(ctx)
		if err != nil {
			return SyncResult{}, fmt.Errorf("service: failed to fetch saved tracks: %w", err)
		}
		lib.Liked = liked
		res.Liked = len(liked)
	}
	res.Unavailable = insights.CountUnavailable(insights.SourceFromLibrary(lib, opts.IncludeLiked))

	if err := o.repo.SaveLibrary(ctx, lib); err != nil {
		return SyncResult{}, fmt.Errorf("service: failed to save library: %w", err)
	}
	slog.Info("library synced",
		"run_id", res.RunID, "playlists", res.Playlists, "items", res.Items,
		"liked", res.Liked, "unavailable", res.Unavailable)
	return res, nil
}

// PreviewCandidate is a track with no usable audio features but with a
// preview clip that can be analyzed instead.
type PreviewCandidate struct {
	TrackID    string `json:"track_id"`
	PreviewURL string `json:"preview_url"`
}

// EnrichResult reports an enrichment pass.
type EnrichResult struct {
	Requested int                `json:"requested"`
	Stored    int                `json:"stored"`
	Previews  []PreviewCandidate `json:"previews,omitempty"`
}

// EnrichAudioFeatures fetches features for every unique track id that has
// none stored. Tracks still missing features afterwards are returned as
// preview candidates when they carry a preview URL.
func (o *Orchestrator) EnrichAudioFeatures(ctx context.Context) (EnrichResult, error) {
	lib, err := o.load(ctx)
	if err != nil {
		return EnrichResult{}, err
	}
	occs := insights.BuildOccurrences(insights.SourceFromLibrary(lib, true))

	var missing []string
	previews := make(map[string]string)
	seen := make(map[string]bool)
	for _, occ := range occs {
		if occ.TrackID == "" || seen[occ.TrackID] {
			continue
		}
		seen[occ.TrackID] = true
		if f, ok := lib.AudioFeatures[occ.TrackID]; ok && !f.Empty() {
			continue
		}
		missing = append(missing, occ.TrackID)
		if occ.PreviewURL != "" {
			previews[occ.TrackID] = occ.PreviewURL
		}
	}

	res := EnrichResult{Requested: len(missing)}
	if len(missing) == 0 {
		return res, nil
	}
	features, err := o.source.GetAudioFeatures(ctx, missing)
	if err != nil {
		return EnrichResult{}, fmt.Errorf("service: failed to fetch audio features: %w", err)
	}
	if err := o.repo.SaveAudioFeatures(ctx, features); err != nil {
		return EnrichResult{}, fmt.Errorf("service: failed to save audio features: %w", err)
	}
	res.Stored = len(features)

	for _, id := range missing {
		if f, ok := features[id]; ok && !f.Empty() {
			continue
		}
		if url, ok := previews[id]; ok {
			res.Previews = append(res.Previews, PreviewCandidate{TrackID: id, PreviewURL: url})
		}
	}
	return res, nil
}

// EnrichGenres fetches genres for the top limit artists with a known id.
// A non-positive limit uses the configured default.
func (o *Orchestrator) EnrichGenres(ctx context.Context, limit int) (EnrichResult, error) {
	if limit <= 0 {
		limit = o.opts.GenreArtistLimit
	}
	lib, err := o.load(ctx)
	if err != nil {
		return EnrichResult{}, err
	}
	ix := insights.BuildArtistIndex(insights.BuildOccurrences(insights.SourceFromLibrary(lib, true)))

	var ids []string
	for _, id := range ix.TopArtistIDs(limit) {
		if _, ok := lib.ArtistGenres[id]; !ok {
			ids = append(ids, id)
		}
	}
	res := EnrichResult{Requested: len(ids)}
	if len(ids) == 0 {
		return res, nil
	}
	genres, err := o.source.GetArtistGenres(ctx, ids)
	if err != nil {
		return EnrichResult{}, fmt.Errorf("service: failed to fetch artist genres: %w", err)
	}
	if err := o.repo.SaveArtistGenres(ctx, genres); err != nil {
		return EnrichResult{}, fmt.Errorf("service: failed to save artist genres: %w", err)
	}
	res.Stored = len(genres)
	return res, nil
}

// ApplyPreviewEnergy stores an energy estimate computed from a preview clip.
func (o *Orchestrator) ApplyPreviewEnergy(ctx context.Context, analyzer ports.PreviewAnalyzer, c PreviewCandidate) error {
	energy, err := analyzer.AnalyzePreview(ctx, c.PreviewURL)
	if err != nil {
		return fmt.Errorf("service: failed to analyze preview for %s: %w", c.TrackID, err)
	}
	if err := o.repo.SavePreviewEnergy(ctx, c.TrackID, energy); err != nil {
		return fmt.Errorf("service: failed to save preview energy: %w", err)
	}
	return nil
}

func (o *Orchestrator) load(ctx context.Context) (domain.Library, error) {
	lib, err := o.repo.LoadLibrary(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotSynced) {
			return domain.Library{}, err
		}
		return domain.Library{}, fmt.Errorf("service: failed to load library: %w", err)
	}
	return lib, nil
}
