package services

import (
	"context"
	"fmt"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/insights"
)

// AnalysisOptions override the orchestrator defaults for one request.
// Zero values mean "use the default".
type AnalysisOptions struct {
	Rule         domain.DedupeRule
	IncludeLiked *bool
}

// Analysis is one consistent view of the stored library. Every artifact
// derived from it uses the same occurrences and dedupe rule.
type Analysis struct {
	Library      domain.Library
	Source       insights.Source
	Rule         domain.DedupeRule
	Occurrences  []domain.Occurrence
	Metrics      insights.Metrics
	Artists      *insights.ArtistIndex
	PlaylistKeys *insights.PlaylistKeySets
}

// Analyze loads the library and builds the shared artifacts.
func (o *Orchestrator) Analyze(ctx context.Context, opts AnalysisOptions) (*Analysis, error) {
	lib, err := o.load(ctx)
	if err != nil {
		return nil, err
	}
	rule := opts.Rule
	if rule == "" {
		rule = o.opts.Rule
	}
	includeLiked := o.opts.IncludeLiked
	if opts.IncludeLiked != nil {
		includeLiked = *opts.IncludeLiked
	}

	src := insights.SourceFromLibrary(lib, includeLiked)
	occs := insights.BuildOccurrences(src)
	return &Analysis{
		Library:      lib,
		Source:       src,
		Rule:         rule,
		Occurrences:  occs,
		Metrics:      insights.ComputeMetrics(insights.MetricsInput{Source: src, Rule: rule, Now: o.now()}),
		Artists:      insights.BuildArtistIndex(occs),
		PlaylistKeys: insights.BuildPlaylistKeySets(occs, rule),
	}, nil
}

// Metrics returns the metrics snapshot.
func (o *Orchestrator) Metrics(ctx context.Context, opts AnalysisOptions) (insights.Metrics, error) {
	a, err := o.Analyze(ctx, opts)
	if err != nil {
		return insights.Metrics{}, err
	}
	return a.Metrics, nil
}

// Duplicates returns exact duplicate groups.
func (o *Orchestrator) Duplicates(ctx context.Context, opts AnalysisOptions) ([]insights.DuplicateGroup, error) {
	a, err := o.Analyze(ctx, opts)
	if err != nil {
		return nil, err
	}
	return insights.FindExactDuplicates(a.Occurrences, insights.ExactOptions{
		Rule:         a.Rule,
		MinPlaylists: o.opts.MinPlaylists,
	}), nil
}

// NearDuplicates returns near-duplicate groups.
func (o *Orchestrator) NearDuplicates(ctx context.Context, opts AnalysisOptions) ([]insights.NearDuplicateGroup, error) {
	a, err := o.Analyze(ctx, opts)
	if err != nil {
		return nil, err
	}
	return insights.FindNearDuplicates(a.Occurrences, insights.NearOptions{MinVariants: o.opts.MinVariants}), nil
}

// Overlap computes the overlap matrix for playlistIDs, or for every source
// in library order when playlistIDs is empty.
func (o *Orchestrator) Overlap(ctx context.Context, opts AnalysisOptions, playlistIDs []string) (insights.Overlap, error) {
	a, err := o.Analyze(ctx, opts)
	if err != nil {
		return insights.Overlap{}, err
	}
	if len(playlistIDs) == 0 {
		playlistIDs = a.sourceIDs()
	}
	for _, id := range playlistIDs {
		if !a.hasSource(id) {
			return insights.Overlap{}, fmt.Errorf("service: playlist %s: %w", id, domain.ErrNotFound)
		}
	}
	return insights.ComputeOverlap(playlistIDs, a.PlaylistKeys), nil
}

// OverlapDetail lists the tracks two playlists share.
func (o *Orchestrator) OverlapDetail(ctx context.Context, opts AnalysisOptions, first, second string) ([]insights.TrackMeta, error) {
	a, err := o.Analyze(ctx, opts)
	if err != nil {
		return nil, err
	}
	for _, id := range []string{first, second} {
		if !a.hasSource(id) {
			return nil, fmt.Errorf("service: playlist %s: %w", id, domain.ErrNotFound)
		}
	}
	return a.PlaylistKeys.SharedTracks(first, second), nil
}

// ArtistDetail returns the drill-down for one artist key.
func (o *Orchestrator) ArtistDetail(ctx context.Context, opts AnalysisOptions, key string) (insights.ArtistDetail, error) {
	a, err := o.Analyze(ctx, opts)
	if err != nil {
		return insights.ArtistDetail{}, err
	}
	d, ok := a.Artists.Detail(key)
	if !ok {
		return insights.ArtistDetail{}, fmt.Errorf("service: artist %s: %w", key, domain.ErrNotFound)
	}
	return d, nil
}

// SearchArtists finds artists by name.
func (o *Orchestrator) SearchArtists(ctx context.Context, opts AnalysisOptions, query string, limit int) ([]insights.ArtistMatch, error) {
	a, err := o.Analyze(ctx, opts)
	if err != nil {
		return nil, err
	}
	return a.Artists.Search(query, limit), nil
}

// DNAResult is a fingerprint with its shareable forms.
type DNAResult struct {
	DNA      insights.DNA `json:"dna"`
	Token    string       `json:"token"`
	ShareURL string       `json:"share_url,omitempty"`
	Bars     []float64    `json:"bars"`
}

const dnaBarCount = 56

// DNA computes the fingerprint of the library.
func (o *Orchestrator) DNA(ctx context.Context, opts AnalysisOptions) (DNAResult, error) {
	a, err := o.Analyze(ctx, opts)
	if err != nil {
		return DNAResult{}, err
	}
	dna := insights.ComputeDNA(insights.DNAInput{
		Metrics:       a.Metrics,
		Occurrences:   a.Occurrences,
		AudioFeatures: a.Library.AudioFeatures,
		TopGenres:     insights.TopGenresFromArtists(a.Artists, a.Library.ArtistGenres),
		Now:           o.now(),
	})
	return describeDNA(dna, o.opts.ShareBaseURL)
}

// DecodeDNA decodes a shared token and renders the same view as DNA.
func (o *Orchestrator) DecodeDNA(token string) (DNAResult, error) {
	dna, err := insights.DecodeDNA(token)
	if err != nil {
		return DNAResult{}, err
	}
	return describeDNA(dna, o.opts.ShareBaseURL)
}

func describeDNA(dna insights.DNA, base string) (DNAResult, error) {
	token, err := insights.EncodeDNA(dna)
	if err != nil {
		return DNAResult{}, fmt.Errorf("service: %w", err)
	}
	bars, err := insights.BarPattern(dna, dnaBarCount)
	if err != nil {
		return DNAResult{}, fmt.Errorf("service: %w", err)
	}
	res := DNAResult{DNA: dna, Token: token, Bars: bars}
	if base != "" {
		res.ShareURL, err = insights.ShareURL(base, dna)
		if err != nil {
			return DNAResult{}, fmt.Errorf("service: %w", err)
		}
	}
	return res, nil
}

// Persona computes the persona of one playlist.
func (o *Orchestrator) Persona(ctx context.Context, opts AnalysisOptions, playlistID string) (insights.Persona, error) {
	a, err := o.Analyze(ctx, opts)
	if err != nil {
		return insights.Persona{}, err
	}
	name, ok := a.sourceName(playlistID)
	if !ok {
		return insights.Persona{}, fmt.Errorf("service: playlist %s: %w", playlistID, domain.ErrNotFound)
	}
	return insights.ComputePersona(insights.PersonaInput{
		Name:          name,
		Occurrences:   insights.FilterByPlaylist(a.Occurrences, playlistID),
		AudioFeatures: a.Library.AudioFeatures,
		ArtistGenres:  a.Library.ArtistGenres,
		Rule:          a.Rule,
	}), nil
}

// ExportRows flattens every occurrence for export.
func (o *Orchestrator) ExportRows(ctx context.Context, opts AnalysisOptions) ([]insights.ExportRow, error) {
	a, err := o.Analyze(ctx, opts)
	if err != nil {
		return nil, err
	}
	return insights.ExportRows(a.Occurrences, a.Library.AudioFeatures), nil
}

func (a *Analysis) sourceIDs() []string {
	ids := make([]string, 0, len(a.Source.Playlists)+1)
	for _, pl := range a.Source.Playlists {
		ids = append(ids, pl.ID)
	}
	if a.Source.IncludeLiked {
		ids = append(ids, domain.LikedPlaylistID)
	}
	return ids
}

func (a *Analysis) hasSource(id string) bool {
	_, ok := a.sourceName(id)
	return ok
}

func (a *Analysis) sourceName(id string) (string, bool) {
	if id == domain.LikedPlaylistID && a.Source.IncludeLiked {
		return domain.LikedPlaylistName, true
	}
	for _, pl := range a.Source.Playlists {
		if pl.ID == id {
			return pl.Name, true
		}
	}
	return "", false
}
