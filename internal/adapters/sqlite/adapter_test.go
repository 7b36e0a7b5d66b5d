package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	a, err := NewAdapter(":memory:")
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }

func sampleLibrary() domain.Library {
	track := &domain.TrackPayload{
		ID:         "t1",
		URI:        "spotify:track:t1",
		Name:       "Song One",
		Explicit:   boolPtr(true),
		Popularity: intPtr(55),
		DurationMs: intPtr(123000),
		PreviewURL: "https://p.scdn.co/mp3-preview/t1",
		Album:      domain.AlbumPayload{ID: "a1", Name: "Album A", ReleaseDate: "1997-06-01"},
		Artists:    []domain.ArtistPayload{{ID: "ar1", Name: "Artist A"}},
	}
	return domain.Library{
		RunID:     "run-1",
		FetchedAt: "2024-03-01T12:00:00Z",
		Profile:   domain.Profile{ID: "u1", DisplayName: "Dana"},
		Playlists: []domain.Playlist{
			{ID: "pl-2", Name: "Second", Owner: domain.Owner{ID: "u1"}, TracksTotal: intPtr(0)},
			{ID: "pl-1", Name: "First", Owner: domain.Owner{ID: "u1", DisplayName: "Dana"}, Public: true, SnapshotID: "snap"},
		},
		ItemsByPlaylist: map[string][]domain.PlaylistItem{
			"pl-1": {
				{AddedAt: "2024-01-01T00:00:00Z", AddedBy: "u1", Track: track},
				{AddedAt: "2024-01-02T00:00:00Z", Track: nil},
			},
		},
		Liked: []domain.PlaylistItem{{AddedAt: "2024-02-01T00:00:00Z", Track: track}},
	}
}

func TestAdapter_LoadLibrary_NotSynced(t *testing.T) {
	a := newTestAdapter(t)
	_, err := a.LoadLibrary(context.Background())
	if !errors.Is(err, domain.ErrNotSynced) {
		t.Fatalf("expected ErrNotSynced, got %v", err)
	}
}

func TestAdapter_SaveAndLoadLibrary(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.SaveLibrary(ctx, sampleLibrary()); err != nil {
		t.Fatalf("save library: %v", err)
	}

	got, err := a.LoadLibrary(ctx)
	if err != nil {
		t.Fatalf("load library: %v", err)
	}
	if got.RunID != "run-1" || got.Profile.DisplayName != "Dana" {
		t.Errorf("run metadata: got %+v", got)
	}
	if len(got.Playlists) != 2 || got.Playlists[0].ID != "pl-2" || got.Playlists[1].ID != "pl-1" {
		t.Fatalf("playlist order not preserved: %+v", got.Playlists)
	}
	if got.Playlists[0].TracksTotal == nil || *got.Playlists[0].TracksTotal != 0 {
		t.Errorf("tracks total: got %v, want 0", got.Playlists[0].TracksTotal)
	}
	if got.Playlists[1].TracksTotal != nil || !got.Playlists[1].Public {
		t.Errorf("second playlist: got %+v", got.Playlists[1])
	}

	empty, ok := got.ItemsByPlaylist["pl-2"]
	if !ok || len(empty) != 0 {
		t.Errorf("empty playlist should load as an empty item list, got %v (present=%v)", empty, ok)
	}

	items := got.ItemsByPlaylist["pl-1"]
	if len(items) != 2 {
		t.Fatalf("items: got %d, want 2", len(items))
	}
	if items[0].Track == nil || items[0].Track.Album.ReleaseDate != "1997-06-01" || *items[0].Track.Popularity != 55 {
		t.Errorf("first item track: got %+v", items[0].Track)
	}
	if items[1].Track != nil {
		t.Errorf("unavailable item should keep a nil track")
	}
	if len(got.Liked) != 1 {
		t.Errorf("liked: got %d, want 1", len(got.Liked))
	}
}

func TestAdapter_SaveLibrary_ReplacesSnapshotKeepsEnrichment(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	if err := a.SaveLibrary(ctx, sampleLibrary()); err != nil {
		t.Fatalf("save library: %v", err)
	}
	if err := a.SaveArtistGenres(ctx, map[string][]string{"ar1": {"trip hop"}}); err != nil {
		t.Fatalf("save genres: %v", err)
	}

	next := domain.Library{
		RunID:           "run-2",
		FetchedAt:       "2024-04-01T12:00:00Z",
		Profile:         domain.Profile{ID: "u1"},
		Playlists:       []domain.Playlist{{ID: "pl-9", Name: "Only"}},
		ItemsByPlaylist: map[string][]domain.PlaylistItem{},
	}
	if err := a.SaveLibrary(ctx, next); err != nil {
		t.Fatalf("save second library: %v", err)
	}

	got, err := a.LoadLibrary(ctx)
	if err != nil {
		t.Fatalf("load library: %v", err)
	}
	if got.RunID != "run-2" || len(got.Playlists) != 1 {
		t.Fatalf("snapshot not replaced: %+v", got)
	}
	if got.Liked != nil {
		t.Errorf("liked should stay nil when the run did not fetch it, got %v", got.Liked)
	}
	if g := got.ArtistGenres["ar1"]; len(g) != 1 || g[0] != "trip hop" {
		t.Errorf("genres should survive a re-sync, got %v", g)
	}
}

func TestAdapter_AudioFeatures(t *testing.T) {
	tests := []struct {
		name       string
		saves      []map[string]domain.AudioFeatures
		preview    *float64
		wantEnergy *float64
		wantTempo  *float64
	}{
		{
			name: "stores nullable fields",
			saves: []map[string]domain.AudioFeatures{
				{"t1": {Energy: floatPtr(0.8), Key: intPtr(5)}},
			},
			wantEnergy: floatPtr(0.8),
		},
		{
			name: "nil values do not overwrite",
			saves: []map[string]domain.AudioFeatures{
				{"t1": {Energy: floatPtr(0.8)}},
				{"t1": {Tempo: floatPtr(128)}},
			},
			wantEnergy: floatPtr(0.8),
			wantTempo:  floatPtr(128),
		},
		{
			name:       "preview energy fills missing value",
			saves:      []map[string]domain.AudioFeatures{{"t1": {Tempo: floatPtr(90)}}},
			preview:    floatPtr(0.33),
			wantEnergy: floatPtr(0.33),
			wantTempo:  floatPtr(90),
		},
		{
			name:       "preview energy never replaces api energy",
			saves:      []map[string]domain.AudioFeatures{{"t1": {Energy: floatPtr(0.9)}}},
			preview:    floatPtr(0.1),
			wantEnergy: floatPtr(0.9),
		},
		{
			name:       "preview energy without prior row",
			preview:    floatPtr(0.5),
			wantEnergy: floatPtr(0.5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(t)
			ctx := context.Background()
			if err := a.SaveLibrary(ctx, sampleLibrary()); err != nil {
				t.Fatalf("save library: %v", err)
			}
			for _, s := range tt.saves {
				if err := a.SaveAudioFeatures(ctx, s); err != nil {
					t.Fatalf("save features: %v", err)
				}
			}
			if tt.preview != nil {
				if err := a.SavePreviewEnergy(ctx, "t1", *tt.preview); err != nil {
					t.Fatalf("save preview energy: %v", err)
				}
			}

			lib, err := a.LoadLibrary(ctx)
			if err != nil {
				t.Fatalf("load library: %v", err)
			}
			f, ok := lib.AudioFeatures["t1"]
			if !ok {
				t.Fatal("features for t1 missing")
			}
			assertFloat(t, "energy", f.Energy, tt.wantEnergy)
			assertFloat(t, "tempo", f.Tempo, tt.wantTempo)
			if f.Valence != nil {
				t.Errorf("valence should stay unknown, got %v", *f.Valence)
			}
		})
	}
}

func assertFloat(t *testing.T, field string, got, want *float64) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		t.Errorf("%s: got %v, want %v", field, got, want)
	case *got != *want:
		t.Errorf("%s: got %v, want %v", field, *got, *want)
	}
}

func TestIsDuplicateColumnError(t *testing.T) {
	if isDuplicateColumnError(nil) {
		t.Error("nil error is not a duplicate column error")
	}
	if !isDuplicateColumnError(errors.New("duplicate column name: energy_source")) {
		t.Error("expected duplicate column error to match")
	}
}
