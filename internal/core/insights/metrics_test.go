package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

func TestComputeMetrics_BasicAggregate(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := ComputeMetrics(MetricsInput{Source: basicSource(), Rule: domain.DedupeByTrackID, Now: now})

	assert.Equal(t, "2025-03-01T12:00:00.000Z", m.GeneratedAt)
	assert.Equal(t, 2, m.PlaylistCount)
	assert.Equal(t, 3, m.TotalTracks)
	assert.Equal(t, 2, m.UniqueTracks)
	assert.Equal(t, 1, m.DuplicatesAcrossSources)
	assert.Equal(t, 3, m.ExplicitKnown)
	assert.Equal(t, 2, m.ExplicitCount)
	require.NotNil(t, m.ExplicitRatio)
	assert.InDelta(t, 2.0/3.0, *m.ExplicitRatio, 1e-9)
	assert.Equal(t, int64(700000), m.TotalDurationMs)
	require.NotNil(t, m.AvgDurationMs)
	assert.InDelta(t, 700000.0/3.0, *m.AvgDurationMs, 1e-6)
	assert.Nil(t, m.AvgPopularity)
	assert.Equal(t, "track_id", m.UniqueBy)

	require.Len(t, m.TopArtists, 2)
	assert.Equal(t, RankedEntry{ID: "A", Name: "Artist A", Count: 2}, m.TopArtists[0])
	assert.Equal(t, 2, m.UniqueArtistCount)

	assert.Equal(t, []DateCount{{Date: "2024-01-01", Count: 3}}, m.AddedTimeline)
	assert.Equal(t, "2024-01-01T10:00:00Z", m.FirstAddedAt)
	assert.Equal(t, VibeDeepDive, m.Vibe)
	assert.NotEmpty(t, m.VibeText)

	require.Len(t, m.Playlists, 2)
	assert.Equal(t, 2, m.Playlists[0].TrackCount)
	assert.Equal(t, "owner", m.Playlists[0].Owner)
}

func TestComputeMetrics_NullSafety(t *testing.T) {
	src := Source{
		Playlists: []domain.Playlist{playlist("P1", "First")},
		ItemsByPlaylist: map[string][]domain.PlaylistItem{
			"P1": {item(track("1", "a", "A", "Artist A")), item(track("2", "b", "A", "Artist A"))},
		},
	}

	m := ComputeMetrics(MetricsInput{Source: src})

	assert.Equal(t, 0, m.ExplicitKnown)
	assert.Nil(t, m.ExplicitRatio)
	assert.Nil(t, m.AvgDurationMs)
	assert.Nil(t, m.AvgPopularity)
}

func TestComputeMetrics_Exclusions(t *testing.T) {
	anonymous := &domain.TrackPayload{Name: "No identity"}
	src := Source{
		Playlists: []domain.Playlist{playlist("P1", "First")},
		ItemsByPlaylist: map[string][]domain.PlaylistItem{
			"P1": {
				item(track("1", "a", "A", "Artist A")),
				{Track: nil},
				item(anonymous),
			},
		},
		Liked: []domain.PlaylistItem{item(track("9", "liked", "Z", "Zed"))},
	}

	m := ComputeMetrics(MetricsInput{Source: src})

	assert.Equal(t, 2, m.TotalTracks, "identity-less tracks still count toward totals")
	assert.Equal(t, 1, m.UniqueTracks)
	assert.Equal(t, 1, m.UnavailableTracks)
	assert.Equal(t, 1, m.LikedCount)
	assert.Equal(t, 0, m.DuplicatesAcrossSources)

	src.IncludeLiked = true
	m = ComputeMetrics(MetricsInput{Source: src})
	assert.Equal(t, 3, m.TotalTracks)
	assert.Equal(t, 2, m.UniqueTracks)
}

func TestComputeMetrics_Decades(t *testing.T) {
	dates := []string{"1994-05-01", "1999", "2003-01", "abcd", "", "0999"}
	var items []domain.PlaylistItem
	for i, d := range dates {
		tr := track(string(rune('a'+i)), "t", "A", "Artist A")
		tr.Album.ReleaseDate = d
		items = append(items, item(tr))
	}
	src := Source{
		Playlists:       []domain.Playlist{playlist("P1", "First")},
		ItemsByPlaylist: map[string][]domain.PlaylistItem{"P1": items},
	}

	m := ComputeMetrics(MetricsInput{Source: src})

	assert.Equal(t, []DecadeCount{{Decade: 1990, Count: 2}, {Decade: 2000, Count: 1}}, m.DecadeDistribution)
}

func TestComputeMetrics_Empty(t *testing.T) {
	m := ComputeMetrics(MetricsInput{})

	assert.Equal(t, 0, m.TotalTracks)
	assert.Equal(t, 0, m.UniqueTracks)
	assert.Nil(t, m.ExplicitRatio)
	assert.NotNil(t, m.DecadeDistribution)
	assert.Empty(t, m.TopArtists)
	assert.Equal(t, VibeBalanced, m.Vibe)
	assert.Equal(t, "", m.GeneratedAt)
}

func TestInferVibe(t *testing.T) {
	tests := []struct {
		name string
		m    Metrics
		want string
	}{
		{
			name: "high uniqueness wins first",
			m:    Metrics{TotalTracks: 100, UniqueTracks: 95, TopArtists: []RankedEntry{{Count: 50}}},
			want: VibeExplorer,
		},
		{
			name: "focused on one artist",
			m:    Metrics{TotalTracks: 100, UniqueTracks: 80, TopArtists: []RankedEntry{{Count: 9}}},
			want: VibeDeepDive,
		},
		{
			name: "large library",
			m:    Metrics{TotalTracks: 6000, UniqueTracks: 5000, TopArtists: []RankedEntry{{Count: 10}}},
			want: VibeLargeLibrary,
		},
		{
			name: "balanced",
			m:    Metrics{TotalTracks: 100, UniqueTracks: 80, TopArtists: []RankedEntry{{Count: 8}}},
			want: VibeBalanced,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, inferVibe(tc.m))
		})
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"2011-05-02", 2011, true},
		{"1987", 1987, true},
		{"0999-01-01", 0, false},
		{"3001", 0, false},
		{"May 2011", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		got, ok := ParseYear(tc.in)
		assert.Equal(t, tc.wantOK, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestCounterTopKeepsFirstSeenOnTies(t *testing.T) {
	c := newCounter()
	c.add("b", "", "b")
	c.add("a", "", "a")
	c.add("a", "", "a")
	c.add("c", "", "c")

	top := c.top(2)

	assert.Equal(t, []RankedEntry{{Name: "a", Count: 2}, {Name: "b", Count: 1}}, top)
}
