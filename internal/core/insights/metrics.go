package insights

import (
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

const topListSize = 12

// Vibe labels, evaluated in order by inferVibe.
const (
	VibeExplorer     = "explorer"
	VibeDeepDive     = "deep dive"
	VibeLargeLibrary = "large library"
	VibeBalanced     = "balanced"
)

var vibeText = map[string]string{
	VibeExplorer:     "Explorer mode: lots of variety, minimal repeats",
	VibeDeepDive:     "Deep dive: a few core artists on heavy rotation",
	VibeLargeLibrary: "Library dragon: a massive hoard of tracks",
	VibeBalanced:     "Balanced vibe: a bit of everything with healthy repeats",
}

// PlaylistRow summarizes one playlist inside a metrics snapshot.
type PlaylistRow struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Owner            string `json:"owner"`
	TrackCount       int    `json:"track_count"`
	TracksTotalField *int   `json:"tracks_total_field"`
	Public           bool   `json:"public"`
	Collaborative    bool   `json:"collaborative"`
	SnapshotID       string `json:"snapshot_id"`
}

// DecadeCount is one bucket of the release-decade histogram.
type DecadeCount struct {
	Decade int `json:"decade"`
	Count  int `json:"count"`
}

// RankedEntry is an artist or album with its occurrence count. ID is empty
// when the entry is keyed by name only.
type RankedEntry struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DateCount is one day of the added-at timeline.
type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Metrics is an immutable aggregate over one batch of occurrences. It is
// rebuilt from scratch on every recompute.
type Metrics struct {
	GeneratedAt                 string        `json:"generated_at"`
	PlaylistCount               int           `json:"playlist_count"`
	PlaylistsPublicCount        int           `json:"playlists_public_count"`
	PlaylistsPrivateCount       int           `json:"playlists_private_count"`
	PlaylistsCollaborativeCount int           `json:"playlists_collaborative_count"`
	Playlists                   []PlaylistRow `json:"playlists"`
	LikedCount                  int           `json:"liked_count"`
	TotalTracks                 int           `json:"total_tracks"`
	UniqueTracks                int           `json:"unique_tracks"`
	UniqueBy                    string        `json:"unique_by"`
	UnavailableTracks           int           `json:"unavailable_tracks"`
	DuplicatesAcrossSources     int           `json:"duplicates_across_sources"`
	LocalTrackCount             int           `json:"local_track_count"`
	ExplicitCount               int           `json:"explicit_count"`
	ExplicitKnown               int           `json:"explicit_known"`
	ExplicitRatio               *float64      `json:"explicit_ratio"`
	TotalDurationMs             int64         `json:"total_duration_ms"`
	DurationKnown               int           `json:"duration_known"`
	AvgDurationMs               *float64      `json:"avg_duration_ms"`
	PopularityKnown             int           `json:"popularity_known"`
	AvgPopularity               *float64      `json:"avg_popularity"`
	UniqueArtistCount           int           `json:"unique_artist_count"`
	UniqueAlbumCount            int           `json:"unique_album_count"`
	DecadeDistribution          []DecadeCount `json:"decade_distribution"`
	FirstAddedAt                string        `json:"first_added_at,omitempty"`
	LastAddedAt                 string        `json:"last_added_at,omitempty"`
	TopArtists                  []RankedEntry `json:"top_artists"`
	TopAlbums                   []RankedEntry `json:"top_albums"`
	AddedTimeline               []DateCount   `json:"added_timeline"`
	Vibe                        string        `json:"vibe"`
	VibeText                    string        `json:"vibe_text"`
}

// MetricsInput carries everything ComputeMetrics needs. Now stamps
// GeneratedAt so that identical inputs produce identical snapshots.
type MetricsInput struct {
	Source
	Rule domain.DedupeRule
	Now  time.Time
}

// counter keeps insertion order so ties in the top lists resolve to the
// entry seen first.
type counter struct {
	order   []string
	entries map[string]*RankedEntry
}

func newCounter() *counter {
	return &counter{entries: make(map[string]*RankedEntry)}
}

func (c *counter) add(key, id, name string) {
	e, ok := c.entries[key]
	if !ok {
		e = &RankedEntry{ID: id, Name: name}
		c.entries[key] = e
		c.order = append(c.order, key)
	}
	e.Count++
}

func (c *counter) top(n int) []RankedEntry {
	out := make([]RankedEntry, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, *c.entries[k])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

type aggregator struct {
	m           Metrics
	rule        domain.DedupeRule
	seen        map[string]struct{}
	artists     *counter
	albums      *counter
	albumKeys   map[string]struct{}
	decades     map[int]int
	timeline    map[string]int
	durationSum int64
	popularity  int64
}

// ComputeMetrics reduces the source to a metrics snapshot in a single pass.
func ComputeMetrics(in MetricsInput) Metrics {
	rule := in.Rule
	if rule == "" {
		rule = domain.DedupeByTrackID
	}
	a := &aggregator{
		rule:      rule,
		seen:      make(map[string]struct{}),
		artists:   newCounter(),
		albums:    newCounter(),
		albumKeys: make(map[string]struct{}),
		decades:   make(map[int]int),
		timeline:  make(map[string]int),
	}
	a.m.GeneratedAt = formatTimestamp(in.Now)
	a.m.PlaylistCount = len(in.Playlists)
	a.m.Playlists = make([]PlaylistRow, 0, len(in.Playlists))
	a.m.UniqueBy = string(rule)

	for _, pl := range in.Playlists {
		if pl.Public {
			a.m.PlaylistsPublicCount++
		} else {
			a.m.PlaylistsPrivateCount++
		}
		if pl.Collaborative {
			a.m.PlaylistsCollaborativeCount++
		}
		items := in.ItemsByPlaylist[pl.ID]
		a.m.Playlists = append(a.m.Playlists, PlaylistRow{
			ID:               pl.ID,
			Name:             pl.Name,
			Owner:            pl.Owner.Label(),
			TrackCount:       len(items),
			TracksTotalField: pl.TracksTotal,
			Public:           pl.Public,
			Collaborative:    pl.Collaborative,
			SnapshotID:       pl.SnapshotID,
		})
		for _, it := range items {
			occ, ok := occurrenceFromPlaylistItem(pl, it)
			if !ok {
				a.m.UnavailableTracks++
				continue
			}
			a.add(occ)
		}
	}

	a.m.LikedCount = len(in.Liked)
	if in.IncludeLiked {
		for _, it := range in.Liked {
			occ, ok := occurrenceFromLikedItem(it)
			if !ok {
				a.m.UnavailableTracks++
				continue
			}
			a.add(occ)
		}
	}

	return a.finish()
}

func (a *aggregator) add(o domain.Occurrence) {
	m := &a.m
	m.TotalTracks++
	if o.IsLocal {
		m.LocalTrackCount++
	}
	if o.Explicit != nil {
		m.ExplicitKnown++
		if *o.Explicit {
			m.ExplicitCount++
		}
	}
	if o.DurationMs != nil {
		m.DurationKnown++
		a.durationSum += int64(*o.DurationMs)
	}
	if o.Popularity != nil {
		m.PopularityKnown++
		a.popularity += int64(*o.Popularity)
	}
	if year, ok := ParseYear(o.AlbumReleaseDate); ok {
		a.decades[year/10*10]++
	}
	if o.AddedAt != "" {
		if m.FirstAddedAt == "" || o.AddedAt < m.FirstAddedAt {
			m.FirstAddedAt = o.AddedAt
		}
		if m.LastAddedAt == "" || o.AddedAt > m.LastAddedAt {
			m.LastAddedAt = o.AddedAt
		}
		a.timeline[calendarDay(o.AddedAt)]++
	}

	if key, ok := a.rule.Key(o); ok {
		if _, dup := a.seen[key]; dup {
			m.DuplicatesAcrossSources++
		} else {
			a.seen[key] = struct{}{}
		}
	}

	for _, c := range artistCredits(o) {
		a.artists.add(c.Key, c.ID, c.Name)
	}
	if o.AlbumID != "" || o.AlbumName != "" {
		name := o.AlbumName
		if name == "" {
			name = "Unknown Album"
		}
		key := entityKey(o.AlbumID, name)
		a.albumKeys[key] = struct{}{}
		a.albums.add(key, o.AlbumID, name)
	}
}

func (a *aggregator) finish() Metrics {
	m := a.m
	m.UniqueTracks = len(a.seen)
	m.UniqueArtistCount = len(a.artists.order)
	m.UniqueAlbumCount = len(a.albumKeys)
	m.TotalDurationMs = a.durationSum
	m.ExplicitRatio = ratio(int64(m.ExplicitCount), m.ExplicitKnown)
	m.AvgDurationMs = ratio(a.durationSum, m.DurationKnown)
	m.AvgPopularity = ratio(a.popularity, m.PopularityKnown)

	m.DecadeDistribution = make([]DecadeCount, 0, len(a.decades))
	for d, c := range a.decades {
		m.DecadeDistribution = append(m.DecadeDistribution, DecadeCount{Decade: d, Count: c})
	}
	sort.Slice(m.DecadeDistribution, func(i, j int) bool {
		return m.DecadeDistribution[i].Decade < m.DecadeDistribution[j].Decade
	})

	m.TopArtists = a.artists.top(topListSize)
	m.TopAlbums = a.albums.top(topListSize)

	m.AddedTimeline = make([]DateCount, 0, len(a.timeline))
	for d, c := range a.timeline {
		m.AddedTimeline = append(m.AddedTimeline, DateCount{Date: d, Count: c})
	}
	sort.Slice(m.AddedTimeline, func(i, j int) bool {
		return m.AddedTimeline[i].Date < m.AddedTimeline[j].Date
	})

	m.Vibe = inferVibe(m)
	m.VibeText = vibeText[m.Vibe]
	return m
}

// inferVibe applies the fixed ladder; the first matching rule wins.
func inferVibe(m Metrics) string {
	total := m.TotalTracks
	if total == 0 {
		total = 1
	}
	uniqueRatio := float64(m.UniqueTracks) / float64(total)
	topArtist := 0
	if len(m.TopArtists) > 0 {
		topArtist = m.TopArtists[0].Count
	}
	focus := float64(topArtist) / float64(total)

	switch {
	case uniqueRatio > 0.92:
		return VibeExplorer
	case focus > 0.08:
		return VibeDeepDive
	case m.TotalTracks > 5000:
		return VibeLargeLibrary
	default:
		return VibeBalanced
	}
}

var leadingYear = regexp.MustCompile(`^(\d{4})`)

// ParseYear reads the leading four-digit year of a free-form release date.
// Years outside 1000..3000 are rejected.
func ParseYear(releaseDate string) (int, bool) {
	m := leadingYear.FindStringSubmatch(releaseDate)
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil || year < 1000 || year > 3000 {
		return 0, false
	}
	return year, true
}

// calendarDay maps an ISO-8601 timestamp to its UTC date. Unparseable values
// are kept verbatim.
func calendarDay(iso string) string {
	if t, err := time.Parse(time.RFC3339, iso); err == nil {
		return t.UTC().Format(time.DateOnly)
	}
	if t, err := time.Parse(time.DateOnly, iso); err == nil {
		return t.Format(time.DateOnly)
	}
	return iso
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func ratio(sum int64, known int) *float64 {
	if known == 0 {
		return nil
	}
	r := float64(sum) / float64(known)
	return &r
}
