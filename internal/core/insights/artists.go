package insights

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

const minArtistSearchScore = 0.72

// entityKey tags a key with its provenance. Name-keyed entries are never
// merged with id-keyed ones, even when they name the same real artist.
func entityKey(id, name string) string {
	if id != "" {
		return "id:" + id
	}
	return "name:" + name
}

// ArtistKey returns the index key of an artist: id:<id> when the id is known,
// name:<name> otherwise.
func ArtistKey(id, name string) string {
	if name == "" {
		name = "Unknown"
	}
	return entityKey(id, name)
}

type credit struct {
	Key  string
	ID   string
	Name string
}

// artistCredits zips the parallel id and name lists using the longer length
// so an artist with a name but no id is still counted.
func artistCredits(o domain.Occurrence) []credit {
	n := max(len(o.ArtistIDs), len(o.ArtistNames))
	out := make([]credit, 0, n)
	for i := 0; i < n; i++ {
		var id, name string
		if i < len(o.ArtistIDs) {
			id = o.ArtistIDs[i]
		}
		if i < len(o.ArtistNames) {
			name = o.ArtistNames[i]
		}
		if name == "" {
			name = "Unknown"
		}
		out = append(out, credit{Key: ArtistKey(id, name), ID: id, Name: name})
	}
	return out
}

// TrackKey identifies a track inside the artist index. The hash suffix keeps
// tracks without ids apart when their name/artists/album differ.
func TrackKey(o domain.Occurrence) string {
	base := o.TrackID
	if base == "" {
		base = o.TrackURI
	}
	if base == "" {
		name := o.TrackName
		if name == "" {
			name = "Unknown"
		}
		base = name + "::" + o.AlbumName
	}
	return base + "::" + HashString(o.TrackName+"|"+strings.Join(o.ArtistNames, "|")+"|"+o.AlbumName)
}

// PlaylistCount is how many times an artist appears in one playlist.
type PlaylistCount struct {
	PlaylistID   string `json:"playlist_id"`
	PlaylistName string `json:"playlist_name"`
	Count        int    `json:"count"`
}

// TrackCount is how many times one of an artist's tracks appears, overall and
// per playlist id.
type TrackCount struct {
	TrackKey    string         `json:"track_key"`
	TrackID     string         `json:"track_id,omitempty"`
	TrackURI    string         `json:"track_uri,omitempty"`
	TrackName   string         `json:"track_name"`
	AlbumName   string         `json:"album_name"`
	ArtistNames string         `json:"artist_names"`
	Count       int            `json:"count"`
	Playlists   map[string]int `json:"playlists"`
}

// ArtistDetail is the drill-down view of one artist.
type ArtistDetail struct {
	Key       string          `json:"key"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Count     int             `json:"count"`
	Playlists []PlaylistCount `json:"playlists"`
	Tracks    []TrackCount    `json:"tracks"`
}

// ArtistMatch is one artist search hit.
type ArtistMatch struct {
	Key   string  `json:"key"`
	ID    string  `json:"id,omitempty"`
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Score float64 `json:"score"`
}

type artistEntry struct {
	key           string
	id            string
	name          string
	count         int
	playlistOrder []string
	playlists     map[string]*PlaylistCount
	trackOrder    []string
	tracks        map[string]*TrackCount
}

// ArtistIndex is an inverted index from artist to the playlists and tracks it
// appears in. Build it with BuildArtistIndex; it is read-only afterwards.
type ArtistIndex struct {
	order []string
	byKey map[string]*artistEntry
}

// BuildArtistIndex indexes every artist credit of every occurrence.
func BuildArtistIndex(occs []domain.Occurrence) *ArtistIndex {
	ix := &ArtistIndex{byKey: make(map[string]*artistEntry)}
	for _, occ := range occs {
		tk := TrackKey(occ)
		for _, c := range artistCredits(occ) {
			e, ok := ix.byKey[c.Key]
			if !ok {
				e = &artistEntry{
					key:       c.Key,
					id:        c.ID,
					name:      c.Name,
					playlists: make(map[string]*PlaylistCount),
					tracks:    make(map[string]*TrackCount),
				}
				ix.byKey[c.Key] = e
				ix.order = append(ix.order, c.Key)
			}
			e.count++

			pc, ok := e.playlists[occ.PlaylistID]
			if !ok {
				pc = &PlaylistCount{PlaylistID: occ.PlaylistID, PlaylistName: occ.PlaylistName}
				e.playlists[occ.PlaylistID] = pc
				e.playlistOrder = append(e.playlistOrder, occ.PlaylistID)
			}
			pc.Count++

			tc, ok := e.tracks[tk]
			if !ok {
				name := occ.TrackName
				if name == "" {
					name = "Unknown"
				}
				tc = &TrackCount{
					TrackKey:    tk,
					TrackID:     occ.TrackID,
					TrackURI:    occ.TrackURI,
					TrackName:   name,
					AlbumName:   occ.AlbumName,
					ArtistNames: strings.Join(occ.ArtistNames, "|"),
					Playlists:   make(map[string]int),
				}
				e.tracks[tk] = tc
				e.trackOrder = append(e.trackOrder, tk)
			}
			tc.Count++
			tc.Playlists[occ.PlaylistID]++
		}
	}
	return ix
}

// Len returns the number of distinct artist keys.
func (ix *ArtistIndex) Len() int {
	return len(ix.order)
}

// Count returns the occurrence count of an artist key, or 0.
func (ix *ArtistIndex) Count(key string) int {
	if e, ok := ix.byKey[key]; ok {
		return e.count
	}
	return 0
}

// Detail returns the artist with its playlists and tracks sorted by
// descending count, ties in first-seen order.
func (ix *ArtistIndex) Detail(key string) (ArtistDetail, bool) {
	e, ok := ix.byKey[key]
	if !ok {
		return ArtistDetail{}, false
	}

	playlists := make([]PlaylistCount, 0, len(e.playlistOrder))
	for _, id := range e.playlistOrder {
		playlists = append(playlists, *e.playlists[id])
	}
	sort.SliceStable(playlists, func(i, j int) bool { return playlists[i].Count > playlists[j].Count })

	tracks := make([]TrackCount, 0, len(e.trackOrder))
	for _, tk := range e.trackOrder {
		tc := *e.tracks[tk]
		per := make(map[string]int, len(tc.Playlists))
		for k, v := range tc.Playlists {
			per[k] = v
		}
		tc.Playlists = per
		tracks = append(tracks, tc)
	}
	sort.SliceStable(tracks, func(i, j int) bool { return tracks[i].Count > tracks[j].Count })

	return ArtistDetail{
		Key:       e.key,
		ID:        e.id,
		Name:      e.name,
		Count:     e.count,
		Playlists: playlists,
		Tracks:    tracks,
	}, true
}

// TopArtistIDs returns up to n artist ids by descending count. Name-keyed
// artists have no id and are never candidates for enrichment.
func (ix *ArtistIndex) TopArtistIDs(n int) []string {
	entries := make([]*artistEntry, 0, len(ix.order))
	for _, k := range ix.order {
		if e := ix.byKey[k]; e.id != "" {
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].count > entries[j].count })
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids
}

// Search ranks artists whose name resembles query. A case-insensitive
// substring hit scores 1; anything else is scored with Jaro-Winkler and kept
// above a fixed threshold.
func (ix *ArtistIndex) Search(query string, limit int) []ArtistMatch {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []ArtistMatch{}
	}

	out := []ArtistMatch{}
	for _, k := range ix.order {
		e := ix.byKey[k]
		name := strings.ToLower(e.name)
		score := 1.0
		if !strings.Contains(name, q) {
			sim, err := edlib.StringsSimilarity(q, name, edlib.JaroWinkler)
			if err != nil || float64(sim) < minArtistSearchScore {
				continue
			}
			score = float64(sim)
		}
		out = append(out, ArtistMatch{Key: e.key, ID: e.id, Name: e.name, Count: e.count, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Count > out[j].Count
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
