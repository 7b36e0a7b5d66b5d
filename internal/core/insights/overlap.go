package insights

import "github.com/ewilliams-labs/tastemap/internal/core/domain"

// keySet is a set that remembers insertion order.
type keySet struct {
	order []string
	index map[string]struct{}
}

func newKeySet() *keySet {
	return &keySet{index: make(map[string]struct{})}
}

func (s *keySet) add(k string) {
	if _, ok := s.index[k]; ok {
		return
	}
	s.index[k] = struct{}{}
	s.order = append(s.order, k)
}

func (s *keySet) has(k string) bool {
	_, ok := s.index[k]
	return ok
}

func (s *keySet) size() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

func (s *keySet) slice() []string {
	return append([]string{}, s.order...)
}

// TrackMeta is the display data for one identity key.
type TrackMeta struct {
	Key         string `json:"key"`
	TrackName   string `json:"track_name"`
	ArtistNames string `json:"artist_names"`
	AlbumName   string `json:"album_name"`
}

// PlaylistKeySets maps each playlist id to the set of identity keys it holds.
// Occurrences without a dedupe key are left out.
type PlaylistKeySets struct {
	sets map[string]*keySet
	meta map[string]TrackMeta
}

// BuildPlaylistKeySets builds one identity set per playlist under rule.
func BuildPlaylistKeySets(occs []domain.Occurrence, rule domain.DedupeRule) *PlaylistKeySets {
	ks := &PlaylistKeySets{
		sets: make(map[string]*keySet),
		meta: make(map[string]TrackMeta),
	}
	for _, o := range occs {
		key, ok := rule.Key(o)
		if !ok {
			continue
		}
		s, ok := ks.sets[o.PlaylistID]
		if !ok {
			s = newKeySet()
			ks.sets[o.PlaylistID] = s
		}
		s.add(key)
		if _, ok := ks.meta[key]; !ok {
			ks.meta[key] = trackMeta(key, o)
		}
	}
	return ks
}

// Size returns how many identity keys a playlist holds.
func (ks *PlaylistKeySets) Size(playlistID string) int {
	return ks.sets[playlistID].size()
}

// Meta returns the display data of a key, if it was seen.
func (ks *PlaylistKeySets) Meta(key string) (TrackMeta, bool) {
	m, ok := ks.meta[key]
	return m, ok
}

// Overlap is a symmetric matrix of shared identity counts. The diagonal holds
// each playlist's own set size; Max covers off-diagonal cells only.
type Overlap struct {
	PlaylistIDs []string `json:"playlist_ids"`
	Matrix      [][]int  `json:"matrix"`
	Max         int      `json:"max"`
}

// ComputeOverlap fills the matrix for playlistIDs in the given order. Unknown
// ids behave as empty playlists.
func ComputeOverlap(playlistIDs []string, ks *PlaylistKeySets) Overlap {
	n := len(playlistIDs)
	matrix := make([][]int, n)
	for i := range matrix {
		matrix[i] = make([]int, n)
	}
	best := 0
	for i := 0; i < n; i++ {
		a := ks.sets[playlistIDs[i]]
		for j := i; j < n; j++ {
			var c int
			if i == j {
				c = a.size()
			} else {
				c = intersectionCount(a, ks.sets[playlistIDs[j]])
				best = max(best, c)
			}
			matrix[i][j] = c
			matrix[j][i] = c
		}
	}
	return Overlap{
		PlaylistIDs: append([]string{}, playlistIDs...),
		Matrix:      matrix,
		Max:         best,
	}
}

// SharedKeys lists the identity keys two playlists have in common, in the
// insertion order of the smaller set.
func (ks *PlaylistKeySets) SharedKeys(a, b string) []string {
	small, big := ks.sets[a], ks.sets[b]
	if big.size() < small.size() {
		small, big = big, small
	}
	out := []string{}
	if small == nil || big == nil {
		return out
	}
	for _, k := range small.order {
		if big.has(k) {
			out = append(out, k)
		}
	}
	return out
}

// SharedTracks is SharedKeys with display metadata attached.
func (ks *PlaylistKeySets) SharedTracks(a, b string) []TrackMeta {
	keys := ks.SharedKeys(a, b)
	out := make([]TrackMeta, 0, len(keys))
	for _, k := range keys {
		out = append(out, ks.meta[k])
	}
	return out
}

// intersectionCount walks the smaller set and probes the larger one.
func intersectionCount(a, b *keySet) int {
	if a == nil || b == nil {
		return 0
	}
	small, big := a, b
	if b.size() < a.size() {
		small, big = b, a
	}
	c := 0
	for _, k := range small.order {
		if big.has(k) {
			c++
		}
	}
	return c
}

func trackMeta(key string, o domain.Occurrence) TrackMeta {
	name := o.TrackName
	if name == "" {
		name = "Unknown"
	}
	return TrackMeta{
		Key:         key,
		TrackName:   name,
		ArtistNames: joinNames(o.ArtistNames),
		AlbumName:   o.AlbumName,
	}
}
