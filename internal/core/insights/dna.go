package insights

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

// DNAVersion is written to every fingerprint.
const DNAVersion = 1

const (
	dnaDecades   = 10
	dnaGenres    = 8
	topGenreSize = 12
)

// GenreWeight is one ranked genre. Weight sums the occurrence counts of the
// artists carrying the genre.
type GenreWeight struct {
	Genre  string `json:"genre"`
	Weight int    `json:"weight"`
}

// AudioSummary holds unique-track audio averages. An average over nothing is
// nil.
type AudioSummary struct {
	TracksWithFeatures int      `json:"tracks_with_features"`
	AvgTempo           *float64 `json:"avg_tempo"`
	AvgEnergy          *float64 `json:"avg_energy"`
	AvgValence         *float64 `json:"avg_valence"`
}

// DNA is the compact, shareable fingerprint of a library.
type DNA struct {
	V             int           `json:"v"`
	GeneratedAt   string        `json:"generated_at"`
	TotalTracks   int           `json:"total_tracks"`
	UniqueTracks  int           `json:"unique_tracks"`
	ExplicitRatio *float64      `json:"explicit_ratio"`
	Decades       []DecadeCount `json:"decades"`
	TopGenres     []GenreWeight `json:"top_genres"`
	Audio         AudioSummary  `json:"audio"`
	Vibe          string        `json:"vibe"`
}

// DNAInput carries a metrics snapshot and the occurrences it was built from.
// AudioFeatures and TopGenres are optional.
type DNAInput struct {
	Metrics       Metrics
	Occurrences   []domain.Occurrence
	AudioFeatures map[string]domain.AudioFeatures
	TopGenres     []GenreWeight
	Now           time.Time
}

// ComputeDNA derives the fingerprint. Audio averages are taken over unique
// track ids, so a track repeated across playlists counts once.
func ComputeDNA(in DNAInput) DNA {
	decades := in.Metrics.DecadeDistribution
	if len(decades) > dnaDecades {
		decades = decades[len(decades)-dnaDecades:]
	}
	genres := in.TopGenres
	if len(genres) > dnaGenres {
		genres = genres[:dnaGenres]
	}

	var tempos, energies, valences []float64
	if in.AudioFeatures != nil {
		for _, id := range uniqueTrackIDs(in.Occurrences) {
			f, ok := in.AudioFeatures[id]
			if !ok {
				continue
			}
			if f.Tempo != nil {
				tempos = append(tempos, *f.Tempo)
			}
			if f.Energy != nil {
				energies = append(energies, *f.Energy)
			}
			if f.Valence != nil {
				valences = append(valences, *f.Valence)
			}
		}
	}

	return DNA{
		V:             DNAVersion,
		GeneratedAt:   formatTimestamp(in.Now),
		TotalTracks:   in.Metrics.TotalTracks,
		UniqueTracks:  in.Metrics.UniqueTracks,
		ExplicitRatio: copyFloat(in.Metrics.ExplicitRatio),
		Decades:       append([]DecadeCount{}, decades...),
		TopGenres:     append([]GenreWeight{}, genres...),
		Audio: AudioSummary{
			TracksWithFeatures: len(tempos),
			AvgTempo:           mean(tempos),
			AvgEnergy:          mean(energies),
			AvgValence:         mean(valences),
		},
		Vibe: in.Metrics.Vibe,
	}
}

// TopGenresFromArtists weights every artist's genres by that artist's
// occurrence count, or 1 when the artist is not in the index.
func TopGenresFromArtists(ix *ArtistIndex, artistGenres map[string][]string) []GenreWeight {
	ids := make([]string, 0, len(artistGenres))
	seen := make(map[string]bool, len(artistGenres))
	weight := make(map[string]int)
	if ix != nil {
		for _, k := range ix.order {
			e := ix.byKey[k]
			if e.id == "" {
				continue
			}
			weight[e.id] = e.count
			if _, ok := artistGenres[e.id]; ok && !seen[e.id] {
				seen[e.id] = true
				ids = append(ids, e.id)
			}
		}
	}
	var rest []string
	for id := range artistGenres {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	ids = append(ids, rest...)

	var order []string
	counts := make(map[string]int)
	for _, id := range ids {
		w := weight[id]
		if w == 0 {
			w = 1
		}
		for _, g := range artistGenres[id] {
			if _, ok := counts[g]; !ok {
				order = append(order, g)
			}
			counts[g] += w
		}
	}

	out := make([]GenreWeight, 0, len(order))
	for _, g := range order {
		out = append(out, GenreWeight{Genre: g, Weight: counts[g]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	if len(out) > topGenreSize {
		out = out[:topGenreSize]
	}
	return out
}

// EncodeDNA serializes the fingerprint to unpadded URL-safe base64 JSON.
func EncodeDNA(dna DNA) (string, error) {
	raw, err := marshalDNA(dna)
	if err != nil {
		return "", fmt.Errorf("insights: encode dna: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeDNA reverses EncodeDNA. Any malformed input yields
// domain.ErrMalformedToken.
func DecodeDNA(token string) (DNA, error) {
	token = strings.TrimRight(strings.TrimSpace(token), "=")
	if token == "" {
		return DNA{}, fmt.Errorf("insights: empty token: %w", domain.ErrMalformedToken)
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return DNA{}, fmt.Errorf("insights: decode token: %w", domain.ErrMalformedToken)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return DNA{}, fmt.Errorf("insights: token is not an object: %w", domain.ErrMalformedToken)
	}
	var dna DNA
	if err := json.Unmarshal(raw, &dna); err != nil {
		return DNA{}, fmt.Errorf("insights: parse token: %w", domain.ErrMalformedToken)
	}
	return dna, nil
}

// DNAFromFragment extracts and decodes the dna parameter of a URL fragment
// such as "#dna=<token>". It returns nil when there is nothing usable.
func DNAFromFragment(fragment string) *DNA {
	fragment = strings.TrimPrefix(fragment, "#")
	if fragment == "" {
		return nil
	}
	params, err := url.ParseQuery(fragment)
	if err != nil {
		return nil
	}
	token := params.Get("dna")
	if token == "" {
		return nil
	}
	dna, err := DecodeDNA(token)
	if err != nil {
		return nil
	}
	return &dna
}

// ShareURL appends the encoded fingerprint to base as a fragment.
func ShareURL(base string, dna DNA) (string, error) {
	token, err := EncodeDNA(dna)
	if err != nil {
		return "", err
	}
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	return base + "#dna=" + token, nil
}

func uniqueTrackIDs(occs []domain.Occurrence) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, o := range occs {
		if o.TrackID == "" {
			continue
		}
		if _, ok := seen[o.TrackID]; ok {
			continue
		}
		seen[o.TrackID] = struct{}{}
		ids = append(ids, o.TrackID)
	}
	return ids
}

func mean(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	m := sum / float64(len(xs))
	return &m
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}
