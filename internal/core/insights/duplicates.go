package insights

import (
	"sort"
	"strings"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

const (
	defaultMinPlaylists = 2
	defaultMinVariants  = 2
)

// DuplicateGroup is one track identity present in several playlists.
type DuplicateGroup struct {
	Key         string   `json:"key"`
	TrackName   string   `json:"track_name"`
	ArtistNames string   `json:"artist_names"`
	AlbumName   string   `json:"album_name"`
	Occurrences int      `json:"occurrences"`
	PlaylistIDs []string `json:"playlist_ids"`
}

// ExactOptions tunes FindExactDuplicates. Zero values select the defaults.
type ExactOptions struct {
	Rule         domain.DedupeRule
	MinPlaylists int
}

type exactGroup struct {
	DuplicateGroup
	playlists *keySet
}

// FindExactDuplicates groups occurrences by dedupe key and keeps groups that
// span at least MinPlaylists distinct playlists. Groups are ordered by
// playlist span, then occurrence count (both descending), then track name.
func FindExactDuplicates(occs []domain.Occurrence, opts ExactOptions) []DuplicateGroup {
	rule := opts.Rule
	if rule == "" {
		rule = domain.DedupeByTrackID
	}
	minPlaylists := opts.MinPlaylists
	if minPlaylists <= 0 {
		minPlaylists = defaultMinPlaylists
	}

	var order []string
	groups := make(map[string]*exactGroup)
	for _, o := range occs {
		key, ok := rule.Key(o)
		if !ok {
			continue
		}
		g, ok := groups[key]
		if !ok {
			meta := trackMeta(key, o)
			g = &exactGroup{
				DuplicateGroup: DuplicateGroup{
					Key:         key,
					TrackName:   meta.TrackName,
					ArtistNames: meta.ArtistNames,
					AlbumName:   meta.AlbumName,
				},
				playlists: newKeySet(),
			}
			groups[key] = g
			order = append(order, key)
		}
		g.Occurrences++
		g.playlists.add(o.PlaylistID)
	}

	out := []DuplicateGroup{}
	for _, key := range order {
		g := groups[key]
		if g.playlists.size() < minPlaylists {
			continue
		}
		dg := g.DuplicateGroup
		dg.PlaylistIDs = g.playlists.slice()
		out = append(out, dg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if len(a.PlaylistIDs) != len(b.PlaylistIDs) {
			return len(a.PlaylistIDs) > len(b.PlaylistIDs)
		}
		if a.Occurrences != b.Occurrences {
			return a.Occurrences > b.Occurrences
		}
		return a.TrackName < b.TrackName
	})
	return out
}

// Variant is one distinct track identity inside a near-duplicate group.
type Variant struct {
	VariantKey  string   `json:"variant_key"`
	TrackName   string   `json:"track_name"`
	AlbumName   string   `json:"album_name"`
	Occurrences int      `json:"occurrences"`
	PlaylistIDs []string `json:"playlist_ids"`
}

// NearDuplicateGroup collects tracks by the same primary artist whose titles
// canonicalize identically.
type NearDuplicateGroup struct {
	GroupKey      string    `json:"group_key"`
	Artist        string    `json:"artist"`
	Canonical     string    `json:"canonical"`
	PlaylistCount int       `json:"playlist_count"`
	VariantCount  int       `json:"variant_count"`
	Variants      []Variant `json:"variants"`
}

// NearOptions tunes FindNearDuplicates. Zero values select the defaults.
type NearOptions struct {
	MinVariants int
}

type nearGroup struct {
	key       string
	artist    string
	canonical string
	order     []string
	variants  map[string]*variantAcc
}

type variantAcc struct {
	Variant
	playlists *keySet
}

// FindNearDuplicates groups occurrences by (primary artist key, canonical
// title). A group is reported when it has at least MinVariants variants and
// its variants together span two or more playlists.
func FindNearDuplicates(occs []domain.Occurrence, opts NearOptions) []NearDuplicateGroup {
	minVariants := opts.MinVariants
	if minVariants <= 0 {
		minVariants = defaultMinVariants
	}

	var order []string
	groups := make(map[string]*nearGroup)
	for _, o := range occs {
		if o.TrackName == "" {
			continue
		}
		canon := CanonicalTitle(o.TrackName)
		if canon == "" {
			continue
		}
		aKey, artist := primaryArtist(o)
		gk := aKey + "::" + canon
		g, ok := groups[gk]
		if !ok {
			g = &nearGroup{key: gk, artist: artist, canonical: canon, variants: make(map[string]*variantAcc)}
			groups[gk] = g
			order = append(order, gk)
		}

		vk := variantKey(o)
		v, ok := g.variants[vk]
		if !ok {
			v = &variantAcc{
				Variant:   Variant{VariantKey: vk, TrackName: o.TrackName, AlbumName: o.AlbumName},
				playlists: newKeySet(),
			}
			g.variants[vk] = v
			g.order = append(g.order, vk)
		}
		v.Occurrences++
		v.playlists.add(o.PlaylistID)
	}

	out := []NearDuplicateGroup{}
	for _, gk := range order {
		g := groups[gk]
		if len(g.variants) < minVariants {
			continue
		}
		span := newKeySet()
		variants := make([]Variant, 0, len(g.order))
		for _, vk := range g.order {
			v := g.variants[vk]
			for _, pid := range v.playlists.order {
				span.add(pid)
			}
			vv := v.Variant
			vv.PlaylistIDs = v.playlists.slice()
			variants = append(variants, vv)
		}
		if span.size() < 2 {
			continue
		}
		sort.SliceStable(variants, func(i, j int) bool {
			a, b := variants[i], variants[j]
			if len(a.PlaylistIDs) != len(b.PlaylistIDs) {
				return len(a.PlaylistIDs) > len(b.PlaylistIDs)
			}
			return a.Occurrences > b.Occurrences
		})
		out = append(out, NearDuplicateGroup{
			GroupKey:      g.key,
			Artist:        g.artist,
			Canonical:     g.canonical,
			PlaylistCount: span.size(),
			VariantCount:  len(variants),
			Variants:      variants,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.VariantCount != b.VariantCount {
			return a.VariantCount > b.VariantCount
		}
		if a.PlaylistCount != b.PlaylistCount {
			return a.PlaylistCount > b.PlaylistCount
		}
		return a.Canonical < b.Canonical
	})
	return out
}

// primaryArtist keys a track by its first artist id, or first name when no
// id is known.
func primaryArtist(o domain.Occurrence) (key, name string) {
	name = "Unknown"
	if len(o.ArtistNames) > 0 && o.ArtistNames[0] != "" {
		name = o.ArtistNames[0]
	}
	id := ""
	if len(o.ArtistIDs) > 0 {
		id = o.ArtistIDs[0]
	}
	return ArtistKey(id, name), name
}

func variantKey(o domain.Occurrence) string {
	switch {
	case o.TrackID != "":
		return o.TrackID
	case o.TrackURI != "":
		return o.TrackURI
	default:
		return o.TrackName + "::" + o.AlbumName
	}
}

func joinNames(names []string) string {
	return strings.Join(names, "|")
}
