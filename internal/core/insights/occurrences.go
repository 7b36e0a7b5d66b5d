// Package insights derives analytical artifacts from a user's library:
// occurrences, aggregate metrics, the artist index, duplicate and overlap
// analysis, the Music DNA fingerprint and per-playlist personas.
//
// Everything here is a pure function of its inputs. Nothing performs I/O,
// reads the clock or keeps state between calls.
package insights

import "github.com/ewilliams-labs/tastemap/internal/core/domain"

// Source is the raw input every builder in this package starts from.
type Source struct {
	Playlists       []domain.Playlist
	ItemsByPlaylist map[string][]domain.PlaylistItem
	Liked           []domain.PlaylistItem
	IncludeLiked    bool
}

// SourceFromLibrary adapts a stored library to a Source.
func SourceFromLibrary(lib domain.Library, includeLiked bool) Source {
	return Source{
		Playlists:       lib.Playlists,
		ItemsByPlaylist: lib.ItemsByPlaylist,
		Liked:           lib.Liked,
		IncludeLiked:    includeLiked,
	}
}

// BuildOccurrences flattens playlists, in input order, and then the liked
// collection when requested. Items without a track payload are skipped.
func BuildOccurrences(src Source) []domain.Occurrence {
	out := make([]domain.Occurrence, 0, countItems(src))
	for _, pl := range src.Playlists {
		for _, it := range src.ItemsByPlaylist[pl.ID] {
			if occ, ok := occurrenceFromPlaylistItem(pl, it); ok {
				out = append(out, occ)
			}
		}
	}
	if src.IncludeLiked {
		for _, it := range src.Liked {
			if occ, ok := occurrenceFromLikedItem(it); ok {
				out = append(out, occ)
			}
		}
	}
	return out
}

// CountUnavailable returns how many items BuildOccurrences would skip.
func CountUnavailable(src Source) int {
	n := 0
	for _, pl := range src.Playlists {
		for _, it := range src.ItemsByPlaylist[pl.ID] {
			if it.Track == nil {
				n++
			}
		}
	}
	if src.IncludeLiked {
		for _, it := range src.Liked {
			if it.Track == nil {
				n++
			}
		}
	}
	return n
}

// FilterByPlaylist returns the occurrences belonging to one playlist id.
func FilterByPlaylist(occs []domain.Occurrence, playlistID string) []domain.Occurrence {
	var out []domain.Occurrence
	for _, o := range occs {
		if o.PlaylistID == playlistID {
			out = append(out, o)
		}
	}
	return out
}

func occurrenceFromPlaylistItem(pl domain.Playlist, it domain.PlaylistItem) (domain.Occurrence, bool) {
	if it.Track == nil {
		return domain.Occurrence{}, false
	}
	occ := projectTrack(*it.Track)
	occ.SourceType = domain.SourcePlaylist
	occ.PlaylistID = pl.ID
	occ.PlaylistName = pl.Name
	occ.PlaylistOwner = pl.Owner.Label()
	occ.PlaylistPublic = pl.Public
	occ.PlaylistCollaborative = pl.Collaborative
	occ.PlaylistSnapshotID = pl.SnapshotID
	occ.AddedAt = it.AddedAt
	occ.AddedBy = it.AddedBy
	occ.IsLocal = it.IsLocal
	return occ, true
}

func occurrenceFromLikedItem(it domain.PlaylistItem) (domain.Occurrence, bool) {
	if it.Track == nil {
		return domain.Occurrence{}, false
	}
	occ := projectTrack(*it.Track)
	occ.SourceType = domain.SourceLiked
	occ.PlaylistID = domain.LikedPlaylistID
	occ.PlaylistName = domain.LikedPlaylistName
	occ.AddedAt = it.AddedAt
	return occ, true
}

func projectTrack(t domain.TrackPayload) domain.Occurrence {
	occ := domain.Occurrence{
		TrackID:          t.ID,
		TrackURI:         t.URI,
		TrackName:        t.Name,
		PreviewURL:       t.PreviewURL,
		Explicit:         copyBool(t.Explicit),
		Popularity:       copyInt(t.Popularity),
		DurationMs:       copyInt(t.DurationMs),
		AlbumID:          t.Album.ID,
		AlbumName:        t.Album.Name,
		AlbumReleaseDate: t.Album.ReleaseDate,
		AlbumURI:         t.Album.URI,
		ArtistIDs:        []string{},
		ArtistNames:      []string{},
		ArtistURIs:       []string{},
	}
	for _, a := range t.Artists {
		if a.ID != "" {
			occ.ArtistIDs = append(occ.ArtistIDs, a.ID)
		}
		if a.Name != "" {
			occ.ArtistNames = append(occ.ArtistNames, a.Name)
		}
		if a.URI != "" {
			occ.ArtistURIs = append(occ.ArtistURIs, a.URI)
		}
	}
	return occ
}

func countItems(src Source) int {
	n := 0
	for _, pl := range src.Playlists {
		n += len(src.ItemsByPlaylist[pl.ID])
	}
	if src.IncludeLiked {
		n += len(src.Liked)
	}
	return n
}

func copyBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	b := *v
	return &b
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	i := *v
	return &i
}
