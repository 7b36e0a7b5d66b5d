package insights

import "github.com/ewilliams-labs/tastemap/internal/core/domain"

func boolPtr(v bool) *bool        { return &v }
func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func track(id, name, artistID, artistName string) *domain.TrackPayload {
	return &domain.TrackPayload{
		ID:   id,
		URI:  "spotify:track:" + id,
		Name: name,
		Artists: []domain.ArtistPayload{
			{ID: artistID, Name: artistName, URI: "spotify:artist:" + artistID},
		},
	}
}

func playlist(id, name string) domain.Playlist {
	return domain.Playlist{ID: id, Name: name, Owner: domain.Owner{ID: "owner"}}
}

func item(t *domain.TrackPayload) domain.PlaylistItem {
	return domain.PlaylistItem{AddedAt: "2024-01-01T10:00:00Z", Track: t}
}

// basicSource is two playlists where T1 appears in both.
func basicSource() Source {
	t1 := track("1", "Song One", "A", "Artist A")
	t1.Explicit = boolPtr(true)
	t1.DurationMs = intPtr(200000)
	t2 := track("2", "Song Two", "B", "Artist B")
	t2.Explicit = boolPtr(false)
	t2.DurationMs = intPtr(300000)
	t1dup := *t1

	return Source{
		Playlists: []domain.Playlist{playlist("P1", "First"), playlist("P2", "Second")},
		ItemsByPlaylist: map[string][]domain.PlaylistItem{
			"P1": {item(t1), item(t2)},
			"P2": {item(&t1dup)},
		},
	}
}

func occ(playlistID, trackID, name, artistID, artistName string) domain.Occurrence {
	return domain.Occurrence{
		SourceType:  domain.SourcePlaylist,
		PlaylistID:  playlistID,
		TrackID:     trackID,
		TrackURI:    "spotify:track:" + trackID,
		TrackName:   name,
		ArtistIDs:   []string{artistID},
		ArtistNames: []string{artistName},
		ArtistURIs:  []string{"spotify:artist:" + artistID},
	}
}
