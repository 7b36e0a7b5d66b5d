package spotify

import "github.com/ewilliams-labs/tastemap/internal/core/domain"

// mapPlaylistToDomain converts a raw Spotify playlist. A null public flag
// is treated as private.
func mapPlaylistToDomain(sp spotifyPlaylist) domain.Playlist {
	pl := domain.Playlist{
		ID:            sp.ID,
		Name:          sp.Name,
		Owner:         domain.Owner{ID: sp.Owner.ID, DisplayName: sp.Owner.DisplayName},
		Public:        sp.Public != nil && *sp.Public,
		Collaborative: sp.Collaborative,
		SnapshotID:    sp.SnapshotID,
	}
	if sp.Tracks != nil {
		pl.TracksTotal = sp.Tracks.Total
	}
	return pl
}

// mapItemToDomain keeps items with a null track so callers can count them
// as unavailable.
func mapItemToDomain(it spotifyItem) domain.PlaylistItem {
	out := domain.PlaylistItem{
		AddedAt: it.AddedAt,
		IsLocal: it.IsLocal,
	}
	if it.AddedBy != nil {
		out.AddedBy = it.AddedBy.ID
	}
	if it.Track != nil {
		tr := mapTrackToDomain(*it.Track)
		out.Track = &tr
	}
	return out
}

func mapTrackToDomain(st spotifyTrack) domain.TrackPayload {
	tr := domain.TrackPayload{
		ID:         st.ID,
		URI:        st.URI,
		Name:       st.Name,
		Explicit:   st.Explicit,
		Popularity: st.Popularity,
		DurationMs: st.DurationMs,
		Album: domain.AlbumPayload{
			ID:          st.Album.ID,
			Name:        st.Album.Name,
			ReleaseDate: st.Album.ReleaseDate,
			URI:         st.Album.URI,
		},
		Artists: make([]domain.ArtistPayload, 0, len(st.Artists)),
	}
	if st.PreviewURL != nil {
		tr.PreviewURL = *st.PreviewURL
	}
	for _, a := range st.Artists {
		tr.Artists = append(tr.Artists, domain.ArtistPayload{ID: a.ID, Name: a.Name, URI: a.URI})
	}
	return tr
}

func mapFeaturesToDomain(f spotifyAudioFeatures) domain.AudioFeatures {
	return domain.AudioFeatures{
		Danceability:     f.Danceability,
		Energy:           f.Energy,
		Valence:          f.Valence,
		Tempo:            f.Tempo,
		Loudness:         f.Loudness,
		Speechiness:      f.Speechiness,
		Acousticness:     f.Acousticness,
		Instrumentalness: f.Instrumentalness,
		Liveness:         f.Liveness,
		TimeSignature:    f.TimeSignature,
		Key:              f.Key,
		Mode:             f.Mode,
	}
}
