package domain

// AudioFeatures holds the per-track analysis values the remote API exposes.
// Every field is optional; a nil field means "not known", never zero.
type AudioFeatures struct {
	Danceability     *float64 `json:"danceability,omitempty"`
	Energy           *float64 `json:"energy,omitempty"`
	Valence          *float64 `json:"valence,omitempty"`
	Tempo            *float64 `json:"tempo,omitempty"`
	Loudness         *float64 `json:"loudness,omitempty"`
	Speechiness      *float64 `json:"speechiness,omitempty"`
	Acousticness     *float64 `json:"acousticness,omitempty"`
	Instrumentalness *float64 `json:"instrumentalness,omitempty"`
	Liveness         *float64 `json:"liveness,omitempty"`
	TimeSignature    *int     `json:"time_signature,omitempty"`
	Key              *int     `json:"key,omitempty"`
	Mode             *int     `json:"mode,omitempty"`
}

// Empty reports whether no feature is known.
func (f AudioFeatures) Empty() bool {
	return f.Danceability == nil && f.Energy == nil && f.Valence == nil &&
		f.Tempo == nil && f.Loudness == nil && f.Speechiness == nil &&
		f.Acousticness == nil && f.Instrumentalness == nil && f.Liveness == nil &&
		f.TimeSignature == nil && f.Key == nil && f.Mode == nil
}

// SourceType tells whether an occurrence came from a playlist or from the
// liked collection.
type SourceType string

const (
	SourcePlaylist SourceType = "playlist"
	SourceLiked    SourceType = "liked"
)

// The liked collection is treated as a pseudo-playlist with a fixed identity.
const (
	LikedPlaylistID   = "liked_songs"
	LikedPlaylistName = "Liked Songs"
)

// Occurrence is one appearance of a track in one source. String fields are
// empty when the upstream record lacks them; Explicit, Popularity and
// DurationMs are nil when the upstream value was not a usable value.
type Occurrence struct {
	SourceType            SourceType `json:"source_type"`
	PlaylistID            string     `json:"playlist_id"`
	PlaylistName          string     `json:"playlist_name"`
	PlaylistOwner         string     `json:"playlist_owner"`
	PlaylistPublic        bool       `json:"playlist_public"`
	PlaylistCollaborative bool       `json:"playlist_collaborative"`
	PlaylistSnapshotID    string     `json:"playlist_snapshot_id"`
	AddedAt               string     `json:"added_at"`
	AddedBy               string     `json:"added_by"`
	IsLocal               bool       `json:"is_local"`
	TrackID               string     `json:"track_id"`
	TrackURI              string     `json:"track_uri"`
	TrackName             string     `json:"track_name"`
	PreviewURL            string     `json:"preview_url,omitempty"`
	Explicit              *bool      `json:"explicit"`
	Popularity            *int       `json:"popularity"`
	DurationMs            *int       `json:"duration_ms"`
	AlbumID               string     `json:"album_id"`
	AlbumName             string     `json:"album_name"`
	AlbumReleaseDate      string     `json:"album_release_date"`
	AlbumURI              string     `json:"album_uri"`
	ArtistIDs             []string   `json:"artist_ids"`
	ArtistNames           []string   `json:"artist_names"`
	ArtistURIs            []string   `json:"artist_uris"`
}
