package domain

// Owner identifies the user that owns a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

// Label returns the display name, falling back to the owner id.
func (o Owner) Label() string {
	if o.DisplayName != "" {
		return o.DisplayName
	}
	return o.ID
}

// Playlist is the summary record the remote API returns for one playlist.
// Items are fetched separately and keyed by playlist id.
type Playlist struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Owner         Owner  `json:"owner"`
	Public        bool   `json:"public"`
	Collaborative bool   `json:"collaborative"`
	SnapshotID    string `json:"snapshot_id,omitempty"`
	// TracksTotal is the count the API advertises, which may differ from the
	// number of items actually fetched.
	TracksTotal *int `json:"tracks_total,omitempty"`
}

// Profile is the authenticated user's profile.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

// PlaylistItem is one raw entry of a playlist or of the liked collection.
// Track is nil when the underlying track is unavailable (removed, region
// locked, podcast episode stripped by the API).
type PlaylistItem struct {
	AddedAt string        `json:"added_at,omitempty"`
	AddedBy string        `json:"added_by,omitempty"`
	IsLocal bool          `json:"is_local"`
	Track   *TrackPayload `json:"track"`
}

// TrackPayload is the raw track object attached to an item. Scalar fields the
// API may omit are pointers.
type TrackPayload struct {
	ID         string          `json:"id,omitempty"`
	URI        string          `json:"uri,omitempty"`
	Name       string          `json:"name,omitempty"`
	Explicit   *bool           `json:"explicit,omitempty"`
	Popularity *int            `json:"popularity,omitempty"`
	DurationMs *int            `json:"duration_ms,omitempty"`
	PreviewURL string          `json:"preview_url,omitempty"`
	Album      AlbumPayload    `json:"album"`
	Artists    []ArtistPayload `json:"artists"`
}

type AlbumPayload struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	URI         string `json:"uri,omitempty"`
}

type ArtistPayload struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// Library is a fully paginated copy of a user's library plus optional
// enrichment data. Callers own it; analytics never mutate it.
type Library struct {
	RunID           string                    `json:"run_id"`
	FetchedAt       string                    `json:"fetched_at"`
	Profile         Profile                   `json:"profile"`
	Playlists       []Playlist                `json:"playlists"`
	ItemsByPlaylist map[string][]PlaylistItem `json:"items_by_playlist"`
	Liked           []PlaylistItem            `json:"liked"`
	AudioFeatures   map[string]AudioFeatures  `json:"audio_features,omitempty"`
	ArtistGenres    map[string][]string       `json:"artist_genres,omitempty"`
}
