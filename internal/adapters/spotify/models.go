package spotify

// page is the paging envelope shared by every list endpoint.
type page[T any] struct {
	Items []T    `json:"items"`
	Next  string `json:"next"`
	Total int    `json:"total"`
}

type spotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type spotifyPlaylist struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Owner         spotifyUser `json:"owner"`
	Public        *bool       `json:"public"`
	Collaborative bool        `json:"collaborative"`
	SnapshotID    string      `json:"snapshot_id"`
	Tracks        *struct {
		Total *int `json:"total"`
	} `json:"tracks"`
}

// spotifyItem is a playlist entry or a saved track. Track is null for
// removed or unavailable content.
type spotifyItem struct {
	AddedAt string `json:"added_at"`
	AddedBy *struct {
		ID string `json:"id"`
	} `json:"added_by"`
	IsLocal bool          `json:"is_local"`
	Track   *spotifyTrack `json:"track"`
}

type spotifyTrack struct {
	ID         string          `json:"id"`
	URI        string          `json:"uri"`
	Name       string          `json:"name"`
	Explicit   *bool           `json:"explicit"`
	Popularity *int            `json:"popularity"`
	DurationMs *int            `json:"duration_ms"`
	PreviewURL *string         `json:"preview_url"`
	Album      spotifyAlbum    `json:"album"`
	Artists    []spotifyArtist `json:"artists"`
}

type spotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	URI         string `json:"uri"`
}

type spotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	URI    string   `json:"uri"`
	Genres []string `json:"genres,omitempty"`
}

// spotifyAudioFeatures keeps every field nullable; the API omits or nulls
// values it cannot compute.
type spotifyAudioFeatures struct {
	ID               string   `json:"id"`
	Danceability     *float64 `json:"danceability"`
	Energy           *float64 `json:"energy"`
	Valence          *float64 `json:"valence"`
	Tempo            *float64 `json:"tempo"`
	Loudness         *float64 `json:"loudness"`
	Speechiness      *float64 `json:"speechiness"`
	Acousticness     *float64 `json:"acousticness"`
	Instrumentalness *float64 `json:"instrumentalness"`
	Liveness         *float64 `json:"liveness"`
	TimeSignature    *int     `json:"time_signature"`
	Key              *int     `json:"key"`
	Mode             *int     `json:"mode"`
}
