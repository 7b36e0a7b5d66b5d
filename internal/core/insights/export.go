package insights

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

// ExportRow is one flattened occurrence. The af_* fields carry the track's
// audio features and stay nil when none are stored.
type ExportRow struct {
	Source                string `json:"source"`
	PlaylistID            string `json:"playlist_id"`
	PlaylistName          string `json:"playlist_name"`
	PlaylistOwner         string `json:"playlist_owner"`
	PlaylistPublic        bool   `json:"playlist_public"`
	PlaylistCollaborative bool   `json:"playlist_collaborative"`
	PlaylistSnapshotID    string `json:"playlist_snapshot_id"`
	AddedAt               string `json:"added_at"`
	AddedBy               string `json:"added_by"`
	IsLocal               bool   `json:"is_local"`
	TrackID               string `json:"track_id"`
	TrackURI              string `json:"track_uri"`
	TrackName             string `json:"track_name"`
	Explicit              *bool  `json:"explicit"`
	Popularity            *int   `json:"popularity"`
	DurationMs            *int   `json:"duration_ms"`
	AlbumID               string `json:"album_id"`
	AlbumName             string `json:"album_name"`
	AlbumReleaseDate      string `json:"album_release_date"`
	AlbumURI              string `json:"album_uri"`
	ArtistIDs             string `json:"artist_ids"`
	ArtistNames           string `json:"artist_names"`
	ArtistURIs            string `json:"artist_uris"`

	AFDanceability     *float64 `json:"af_danceability"`
	AFEnergy           *float64 `json:"af_energy"`
	AFValence          *float64 `json:"af_valence"`
	AFTempo            *float64 `json:"af_tempo"`
	AFLoudness         *float64 `json:"af_loudness"`
	AFSpeechiness      *float64 `json:"af_speechiness"`
	AFAcousticness     *float64 `json:"af_acousticness"`
	AFInstrumentalness *float64 `json:"af_instrumentalness"`
	AFLiveness         *float64 `json:"af_liveness"`
	AFTimeSignature    *int     `json:"af_time_signature"`
	AFKey              *int     `json:"af_key"`
	AFMode             *int     `json:"af_mode"`
}

// ExportHeader is the CSV column order written by WriteCSV.
var ExportHeader = []string{
	"source", "playlist_id", "playlist_name", "playlist_owner", "playlist_public",
	"playlist_collaborative", "playlist_snapshot_id", "added_at", "added_by", "is_local",
	"track_id", "track_uri", "track_name", "explicit", "popularity", "duration_ms",
	"album_id", "album_name", "album_release_date", "album_uri",
	"artist_ids", "artist_names", "artist_uris",
	"af_danceability", "af_energy", "af_valence", "af_tempo", "af_loudness",
	"af_speechiness", "af_acousticness", "af_instrumentalness", "af_liveness",
	"af_time_signature", "af_key", "af_mode",
}

// ExportRows flattens occurrences for export. Features are attached by track
// id when present in features.
func ExportRows(occs []domain.Occurrence, features map[string]domain.AudioFeatures) []ExportRow {
	rows := make([]ExportRow, 0, len(occs))
	for _, o := range occs {
		row := ExportRow{
			Source:                string(o.SourceType),
			PlaylistID:            o.PlaylistID,
			PlaylistName:          o.PlaylistName,
			PlaylistOwner:         o.PlaylistOwner,
			PlaylistPublic:        o.PlaylistPublic,
			PlaylistCollaborative: o.PlaylistCollaborative,
			PlaylistSnapshotID:    o.PlaylistSnapshotID,
			AddedAt:               o.AddedAt,
			AddedBy:               o.AddedBy,
			IsLocal:               o.IsLocal,
			TrackID:               o.TrackID,
			TrackURI:              o.TrackURI,
			TrackName:             o.TrackName,
			Explicit:              copyBool(o.Explicit),
			Popularity:            copyInt(o.Popularity),
			DurationMs:            copyInt(o.DurationMs),
			AlbumID:               o.AlbumID,
			AlbumName:             o.AlbumName,
			AlbumReleaseDate:      o.AlbumReleaseDate,
			AlbumURI:              o.AlbumURI,
			ArtistIDs:             joinNames(o.ArtistIDs),
			ArtistNames:           joinNames(o.ArtistNames),
			ArtistURIs:            joinNames(o.ArtistURIs),
		}
		if o.TrackID != "" {
			if f, ok := features[o.TrackID]; ok {
				row.setFeatures(f)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func (r *ExportRow) setFeatures(f domain.AudioFeatures) {
	r.AFDanceability = copyFloat(f.Danceability)
	r.AFEnergy = copyFloat(f.Energy)
	r.AFValence = copyFloat(f.Valence)
	r.AFTempo = copyFloat(f.Tempo)
	r.AFLoudness = copyFloat(f.Loudness)
	r.AFSpeechiness = copyFloat(f.Speechiness)
	r.AFAcousticness = copyFloat(f.Acousticness)
	r.AFInstrumentalness = copyFloat(f.Instrumentalness)
	r.AFLiveness = copyFloat(f.Liveness)
	r.AFTimeSignature = copyInt(f.TimeSignature)
	r.AFKey = copyInt(f.Key)
	r.AFMode = copyInt(f.Mode)
}

// WriteCSV writes rows with ExportHeader. Unknown values become empty cells.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("insights: write csv header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return fmt.Errorf("insights: write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("insights: flush csv: %w", err)
	}
	return nil
}

func (r ExportRow) record() []string {
	return []string{
		r.Source, r.PlaylistID, r.PlaylistName, r.PlaylistOwner,
		strconv.FormatBool(r.PlaylistPublic), strconv.FormatBool(r.PlaylistCollaborative),
		r.PlaylistSnapshotID, r.AddedAt, r.AddedBy, strconv.FormatBool(r.IsLocal),
		r.TrackID, r.TrackURI, r.TrackName,
		boolCell(r.Explicit), intCell(r.Popularity), intCell(r.DurationMs),
		r.AlbumID, r.AlbumName, r.AlbumReleaseDate, r.AlbumURI,
		r.ArtistIDs, r.ArtistNames, r.ArtistURIs,
		floatCell(r.AFDanceability), floatCell(r.AFEnergy), floatCell(r.AFValence), floatCell(r.AFTempo),
		floatCell(r.AFLoudness), floatCell(r.AFSpeechiness), floatCell(r.AFAcousticness),
		floatCell(r.AFInstrumentalness), floatCell(r.AFLiveness),
		intCell(r.AFTimeSignature), intCell(r.AFKey), intCell(r.AFMode),
	}
}

func boolCell(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
