// Package sqlite provides a SQLite-backed implementation of the library repository port.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/ports"
)

// Energy provenance values stored next to audio features.
const (
	energySourceAPI     = "api"
	energySourcePreview = "preview"
)

// Adapter implements the repository port for SQLite
type Adapter struct {
	db *sql.DB
}

var _ ports.LibraryRepository = (*Adapter)(nil)

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("sqlite adapter: open: %w", err)
	}
	// Each connection to :memory: is a separate database.
	if storagePath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("sqlite adapter: ping: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("sqlite adapter: migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

// SaveLibrary replaces the stored snapshot. Audio features and artist genres
// survive a re-sync since they are keyed by stable Spotify ids.
func (a *Adapter) SaveLibrary(ctx context.Context, lib domain.Library) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite adapter: begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"sync_runs", "playlists", "playlist_items"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("sqlite adapter: clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sync_runs (run_id, fetched_at, profile_id, profile_name, has_liked)
		VALUES (?, ?, ?, ?, ?)
	`, lib.RunID, lib.FetchedAt, lib.Profile.ID, lib.Profile.DisplayName, lib.Liked != nil); err != nil {
		return fmt.Errorf("sqlite adapter: save run: %w", err)
	}

	stmtPlaylist, err := tx.PrepareContext(ctx, `
		INSERT INTO playlists (position, id, name, owner_id, owner_name, public, collaborative, snapshot_id, tracks_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite adapter: prepare playlists: %w", err)
	}
	defer stmtPlaylist.Close()

	stmtItem, err := tx.PrepareContext(ctx, `
		INSERT INTO playlist_items (source, playlist_id, position, added_at, added_by, is_local, track_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite adapter: prepare items: %w", err)
	}
	defer stmtItem.Close()

	for pos, p := range lib.Playlists {
		var total sql.NullInt64
		if p.TracksTotal != nil {
			total = sql.NullInt64{Int64: int64(*p.TracksTotal), Valid: true}
		}
		if _, err := stmtPlaylist.ExecContext(ctx, pos, p.ID, p.Name, p.Owner.ID, p.Owner.DisplayName,
			p.Public, p.Collaborative, p.SnapshotID, total); err != nil {
			return fmt.Errorf("sqlite adapter: save playlist %s: %w", p.ID, err)
		}
		for i, it := range lib.ItemsByPlaylist[p.ID] {
			if err := insertItem(ctx, stmtItem, domain.SourcePlaylist, p.ID, i, it); err != nil {
				return err
			}
		}
	}
	for i, it := range lib.Liked {
		if err := insertItem(ctx, stmtItem, domain.SourceLiked, domain.LikedPlaylistID, i, it); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite adapter: commit: %w", err)
	}
	return nil
}

func insertItem(ctx context.Context, stmt *sql.Stmt, source domain.SourceType, playlistID string, pos int, it domain.PlaylistItem) error {
	var trackJSON sql.NullString
	if it.Track != nil {
		raw, err := json.Marshal(it.Track)
		if err != nil {
			return fmt.Errorf("sqlite adapter: encode track: %w", err)
		}
		trackJSON = sql.NullString{String: string(raw), Valid: true}
	}
	if _, err := stmt.ExecContext(ctx, string(source), playlistID, pos, it.AddedAt, it.AddedBy, it.IsLocal, trackJSON); err != nil {
		return fmt.Errorf("sqlite adapter: save item %s/%d: %w", playlistID, pos, err)
	}
	return nil
}

// LoadLibrary returns the stored snapshot with enrichment attached.
func (a *Adapter) LoadLibrary(ctx context.Context) (domain.Library, error) {
	var lib domain.Library
	var hasLiked bool
	err := a.db.QueryRowContext(ctx, `
		SELECT run_id, fetched_at, profile_id, profile_name, has_liked FROM sync_runs LIMIT 1
	`).Scan(&lib.RunID, &lib.FetchedAt, &lib.Profile.ID, &lib.Profile.DisplayName, &hasLiked)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Library{}, domain.ErrNotSynced
	}
	if err != nil {
		return domain.Library{}, fmt.Errorf("sqlite adapter: load run: %w", err)
	}

	if lib.Playlists, err = a.loadPlaylists(ctx); err != nil {
		return domain.Library{}, err
	}
	lib.ItemsByPlaylist = make(map[string][]domain.PlaylistItem, len(lib.Playlists))
	for _, p := range lib.Playlists {
		lib.ItemsByPlaylist[p.ID] = []domain.PlaylistItem{}
	}
	if hasLiked {
		lib.Liked = []domain.PlaylistItem{}
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT source, playlist_id, added_at, added_by, is_local, track_json
		FROM playlist_items
		ORDER BY source, playlist_id, position
	`)
	if err != nil {
		return domain.Library{}, fmt.Errorf("sqlite adapter: load items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source, playlistID string
		var it domain.PlaylistItem
		var trackJSON sql.NullString
		if err := rows.Scan(&source, &playlistID, &it.AddedAt, &it.AddedBy, &it.IsLocal, &trackJSON); err != nil {
			return domain.Library{}, fmt.Errorf("sqlite adapter: scan item: %w", err)
		}
		if trackJSON.Valid {
			var tr domain.TrackPayload
			if err := json.Unmarshal([]byte(trackJSON.String), &tr); err != nil {
				return domain.Library{}, fmt.Errorf("sqlite adapter: decode track: %w", err)
			}
			it.Track = &tr
		}
		if domain.SourceType(source) == domain.SourceLiked {
			lib.Liked = append(lib.Liked, it)
			continue
		}
		lib.ItemsByPlaylist[playlistID] = append(lib.ItemsByPlaylist[playlistID], it)
	}
	if err := rows.Err(); err != nil {
		return domain.Library{}, fmt.Errorf("sqlite adapter: iterate items: %w", err)
	}

	if lib.AudioFeatures, err = a.loadAudioFeatures(ctx); err != nil {
		return domain.Library{}, err
	}
	if lib.ArtistGenres, err = a.loadArtistGenres(ctx); err != nil {
		return domain.Library{}, err
	}
	return lib, nil
}

func (a *Adapter) loadPlaylists(ctx context.Context) ([]domain.Playlist, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, name, owner_id, owner_name, public, collaborative, snapshot_id, tracks_total
		FROM playlists ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite adapter: load playlists: %w", err)
	}
	defer rows.Close()

	playlists := []domain.Playlist{}
	for rows.Next() {
		var p domain.Playlist
		var total sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.Owner.ID, &p.Owner.DisplayName,
			&p.Public, &p.Collaborative, &p.SnapshotID, &total); err != nil {
			return nil, fmt.Errorf("sqlite adapter: scan playlist: %w", err)
		}
		if total.Valid {
			n := int(total.Int64)
			p.TracksTotal = &n
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite adapter: iterate playlists: %w", err)
	}
	return playlists, nil
}

// SaveAudioFeatures upserts features by track id. A nil value never
// overwrites a stored one.
func (a *Adapter) SaveAudioFeatures(ctx context.Context, features map[string]domain.AudioFeatures) error {
	if len(features) == 0 {
		return nil
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite adapter: begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO audio_features (
			track_id, danceability, energy, valence, tempo, loudness, speechiness,
			acousticness, instrumentalness, liveness, time_signature, pitch_key, mode, energy_source
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CASE WHEN ? IS NULL THEN NULL ELSE ? END)
		ON CONFLICT(track_id) DO UPDATE SET
			danceability=COALESCE(excluded.danceability, danceability),
			energy=COALESCE(excluded.energy, energy),
			valence=COALESCE(excluded.valence, valence),
			tempo=COALESCE(excluded.tempo, tempo),
			loudness=COALESCE(excluded.loudness, loudness),
			speechiness=COALESCE(excluded.speechiness, speechiness),
			acousticness=COALESCE(excluded.acousticness, acousticness),
			instrumentalness=COALESCE(excluded.instrumentalness, instrumentalness),
			liveness=COALESCE(excluded.liveness, liveness),
			time_signature=COALESCE(excluded.time_signature, time_signature),
			pitch_key=COALESCE(excluded.pitch_key, pitch_key),
			mode=COALESCE(excluded.mode, mode),
			energy_source=COALESCE(excluded.energy_source, energy_source)
	`)
	if err != nil {
		return fmt.Errorf("sqlite adapter: prepare features: %w", err)
	}
	defer stmt.Close()

	for id, f := range features {
		if _, err := stmt.ExecContext(ctx, id,
			f.Danceability, f.Energy, f.Valence, f.Tempo, f.Loudness, f.Speechiness,
			f.Acousticness, f.Instrumentalness, f.Liveness, f.TimeSignature, f.Key, f.Mode,
			f.Energy, energySourceAPI,
		); err != nil {
			return fmt.Errorf("sqlite adapter: save features %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite adapter: commit: %w", err)
	}
	return nil
}

// SavePreviewEnergy records an energy estimate derived from the preview clip.
// It only fills a missing value.
func (a *Adapter) SavePreviewEnergy(ctx context.Context, trackID string, energy float64) error {
	if _, err := a.db.ExecContext(ctx, `
		INSERT INTO audio_features (track_id, energy, energy_source) VALUES (?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			energy_source=CASE WHEN energy IS NULL THEN excluded.energy_source ELSE energy_source END,
			energy=COALESCE(energy, excluded.energy)
	`, trackID, energy, energySourcePreview); err != nil {
		return fmt.Errorf("sqlite adapter: save preview energy %s: %w", trackID, err)
	}
	return nil
}

func (a *Adapter) loadAudioFeatures(ctx context.Context) (map[string]domain.AudioFeatures, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT track_id, danceability, energy, valence, tempo, loudness, speechiness,
			acousticness, instrumentalness, liveness, time_signature, pitch_key, mode
		FROM audio_features
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite adapter: load features: %w", err)
	}
	defer rows.Close()

	out := map[string]domain.AudioFeatures{}
	for rows.Next() {
		var id string
		var floats [9]sql.NullFloat64
		var ints [3]sql.NullInt64
		if err := rows.Scan(&id,
			&floats[0], &floats[1], &floats[2], &floats[3], &floats[4],
			&floats[5], &floats[6], &floats[7], &floats[8],
			&ints[0], &ints[1], &ints[2],
		); err != nil {
			return nil, fmt.Errorf("sqlite adapter: scan features: %w", err)
		}
		out[id] = domain.AudioFeatures{
			Danceability:     nullFloat(floats[0]),
			Energy:           nullFloat(floats[1]),
			Valence:          nullFloat(floats[2]),
			Tempo:            nullFloat(floats[3]),
			Loudness:         nullFloat(floats[4]),
			Speechiness:      nullFloat(floats[5]),
			Acousticness:     nullFloat(floats[6]),
			Instrumentalness: nullFloat(floats[7]),
			Liveness:         nullFloat(floats[8]),
			TimeSignature:    nullInt(ints[0]),
			Key:              nullInt(ints[1]),
			Mode:             nullInt(ints[2]),
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite adapter: iterate features: %w", err)
	}
	return out, nil
}

// SaveArtistGenres upserts genre lists by artist id.
func (a *Adapter) SaveArtistGenres(ctx context.Context, genres map[string][]string) error {
	if len(genres) == 0 {
		return nil
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite adapter: begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO artist_genres (artist_id, genres_json) VALUES (?, ?)
		ON CONFLICT(artist_id) DO UPDATE SET genres_json=excluded.genres_json
	`)
	if err != nil {
		return fmt.Errorf("sqlite adapter: prepare genres: %w", err)
	}
	defer stmt.Close()

	for id, list := range genres {
		if list == nil {
			list = []string{}
		}
		raw, err := json.Marshal(list)
		if err != nil {
			return fmt.Errorf("sqlite adapter: encode genres: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, id, string(raw)); err != nil {
			return fmt.Errorf("sqlite adapter: save genres %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite adapter: commit: %w", err)
	}
	return nil
}

func (a *Adapter) loadArtistGenres(ctx context.Context) (map[string][]string, error) {
	rows, err := a.db.QueryContext(ctx, "SELECT artist_id, genres_json FROM artist_genres")
	if err != nil {
		return nil, fmt.Errorf("sqlite adapter: load genres: %w", err)
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("sqlite adapter: scan genres: %w", err)
		}
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, fmt.Errorf("sqlite adapter: decode genres %s: %w", id, err)
		}
		out[id] = list
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite adapter: iterate genres: %w", err)
	}
	return out, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS sync_runs (
		run_id TEXT PRIMARY KEY,
		fetched_at TEXT NOT NULL,
		profile_id TEXT NOT NULL,
		profile_name TEXT NOT NULL DEFAULT '',
		has_liked BOOLEAN NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS playlists (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		owner_id TEXT NOT NULL DEFAULT '',
		owner_name TEXT NOT NULL DEFAULT '',
		public BOOLEAN NOT NULL DEFAULT 0,
		collaborative BOOLEAN NOT NULL DEFAULT 0,
		snapshot_id TEXT NOT NULL DEFAULT '',
		tracks_total INTEGER
	);

	CREATE TABLE IF NOT EXISTS playlist_items (
		source TEXT NOT NULL,
		playlist_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		added_at TEXT NOT NULL DEFAULT '',
		added_by TEXT NOT NULL DEFAULT '',
		is_local BOOLEAN NOT NULL DEFAULT 0,
		track_json TEXT,
		PRIMARY KEY (source, playlist_id, position)
	);

	CREATE TABLE IF NOT EXISTS audio_features (
		track_id TEXT PRIMARY KEY,
		danceability REAL,
		energy REAL,
		valence REAL,
		tempo REAL,
		loudness REAL,
		speechiness REAL,
		acousticness REAL,
		instrumentalness REAL,
		liveness REAL,
		time_signature INTEGER,
		pitch_key INTEGER,
		mode INTEGER,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS artist_genres (
		artist_id TEXT PRIMARY KEY,
		genres_json TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	// Databases created before preview analysis existed lack this column.
	if _, err := a.db.Exec("ALTER TABLE audio_features ADD COLUMN energy_source TEXT"); err != nil {
		if !isDuplicateColumnError(err) {
			return err
		}
	}

	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}
