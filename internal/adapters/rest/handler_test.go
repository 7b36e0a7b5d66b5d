package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ewilliams-labs/tastemap/internal/adapters/sqlite"
	"github.com/ewilliams-labs/tastemap/internal/core/domain"
	"github.com/ewilliams-labs/tastemap/internal/core/services"
	"github.com/ewilliams-labs/tastemap/internal/worker"
)

// --- Mocks ---

// mockSource stands in for the Spotify adapter. The handler is exercised
// through a real Orchestrator backed by an in-memory SQLite repository.
type mockSource struct {
	playlists []domain.Playlist
	items     map[string][]domain.PlaylistItem
	liked     []domain.PlaylistItem
}

func (m *mockSource) GetProfile(ctx context.Context) (domain.Profile, error) {
	return domain.Profile{ID: "u1", DisplayName: "Dana"}, nil
}

func (m *mockSource) GetPlaylists(ctx context.Context) ([]domain.Playlist, error) {
	return m.playlists, nil
}

func (m *mockSource) GetPlaylistItems(ctx context.Context, playlistID string) ([]domain.PlaylistItem, error) {
	return m.items[playlistID], nil
}

func (m *mockSource) GetSavedTracks(ctx context.Context) ([]domain.PlaylistItem, error) {
	return m.liked, nil
}

func (m *mockSource) GetAudioFeatures(ctx context.Context, ids []string) (map[string]domain.AudioFeatures, error) {
	energy := 0.7
	out := map[string]domain.AudioFeatures{}
	for _, id := range ids {
		out[id] = domain.AudioFeatures{Energy: &energy}
	}
	return out, nil
}

func (m *mockSource) GetArtistGenres(ctx context.Context, ids []string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, id := range ids {
		out[id] = []string{"dream pop"}
	}
	return out, nil
}

// --- Helpers ---

func item(id, name, artistID, artistName, addedAt string) domain.PlaylistItem {
	return domain.PlaylistItem{
		AddedAt: addedAt,
		Track: &domain.TrackPayload{
			ID:      id,
			URI:     "spotify:track:" + id,
			Name:    name,
			Album:   domain.AlbumPayload{ID: "al-" + id, Name: "Album " + id, ReleaseDate: "1994-05-01"},
			Artists: []domain.ArtistPayload{{ID: artistID, Name: artistName}},
		},
	}
}

func newMockSource() *mockSource {
	return &mockSource{
		playlists: []domain.Playlist{
			{ID: "p1", Name: "Road Trip", Owner: domain.Owner{ID: "u1"}, Public: true},
			{ID: "p2", Name: "Gym", Owner: domain.Owner{ID: "u1"}},
		},
		items: map[string][]domain.PlaylistItem{
			"p1": {
				item("t1", "Song A", "ar1", "Artist One", "2023-01-01T00:00:00Z"),
				item("t2", "Song B", "ar2", "Artist Two", "2023-01-02T00:00:00Z"),
			},
			"p2": {
				item("t1", "Song A", "ar1", "Artist One", "2023-02-01T00:00:00Z"),
				item("t3", "Song A - Remastered 2011", "ar1", "Artist One", "2023-02-02T00:00:00Z"),
			},
		},
		liked: []domain.PlaylistItem{item("t2", "Song B", "ar2", "Artist Two", "2023-03-01T00:00:00Z")},
	}
}

func newTestHandler(t *testing.T, pool func(*services.Orchestrator) *worker.Pool) *Handler {
	t.Helper()
	return newHandlerWithSource(t, newMockSource(), pool)
}

func newHandlerWithSource(t *testing.T, src *mockSource, pool func(*services.Orchestrator) *worker.Pool) *Handler {
	t.Helper()
	repo, err := sqlite.NewAdapter(":memory:")
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	svc := services.NewOrchestrator(src, repo, services.Options{
		IncludeLiked: true,
		ShareBaseURL: "https://tastemap.example/dna",
	})
	var p *worker.Pool
	if pool != nil {
		p = pool(svc)
	}
	return NewHandler(svc, p)
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func syncLibrary(t *testing.T, h http.Handler) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/sync")
	if rec.Code != http.StatusOK {
		t.Fatalf("sync: got %d, body: %s", rec.Code, rec.Body.String())
	}
}

// --- Tests ---

func TestHandler_HealthCheck(t *testing.T) {
	h := newTestHandler(t, nil)
	rec := do(t, h, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Status Code: got %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestHandler_NotSynced(t *testing.T) {
	h := newTestHandler(t, nil)
	for _, target := range []string{"/insights/metrics", "/insights/dna", "/playlists/p1/persona", "/export/tracks.csv"} {
		t.Run(target, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, target)
			if rec.Code != http.StatusConflict {
				t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), `"code":"NOT_SYNCED"`) {
				t.Errorf("expected NOT_SYNCED code, got %q", rec.Body.String())
			}
		})
	}
}

func TestHandler_Sync(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedBody   string
	}{
		{name: "default includes liked", target: "/sync", expectedStatus: http.StatusOK, expectedBody: `"liked":1`},
		{name: "liked disabled by query", target: "/sync?include_liked=false", expectedStatus: http.StatusOK, expectedBody: `"liked":0`},
		{name: "invalid flag", target: "/sync?include_liked=perhaps", expectedStatus: http.StatusBadRequest, expectedBody: "include_liked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, nil)
			rec := do(t, h, http.MethodPost, tt.target)
			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, strings.TrimSpace(rec.Body.String()))
			}
			if !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestHandler_Insights(t *testing.T) {
	h := newTestHandler(t, nil)
	syncLibrary(t, h)

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedBody   string
	}{
		{name: "metrics", target: "/insights/metrics", expectedStatus: http.StatusOK, expectedBody: `"playlist_count":2`},
		{name: "metrics by uri", target: "/insights/metrics?dedupe=track_uri", expectedStatus: http.StatusOK, expectedBody: `"unique_by":"track_uri"`},
		{name: "metrics bad rule", target: "/insights/metrics?dedupe=isrc", expectedStatus: http.StatusBadRequest, expectedBody: "INVALID_PARAMETER"},
		{name: "metrics bad liked flag", target: "/insights/metrics?include_liked=perhaps", expectedStatus: http.StatusBadRequest, expectedBody: "include_liked"},
		{name: "duplicates", target: "/insights/duplicates", expectedStatus: http.StatusOK, expectedBody: `"track_name":"Song A"`},
		{name: "near duplicates", target: "/insights/near-duplicates", expectedStatus: http.StatusOK, expectedBody: `"canonical":"song a"`},
		{name: "overlap all", target: "/insights/overlap", expectedStatus: http.StatusOK, expectedBody: `"liked_songs"`},
		{name: "overlap subset", target: "/insights/overlap?playlists=p1,p2", expectedStatus: http.StatusOK, expectedBody: `"matrix":[[2,1],[1,2]]`},
		{name: "overlap unknown playlist", target: "/insights/overlap?playlists=p1,nope", expectedStatus: http.StatusNotFound, expectedBody: "NOT_FOUND"},
		{name: "overlap detail", target: "/insights/overlap/p1/p2", expectedStatus: http.StatusOK, expectedBody: `"track_name":"Song A"`},
		{name: "overlap detail unknown", target: "/insights/overlap/p1/nope", expectedStatus: http.StatusNotFound, expectedBody: "NOT_FOUND"},
		{name: "artist search", target: "/insights/artists?q=artist%20one", expectedStatus: http.StatusOK, expectedBody: `"name":"Artist One"`},
		{name: "artist search needs query", target: "/insights/artists", expectedStatus: http.StatusBadRequest, expectedBody: "q is required"},
		{name: "artist search bad limit", target: "/insights/artists?q=a&limit=-1", expectedStatus: http.StatusBadRequest, expectedBody: "limit"},
		{name: "artist detail", target: "/insights/artists/id:ar1", expectedStatus: http.StatusOK, expectedBody: "Artist One"},
		{name: "artist detail unknown", target: "/insights/artists/id:nobody", expectedStatus: http.StatusNotFound, expectedBody: "NOT_FOUND"},
		{name: "persona", target: "/playlists/p1/persona", expectedStatus: http.StatusOK, expectedBody: `"summary"`},
		{name: "persona liked songs", target: "/playlists/liked_songs/persona", expectedStatus: http.StatusOK, expectedBody: `"traits"`},
		{name: "persona liked excluded", target: "/playlists/liked_songs/persona?include_liked=false", expectedStatus: http.StatusNotFound, expectedBody: "NOT_FOUND"},
		{name: "persona unknown", target: "/playlists/nope/persona", expectedStatus: http.StatusNotFound, expectedBody: "NOT_FOUND"},
		{name: "malformed dna token", target: "/dna/not-a-token", expectedStatus: http.StatusBadRequest, expectedBody: "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target)
			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d, body: %s", tt.expectedStatus, rec.Code, strings.TrimSpace(rec.Body.String()))
			}
			if !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("expected body to contain %q, got %q", tt.expectedBody, rec.Body.String())
			}
		})
	}
}

func TestHandler_DNARoundTrip(t *testing.T) {
	h := newTestHandler(t, nil)
	syncLibrary(t, h)

	rec := do(t, h, http.MethodGet, "/insights/dna")
	if rec.Code != http.StatusOK {
		t.Fatalf("dna: got %d, body: %s", rec.Code, rec.Body.String())
	}
	var got services.DNAResult
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode dna: %v", err)
	}
	if got.Token == "" || len(got.Bars) == 0 {
		t.Fatalf("dna result incomplete: %+v", got)
	}
	if !strings.HasPrefix(got.ShareURL, "https://tastemap.example/dna#dna=") {
		t.Errorf("share url: got %q", got.ShareURL)
	}

	rec = do(t, h, http.MethodGet, "/dna/"+got.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("decode token: got %d, body: %s", rec.Code, rec.Body.String())
	}
	var decoded services.DNAResult
	if err := json.NewDecoder(rec.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode shared dna: %v", err)
	}
	if decoded.Token != got.Token {
		t.Errorf("token changed across round trip: %q vs %q", decoded.Token, got.Token)
	}
	if decoded.DNA.TotalTracks != got.DNA.TotalTracks {
		t.Errorf("total tracks: got %d, want %d", decoded.DNA.TotalTracks, got.DNA.TotalTracks)
	}
}

func TestHandler_ExportTracks(t *testing.T) {
	h := newTestHandler(t, nil)
	syncLibrary(t, h)

	rec := do(t, h, http.MethodGet, "/export/tracks.csv?include_liked=false")
	if rec.Code != http.StatusOK {
		t.Fatalf("export: got %d, body: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type: got %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("csv lines: got %d, want header plus 4 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "source,playlist_id,playlist_name") {
		t.Errorf("header: got %q", lines[0])
	}
}

func TestHandler_EnrichInline(t *testing.T) {
	h := newTestHandler(t, nil)
	syncLibrary(t, h)

	rec := do(t, h, http.MethodPost, "/enrich/audio-features")
	if rec.Code != http.StatusOK {
		t.Fatalf("audio features: got %d, body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"stored":3`) {
		t.Errorf("expected three stored feature rows, got %q", rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/enrich/genres?limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("genres: got %d, body: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"requested":1`) {
		t.Errorf("limit should cap the artists requested, got %q", rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/enrich/genres?limit=abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandler_EnrichQueued(t *testing.T) {
	var pool *worker.Pool
	h := newTestHandler(t, func(svc *services.Orchestrator) *worker.Pool {
		pool = worker.NewPool(svc, nil, 1)
		return pool
	})
	syncLibrary(t, h)

	rec := do(t, h, http.MethodPost, "/enrich/genres")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first job: got %d, want %d", rec.Code, http.StatusAccepted)
	}
	if !strings.Contains(rec.Body.String(), `"job":"genres"`) {
		t.Errorf("unexpected body %q", rec.Body.String())
	}

	// No worker is running yet, so the single queue slot is taken.
	rec = do(t, h, http.MethodPost, "/enrich/audio-features")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("second job: got %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	pool.Start(1)
	pool.Stop(context.Background())

	rec = do(t, h, http.MethodGet, "/jobs")
	if !strings.Contains(rec.Body.String(), `"completed":1`) || !strings.Contains(rec.Body.String(), `"dropped":1`) {
		t.Errorf("job stats: got %q", rec.Body.String())
	}
}

func TestHandler_ArtistKeyWithSlash(t *testing.T) {
	local := item("", "Highway", "", "AC/DC", "2023-04-01T00:00:00Z")
	local.IsLocal = true
	local.Track.URI = "spotify:local:AC%2FDC::Highway:208"
	src := &mockSource{
		playlists: []domain.Playlist{{ID: "p1", Name: "Local Files", Owner: domain.Owner{ID: "u1"}}},
		items:     map[string][]domain.PlaylistItem{"p1": {local}},
	}
	h := newHandlerWithSource(t, src, nil)
	syncLibrary(t, h)

	rec := do(t, h, http.MethodGet, "/insights/artists/name:AC/DC")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d, body: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var detail struct {
		Key   string `json:"key"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.Key != "name:AC/DC" || detail.Count != 1 {
		t.Errorf("unexpected detail %+v", detail)
	}
}
