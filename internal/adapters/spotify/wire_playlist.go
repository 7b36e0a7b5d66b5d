package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

const (
	playlistPageSize = 50
	itemPageSize     = 100
	savedPageSize    = 50
)

// itemFields trims playlist item payloads to what the library model keeps.
const itemFields = "items(added_at,added_by(id),is_local," +
	"track(id,uri,name,explicit,popularity,duration_ms,preview_url," +
	"album(id,name,release_date,uri),artists(id,name,uri))),total,next"

// GetPlaylists returns every playlist of the current user.
func (c *Client) GetPlaylists(ctx context.Context) ([]domain.Playlist, error) {
	raw, err := fetchAll[spotifyPlaylist](ctx, c, c.baseURL+"/me/playlists", playlistPageSize, nil)
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: playlists: %w", err)
	}
	out := make([]domain.Playlist, 0, len(raw))
	for _, sp := range raw {
		out = append(out, mapPlaylistToDomain(sp))
	}
	return out, nil
}

// GetPlaylistItems returns every item of a playlist in playlist order.
func (c *Client) GetPlaylistItems(ctx context.Context, playlistID string) ([]domain.PlaylistItem, error) {
	endpoint := fmt.Sprintf("%s/playlists/%s/tracks", c.baseURL, url.PathEscape(playlistID))
	raw, err := fetchAll[spotifyItem](ctx, c, endpoint, itemPageSize, url.Values{"fields": {itemFields}})
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: playlist %s items: %w", playlistID, err)
	}
	return mapItems(raw), nil
}

// GetSavedTracks returns the user's liked tracks.
func (c *Client) GetSavedTracks(ctx context.Context) ([]domain.PlaylistItem, error) {
	raw, err := fetchAll[spotifyItem](ctx, c, c.baseURL+"/me/tracks", savedPageSize, nil)
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: saved tracks: %w", err)
	}
	return mapItems(raw), nil
}

// fetchAll walks an offset-paged endpoint until the page has no next link.
func fetchAll[T any](ctx context.Context, c *Client, endpoint string, limit int, extra url.Values) ([]T, error) {
	var out []T
	for offset := 0; ; offset += limit {
		params := url.Values{}
		for k, v := range extra {
			params[k] = v
		}
		params.Set("limit", strconv.Itoa(limit))
		params.Set("offset", strconv.Itoa(offset))

		var p page[T]
		if err := c.getJSON(ctx, endpoint, params, &p); err != nil {
			return nil, err
		}
		out = append(out, p.Items...)
		if p.Next == "" || len(p.Items) == 0 {
			return out, nil
		}
	}
}

func mapItems(raw []spotifyItem) []domain.PlaylistItem {
	out := make([]domain.PlaylistItem, 0, len(raw))
	for _, it := range raw {
		out = append(out, mapItemToDomain(it))
	}
	return out
}
