package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const artistBatch = 50

// GetArtistGenres looks up artists in batches and returns their genres by
// id. Artists with no genres map to an empty slice so callers can tell
// "looked up" from "never asked".
func (c *Client) GetArtistGenres(ctx context.Context, artistIDs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(artistIDs))
	for _, batch := range chunk(artistIDs, artistBatch) {
		var body struct {
			Artists []*spotifyArtist `json:"artists"`
		}
		params := url.Values{"ids": {strings.Join(batch, ",")}}
		if err := c.getJSON(ctx, c.baseURL+"/artists", params, &body); err != nil {
			return nil, fmt.Errorf("spotify adapter: artists: %w", err)
		}
		for _, a := range body.Artists {
			if a == nil || a.ID == "" {
				continue
			}
			genres := a.Genres
			if genres == nil {
				genres = []string{}
			}
			result[a.ID] = genres
		}
	}
	return result, nil
}
