package spotify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

const audioFeaturesBatch = 100

// GetAudioFeatures fetches features in batches. Tracks the API has no
// features for are absent from the result.
func (c *Client) GetAudioFeatures(ctx context.Context, trackIDs []string) (map[string]domain.AudioFeatures, error) {
	result := make(map[string]domain.AudioFeatures, len(trackIDs))
	for _, batch := range chunk(trackIDs, audioFeaturesBatch) {
		var body struct {
			AudioFeatures []*spotifyAudioFeatures `json:"audio_features"`
		}
		params := url.Values{"ids": {strings.Join(batch, ",")}}
		if err := c.getJSON(ctx, c.baseURL+"/audio-features", params, &body); err != nil {
			return nil, fmt.Errorf("spotify adapter: audio features: %w", err)
		}
		for _, f := range body.AudioFeatures {
			if f == nil || f.ID == "" {
				continue
			}
			result[f.ID] = mapFeaturesToDomain(*f)
		}
	}
	return result, nil
}

// chunk splits ids into consecutive slices of at most size elements.
func chunk(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}
