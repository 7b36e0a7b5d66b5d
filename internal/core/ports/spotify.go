package ports

import (
	"context"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

// LibrarySource reads a user's library from the streaming API.
// Paging and batching are the implementation's concern; callers get
// complete results or an error.
type LibrarySource interface {
	GetProfile(ctx context.Context) (domain.Profile, error)
	GetPlaylists(ctx context.Context) ([]domain.Playlist, error)
	GetPlaylistItems(ctx context.Context, playlistID string) ([]domain.PlaylistItem, error)
	GetSavedTracks(ctx context.Context) ([]domain.PlaylistItem, error)
	GetAudioFeatures(ctx context.Context, trackIDs []string) (map[string]domain.AudioFeatures, error)
	GetArtistGenres(ctx context.Context, artistIDs []string) (map[string][]string, error)
}

// PreviewAnalyzer estimates the energy of a track from its preview clip.
type PreviewAnalyzer interface {
	AnalyzePreview(ctx context.Context, url string) (float64, error)
}
