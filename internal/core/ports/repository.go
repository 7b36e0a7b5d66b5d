package ports

import (
	"context"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

// LibraryRepository persists library snapshots and enrichment data.
type LibraryRepository interface {
	// SaveLibrary replaces the stored snapshot with lib.
	SaveLibrary(ctx context.Context, lib domain.Library) error
	// LoadLibrary returns the latest snapshot, or domain.ErrNotSynced when
	// nothing has been stored yet.
	LoadLibrary(ctx context.Context) (domain.Library, error)
	SaveAudioFeatures(ctx context.Context, features map[string]domain.AudioFeatures) error
	SaveArtistGenres(ctx context.Context, genres map[string][]string) error
	SavePreviewEnergy(ctx context.Context, trackID string, energy float64) error
}
