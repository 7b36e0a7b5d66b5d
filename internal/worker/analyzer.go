package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/ewilliams-labs/tastemap/internal/core/ports"
)

// maxPreviewBytes caps the download; a 30s preview at 320kbps is about 1.2MB.
const maxPreviewBytes = 4 << 20

var errNoSamples = errors.New("preview contains no samples")

// PreviewAnalyzer estimates track energy from the RMS loudness of a preview
// clip. It is a coarse stand-in for the API's energy value.
type PreviewAnalyzer struct {
	client *http.Client
}

var _ ports.PreviewAnalyzer = (*PreviewAnalyzer)(nil)

// NewPreviewAnalyzer returns an analyzer using client, or a client with a
// 15s timeout when nil.
func NewPreviewAnalyzer(client *http.Client) *PreviewAnalyzer {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &PreviewAnalyzer{client: client}
}

// AnalyzePreview downloads and decodes the MP3 at url and returns an energy
// value in [0, 1].
func (a *PreviewAnalyzer) AnalyzePreview(ctx context.Context, url string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("preview request: %w", err)
	}
	// #nosec G107 -- URL is a preview URL taken from the Spotify API response
	resp, err := a.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("preview fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("preview fetch status %d", resp.StatusCode)
	}

	decoder, err := mp3.NewDecoder(io.LimitReader(resp.Body, maxPreviewBytes))
	if err != nil {
		return 0, fmt.Errorf("preview decode failed: %w", err)
	}
	return energyFromPCM(decoder)
}

// energyFromPCM reads signed 16-bit little-endian samples and returns their
// RMS scaled to [0, 1].
func energyFromPCM(r io.Reader) (float64, error) {
	buf := make([]byte, 4096)
	var sumSquares float64
	var count float64

	for {
		n, err := r.Read(buf)
		for i := 0; i+1 < n; i += 2 {
			sample := int16(uint16(buf[i]) | uint16(buf[i+1])<<8)
			val := float64(sample)
			sumSquares += val * val
			count++
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, fmt.Errorf("preview read failed: %w", err)
		}
	}

	if count == 0 {
		return 0, errNoSamples
	}

	energy := math.Sqrt(sumSquares/count) / 32768.0
	return math.Max(0, math.Min(1, energy)), nil
}
