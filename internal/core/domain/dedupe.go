package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("domain: not found")
	ErrNotSynced         = errors.New("domain: library has not been synced")
	ErrInvalidDedupeRule = errors.New("domain: invalid dedupe rule")
	ErrMalformedToken    = errors.New("domain: malformed fingerprint token")
)

// DedupeRule selects which identifier decides that two occurrences are the
// same track.
type DedupeRule string

const (
	DedupeByTrackID  DedupeRule = "track_id"
	DedupeByTrackURI DedupeRule = "track_uri"
)

// ParseDedupeRule accepts "track_id" or "track_uri". An empty string selects
// the default, track_id.
func ParseDedupeRule(raw string) (DedupeRule, error) {
	switch DedupeRule(strings.TrimSpace(strings.ToLower(raw))) {
	case "", DedupeByTrackID:
		return DedupeByTrackID, nil
	case DedupeByTrackURI:
		return DedupeByTrackURI, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDedupeRule, raw)
	}
}

// Key returns the identity of an occurrence under the rule. ok is false when
// the occurrence carries neither a track id nor a uri; such occurrences stay
// in raw totals but are left out of every identity-based structure.
func (r DedupeRule) Key(o Occurrence) (key string, ok bool) {
	first, second := o.TrackID, o.TrackURI
	if r == DedupeByTrackURI {
		first, second = o.TrackURI, o.TrackID
	}
	if first != "" {
		return first, true
	}
	if second != "" {
		return second, true
	}
	return "", false
}
