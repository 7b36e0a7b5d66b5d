package insights

import (
	"fmt"
	"math"
	"strings"

	"github.com/ewilliams-labs/tastemap/internal/core/domain"
)

const (
	personaGenres    = 6
	timeTravelerSpan = 25
	highEnergy       = 0.70
	lowEnergy        = 0.42
	highValence      = 0.62
	lowValence       = 0.45
)

// Trait is one labelled row of a persona card.
type Trait struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Persona is a short prose profile of a single playlist.
type Persona struct {
	Summary string   `json:"summary"`
	Badges  []string `json:"badges"`
	Traits  []Trait  `json:"traits"`
}

// PersonaInput is one playlist's occurrences plus optional enrichment.
type PersonaInput struct {
	Name          string
	Occurrences   []domain.Occurrence
	AudioFeatures map[string]domain.AudioFeatures
	ArtistGenres  map[string][]string
	Rule          domain.DedupeRule
}

// ComputePersona builds the persona. Badges appear only for known values and
// traits fall back to readable text instead of raw zeros.
func ComputePersona(in PersonaInput) Persona {
	rule := in.Rule
	if rule == "" {
		rule = domain.DedupeByTrackID
	}

	total := len(in.Occurrences)
	unique := make(map[string]struct{})
	explicitKnown, explicitCount := 0, 0
	minYear, maxYear := 0, 0
	for _, o := range in.Occurrences {
		if k, ok := rule.Key(o); ok {
			unique[k] = struct{}{}
		}
		if o.Explicit != nil {
			explicitKnown++
			if *o.Explicit {
				explicitCount++
			}
		}
		if y, ok := ParseYear(o.AlbumReleaseDate); ok {
			if minYear == 0 || y < minYear {
				minYear = y
			}
			if y > maxYear {
				maxYear = y
			}
		}
	}

	explicitRatio := ratio(int64(explicitCount), explicitKnown)
	uniqueRatio := ratio(int64(len(unique)), total)
	yearKnown := minYear != 0
	yearSpan := -1
	if yearKnown {
		yearSpan = maxYear - minYear
	}

	var tempos, energies, valences, dance []float64
	if in.AudioFeatures != nil {
		for _, id := range uniqueTrackIDs(in.Occurrences) {
			f, ok := in.AudioFeatures[id]
			if !ok {
				continue
			}
			appendKnown(&tempos, f.Tempo)
			appendKnown(&energies, f.Energy)
			appendKnown(&valences, f.Valence)
			appendKnown(&dance, f.Danceability)
		}
	}
	avgTempo, avgEnergy, avgValence, avgDance := mean(tempos), mean(energies), mean(valences), mean(dance)

	genres := primaryGenres(in.Occurrences, in.ArtistGenres)
	mood := moodLabel(avgEnergy, avgValence)
	who := personaName(avgEnergy, avgValence, yearSpan)

	badges := []string{}
	if avgEnergy != nil {
		badges = append(badges, "Energy "+unitPercent(*avgEnergy))
	}
	if avgValence != nil {
		badges = append(badges, "Mood "+unitPercent(*avgValence))
	}
	if avgTempo != nil {
		badges = append(badges, "Tempo "+bpm(*avgTempo))
	}
	badges = append(badges, fmt.Sprintf("%d unique / %d total", len(unique), total))
	if explicitRatio != nil {
		badges = append(badges, "Explicit "+percent(*explicitRatio))
	}
	if yearKnown {
		badges = append(badges, fmt.Sprintf("%d–%d", minYear, maxYear))
	}

	traits := []Trait{
		{Label: "Persona", Value: who},
		{Label: "Mood", Value: mood},
		{Label: "Tempo", Value: orElse(avgTempo, bpm, "Enable Audio features for tempo")},
		{Label: "Danceability", Value: orElse(avgDance, unitPercent, "Enable Audio features for danceability")},
		{Label: "Explicit ratio", Value: orElse(explicitRatio, percent, "Unknown")},
		{Label: "Uniqueness", Value: orElse(uniqueRatio, percent, "Unknown")},
		{Label: "Era range", Value: "Unknown"},
		{Label: "Top genres", Value: "Fetch genres to derive this"},
	}
	if yearKnown {
		traits[6].Value = fmt.Sprintf("%d to %d (span %dy)", minYear, maxYear, yearSpan)
	}
	if len(genres) > 0 {
		traits[7].Value = strings.Join(genres, " | ")
	}

	return Persona{
		Summary: fmt.Sprintf("If “%s” were a person: %s. %s.", in.Name, who, mood),
		Badges:  badges,
		Traits:  traits,
	}
}

func moodLabel(energy, valence *float64) string {
	if energy == nil || valence == nil {
		return "Unknown mood (enable Audio features)"
	}
	e, v := *energy, *valence
	switch {
	case e >= highEnergy && v >= highValence:
		return "Golden-hour hype"
	case e >= highEnergy && v < lowValence:
		return "Intense catharsis"
	case e < lowEnergy && v >= highValence:
		return "Soft sunshine"
	case e < lowEnergy && v < lowValence:
		return "Midnight introspection"
	default:
		return "Balanced vibes"
	}
}

// personaName picks a name from the energy/valence quadrant. A span of
// yearSpan >= 25 switches to the time traveler variant; -1 means unknown.
func personaName(energy, valence *float64, yearSpan int) string {
	tt := yearSpan >= timeTravelerSpan
	pick := func(plain, traveler string) string {
		if tt {
			return traveler
		}
		return plain
	}
	if energy == nil || valence == nil {
		return pick("The Mystery Curator", "The Time Traveler")
	}
	e, v := *energy, *valence
	switch {
	case e >= highEnergy && v >= highValence:
		return pick("Neon Sprinter", "Neon Time Traveler")
	case e >= highEnergy && v < lowValence:
		return pick("Storm Runner", "Storm Time Traveler")
	case e < lowEnergy && v >= highValence:
		return pick("Sunday Brunch DJ", "Sunday Time Traveler")
	case e < lowEnergy && v < lowValence:
		return pick("Midnight Librarian", "Midnight Time Traveler")
	default:
		return pick("The Balanced Builder", "Eclectic Time Traveler")
	}
}

// primaryGenres tallies genres of the first artist of each occurrence and
// returns the top names, ties in first-seen order.
func primaryGenres(occs []domain.Occurrence, artistGenres map[string][]string) []string {
	if len(artistGenres) == 0 {
		return nil
	}
	c := newCounter()
	for _, o := range occs {
		if len(o.ArtistIDs) == 0 || o.ArtistIDs[0] == "" {
			continue
		}
		for _, g := range artistGenres[o.ArtistIDs[0]] {
			c.add(g, "", g)
		}
	}
	top := c.top(personaGenres)
	out := make([]string, len(top))
	for i, e := range top {
		out[i] = e.Name
	}
	return out
}

func appendKnown(dst *[]float64, v *float64) {
	if v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) {
		*dst = append(*dst, *v)
	}
}

func orElse(v *float64, format func(float64) string, fallback string) string {
	if v == nil {
		return fallback
	}
	return format(*v)
}

func percent(r float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(r*100)))
}

// unitPercent clamps r to [0, 1] before formatting.
func unitPercent(r float64) string {
	return percent(math.Max(0, math.Min(1, r)))
}

func bpm(t float64) string {
	return fmt.Sprintf("%d bpm", int(math.Round(t)))
}
