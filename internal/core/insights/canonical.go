package insights

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// versionTokens marks a parenthetical or bracketed segment as a version tag.
var versionTokens = map[string]struct{}{
	"acoustic":     {},
	"bonus":        {},
	"deluxe":       {},
	"demo":         {},
	"edit":         {},
	"feat":         {},
	"featuring":    {},
	"ft":           {},
	"instrumental": {},
	"live":         {},
	"mix":          {},
	"mono":         {},
	"remaster":     {},
	"remastered":   {},
	"remix":        {},
	"stereo":       {},
	"version":      {},
}

// versionSuffix matches a trailing " - <tag>" where the whole remainder is a
// version tag. "Song - Live at Wembley" is left alone.
var versionSuffix = regexp.MustCompile(`\s+-\s*(radio edit|edit|mix|remaster(ed)?(\s*\d{4})?|live|acoustic|mono|stereo|instrumental|demo|deluxe|bonus track|version|feat\.?.*)\s*$`)

var (
	parenSegment   = regexp.MustCompile(`\(([^)]*)\)`)
	bracketSegment = regexp.MustCompile(`\[([^\]]*)\]`)
)

// CanonicalTitle reduces a track title to the form used for near-duplicate
// grouping. Version tags are removed; other parentheticals such as
// "(Part 2)" survive as plain words.
func CanonicalTitle(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, "’", "'")
	s = versionSuffix.ReplaceAllString(s, "")
	s = stripVersionSegments(s, parenSegment)
	s = stripVersionSegments(s, bracketSegment)
	s = foldDiacritics(s)
	s = strings.ReplaceAll(s, "&", " and ")
	return strings.Join(strings.Fields(cleanSeparators(s)), " ")
}

// foldDiacritics decomposes s and drops combining marks, so "café" and
// "cafe" compare equal. It holds no state and is safe for concurrent use.
func foldDiacritics(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if !unicode.Is(unicode.Mn, r) {
			out.WriteRune(r)
		}
	}
	return norm.NFC.String(out.String())
}

func stripVersionSegments(s string, segment *regexp.Regexp) string {
	return segment.ReplaceAllStringFunc(s, func(m string) string {
		inner := segment.FindStringSubmatch(m)[1]
		if hasVersionToken(inner) {
			return " "
		}
		return m
	})
}

func hasVersionToken(input string) bool {
	for _, token := range strings.Fields(cleanSeparators(strings.ToLower(input))) {
		if _, ok := versionTokens[token]; ok {
			return true
		}
	}
	return false
}

// cleanSeparators keeps letters and digits and turns every other run of
// characters into a single space.
func cleanSeparators(input string) string {
	var out strings.Builder
	lastSpace := false
	for _, r := range input {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			out.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			out.WriteRune(' ')
			lastSpace = true
		}
	}

	return out.String()
}
