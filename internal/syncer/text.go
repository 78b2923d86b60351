package syncer

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	docIDPrefix   = "event-gcal-"
	draftIDPrefix = "drafts."
	docHashLength = 24
	maxSlugLength = 96
)

var (
	slugInvalid    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugWhitespace = regexp.MustCompile(`\s+`)
	slugDashes     = regexp.MustCompile(`-+`)
)

// combiningDiacritic matches the Combining Diacritical Marks block only.
func combiningDiacritic(r rune) bool {
	return r >= 0x300 && r <= 0x36f
}

// fold strips diacritics and lower-cases s, so "Fléda" becomes "fleda".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(combiningDiacritic)))
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// DocumentID returns the published CMS id for a Google event. It depends only
// on the calendar and event ids, so repeated syncs address the same document.
func DocumentID(calendarID, eventID string) string {
	sum := sha1.Sum([]byte(calendarID + ":" + eventID))
	return docIDPrefix + hex.EncodeToString(sum[:])[:docHashLength]
}

// DraftID returns the id of the draft variant of a published document.
func DraftID(publishedID string) string {
	return draftIDPrefix + publishedID
}

// Slugify turns input into a lowercase ASCII slug of at most 96 characters.
// It returns "event" when nothing usable is left.
func Slugify(input string) string {
	s := strings.Map(spaceToASCII, fold(input))
	s = slugInvalid.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = slugWhitespace.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
	}
	if s == "" {
		return "event"
	}
	return s
}

// spaceToASCII maps every Unicode space (NBSP, vertical tab, BOM, ...) to ' '
// so it separates words instead of being stripped.
func spaceToASCII(r rune) rune {
	if unicode.IsSpace(r) || r == '\ufeff' {
		return ' '
	}
	return r
}
