package resolver

import (
	"regexp"
	"strings"

	"github.com/MunifTanjim/go-ptt"
)

var (
	imdbPattern = regexp.MustCompile(`^tt\d+`)
	nonAlnum    = regexp.MustCompile(`[^a-z0-9]+`)
)

// IsIMDbID reports whether the target looks like a Stremio IMDb id
// ("tt0133093" or "tt0903747:1:3").
func IsIMDbID(id string) bool {
	return imdbPattern.MatchString(id)
}

// normalize lower-cases and strips everything non-alphanumeric, so that
// "The.Matrix" and "The Matrix" compare equal.
func normalize(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

// derivedIDs computes the ids a filename can stand in for: the normalized
// parsed title, and the title concatenated with the release year when one is
// present ("thematrix", "thematrix1999" for The.Matrix.1999.1080p.mkv).
func derivedIDs(name string) []string {
	info := ptt.Parse(name)
	if info.Title == "" {
		return nil
	}

	title := normalize(info.Title)
	ids := []string{title}
	if info.Year != "" {
		ids = append(ids, title+info.Year)
	}
	return ids
}

// matchesDerivedID reports whether targetID equals any id derived from name.
func matchesDerivedID(name, targetID string) bool {
	for _, id := range derivedIDs(name) {
		if id == targetID {
			return true
		}
	}
	return false
}

// matchesTitleYear applies the metadata heuristic: the normalized filename
// must contain the normalized title, and when the metadata carries a release
// year its literal digits must appear somewhere in the raw filename. The
// heuristic can under-match (year missing from the filename) and over-match
// (year coincidentally present in an unrelated name); callers return every
// match rather than picking one.
func matchesTitleYear(name, title string, year string) bool {
	normTitle := normalize(title)
	if normTitle == "" || !strings.Contains(normalize(name), normTitle) {
		return false
	}
	if year != "" && !strings.Contains(name, year) {
		return false
	}
	return true
}
