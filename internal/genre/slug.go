// Package genre normalizes the free-text genre users type into stable slugs
// used for filtering and search facets.
package genre

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches any non-alphanumeric character.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// Matches multiple hyphens.
	multipleHyphens = regexp.MustCompile(`-+`)
)

// Slugify converts a string to a URL-safe slug.
// "Science Fiction" -> "science-fiction".
// "Cien años" -> "cien-anos".
// "Sci-Fi/Fantasy" -> "sci-fi-fantasy".
func Slugify(s string) string {
	// Decompose accented characters so the base letter survives.
	s = norm.NFKD.String(s)

	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = multipleHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// aliases maps common spellings to a canonical slug.
var aliases = map[string]string{
	"sci-fi":             "science-fiction",
	"scifi":              "science-fiction",
	"sf":                 "science-fiction",
	"ya":                 "young-adult",
	"teen":               "young-adult",
	"nonfiction":         "non-fiction",
	"selfhelp":           "self-help",
	"personal-growth":    "self-help",
	"bio":                "biography",
	"memoir":             "biography",
	"biographies":        "biography",
	"crime":              "mystery",
	"detective":          "mystery",
	"suspense":           "thriller",
	"historical":         "historical-fiction",
	"lit-fic":            "literary-fiction",
	"literary":           "literary-fiction",
	"graphic-novels":     "graphic-novel",
	"comics":             "graphic-novel",
	"manga":              "graphic-novel",
	"romantic-fantasy":   "romantasy",
	"horror-fiction":     "horror",
	"poetry-collections": "poetry",
}

// Canonical returns the canonical slug for a user entered genre,
// or "" when the genre is blank.
func Canonical(raw string) string {
	slug := Slugify(raw)
	if canonical, ok := aliases[slug]; ok {
		return canonical
	}
	return slug
}
