package textutil

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DeriveTitle builds a human-readable title from a media file path.
// The base name is stripped of its extension, runs of dots, underscores,
// dashes, and whitespace collapse to single spaces, and the result is
// title-cased. Notification subjects and status listings use this so a
// render of "My.Movie.2023.mkv" reads as "My Movie 2023".
func DeriveTitle(path string) string {
	if path == "" {
		return "Unknown Input"
	}
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Unknown Input"
	}
	return cases.Title(language.Und).String(title)
}
