package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugStrip = regexp.MustCompile("[^a-z0-9]+")

// GenerateSlug folds a title into a URL-safe slug. Diacritics are stripped
// so "Paramecium Négatif" becomes "paramecium-negatif".
func GenerateSlug(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	text, _, _ = transform.String(t, text)

	text = strings.ToLower(text)
	text = slugStrip.ReplaceAllString(text, "-")
	text = strings.Trim(text, "-")

	return text
}
