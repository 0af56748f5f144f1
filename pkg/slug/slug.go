package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// letters that do not decompose into a base letter plus a combining mark.
var foldReplacer = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "ø", "o", "œ", "oe", "ı", "i", "ł", "l", "đ", "d",
)

// Generate creates a URL-friendly slug from the given name. Accented letters
// are folded to their ASCII base.
//
// Examples:
//   - "Crème Brûlée" → "creme-brulee"
//   - "Straße 5" → "strasse-5"
//   - "Hello   World!" → "hello-world"
func Generate(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = foldReplacer.Replace(slug)

	// Decompose and drop combining marks: "é" → "e".
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, slug); err == nil {
		slug = folded
	}

	// Replace any non-alphanumeric run with a single hyphen
	slug = slugRegexp.ReplaceAllString(slug, "-")

	return strings.Trim(slug, "-")
}
