// Package slug derives stable product identifiers from display names.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics decomposes accented characters and strips the combining
// marks, so "Pixel Café" and "Pixel Cafe" produce the same slug.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize converts a free-text product name into its slug: lowercase,
// every run of non [a-z0-9] collapsed to a single hyphen, no leading or
// trailing hyphens. Deterministic and idempotent, so the slug doubles as an
// idempotent lookup-or-create key.
func Normalize(name string) string {
	if folded, _, err := transform.String(foldDiacritics, name); err == nil {
		name = folded
	}
	name = strings.ToLower(name)

	var b strings.Builder
	b.Grow(len(name))
	lastHyphen := true // suppress a leading hyphen
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
			continue
		}
		if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	return strings.TrimRight(b.String(), "-")
}
