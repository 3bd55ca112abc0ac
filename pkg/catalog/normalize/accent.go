package normalize

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentStripper decomposes to NFD, drops combining marks, and
// recomposes, turning "café" into "cafe" and "Müller" into "Muller".
var accentStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// stripAccents removes diacritics from s. Input that fails to
// transform (invalid UTF-8 tails, etc.) is returned unchanged; the
// downstream character filter handles whatever is left.
func stripAccents(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	return out
}
