package hktype

import (
	"regexp"
	"strings"

	unorm "golang.org/x/text/unicode/norm"
)

var space = regexp.MustCompile(`\s+`)

// NormalizeSource canonicalizes a sourceName attribute for storage and lookup.
// Device names arrive in mixed Unicode forms (an iPhone named with a
// decomposed umlaut does not naively equal its composed twin), so the value
// is NFC-normalized and whitespace is collapsed.
func NormalizeSource(s string) string {
	s = unorm.NFC.String(strings.TrimSpace(s))
	s = space.ReplaceAllString(s, " ")
	return s
}
