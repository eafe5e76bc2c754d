// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug derives resource permalinks from page titles.
package slug

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLen is the longest permalink Permalink returns.
const MaxLen = 120

// Permalink turns a title into a lower-case URL segment: accents are
// folded to their base letter, every run of other characters becomes one
// hyphen, and the result is cut at a word boundary to MaxLen. A title
// with no letters or digits yields "".
func Permalink(title string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		title,
	)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		// Apostrophes join words rather than split them.
		if r == '\'' || r == '’' {
			continue
		}
		pendingHyphen = true
	}

	out := b.String()
	if len(out) <= MaxLen {
		return out
	}
	out = out[:MaxLen]
	if i := strings.LastIndexByte(out, '-'); i > 0 {
		out = out[:i]
	}
	return strings.TrimRight(out, "-")
}
