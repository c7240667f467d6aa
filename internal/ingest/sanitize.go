package ingest

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Sanitize prepares chunk text for storage as vector metadata: invalid
// UTF-8 sequences (including unpaired surrogates) and Unicode
// noncharacters are dropped, control characters except tab, newline and
// carriage return become spaces, and the result is NFC-normalized and
// trimmed.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size

		if r == utf8.RuneError && size == 1 {
			continue
		}
		if isNonCharacter(r) {
			continue
		}
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(norm.NFC.String(b.String()))
}

// isNonCharacter reports the 66 Unicode noncharacters: U+FDD0..U+FDEF
// and the last two code points of every plane.
func isNonCharacter(r rune) bool {
	if r >= 0xFDD0 && r <= 0xFDEF {
		return true
	}
	return r&0xFFFE == 0xFFFE
}
