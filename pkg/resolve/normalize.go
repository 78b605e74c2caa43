// pkg/resolve/normalize.go
package resolve

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalizeBasic uppercases and collapses whitespace runs. This is the
// form all lookup keys use.
func normalizeBasic(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), " ")
}

// diacriticStripper decomposes, drops combining marks, and recomposes, so
// DOÑA ANA and DONA ANA normalize identically
var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// aliasKey applies the full alias normalization: diacritic stripping,
// punctuation removal, abbreviation expansion, and administrative-suffix
// stripping. Matching retries on this form before the approximate tier.
func aliasKey(s string, tables *Tables) string {
	s = normalizeBasic(s)

	if stripped, _, err := transform.String(diacriticStripper, s); err == nil {
		s = stripped
	}

	s = strings.Map(func(r rune) rune {
		switch r {
		case '.', ',', '\'', '’':
			return -1
		}
		return r
	}, s)

	tokens := strings.Fields(s)
	expanded := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if expansion, ok := tables.Abbreviations[token]; ok {
			expanded = append(expanded, expansion)
			continue
		}
		expanded = append(expanded, token)
	}

	// strip trailing suffix tokens, but never the whole name
	for len(expanded) > 1 {
		last := expanded[len(expanded)-1]
		if !isSuffix(last, tables.Suffixes) {
			break
		}
		expanded = expanded[:len(expanded)-1]
	}

	return strings.Join(expanded, " ")
}

func isSuffix(token string, suffixes []string) bool {
	for _, s := range suffixes {
		if token == s {
			return true
		}
	}
	return false
}
