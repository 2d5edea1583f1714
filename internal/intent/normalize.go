package intent

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deaccent strips combining marks so "kuchyně" and "kuchyne" compare
// equal. Czech speech recognizers are inconsistent about diacritics.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// stopwords are filler tokens removed before matching.
var stopwords = map[string]bool{
	"prosim": true,
	"hele":   true,
	"ok":     true,
	"diky":   true,
	"dik":    true,
	"ahoj":   true,
	"cau":    true,
}

// synonyms collapses every verb variant onto one canonical token per
// action so the rule patterns stay small.
var synonyms = map[string]string{
	"rozsvit":   "zapni",
	"rozsvitte": "zapni",
	"zapnout":   "zapni",
	"zapnete":   "zapni",
	"spust":     "zapni",
	"spustit":   "zapni",

	"zhasni":   "vypni",
	"zhasnete": "vypni",
	"vypnout":  "vypni",
	"vypnete":  "vypni",

	"ztlum":  "ztis",
	"ztisit": "ztis",

	"nahlas": "zesil",
	"pridej": "zesil",
}

// Normalize lowercases, strips diacritics, and trims the input.
func Normalize(s string) string {
	out, _, err := transform.String(deaccent, strings.ToLower(s))
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.TrimSpace(out)
}

// Tokenize splits normalized text on non-alphanumeric runs.
func Tokenize(s string) []string {
	return strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// cleanup produces the canonical matching text: normalized, stopwords
// removed, synonyms collapsed, single-spaced.
func cleanup(s string) string {
	tokens := Tokenize(s)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if stopwords[tok] {
			continue
		}
		if canon, ok := synonyms[tok]; ok {
			tok = canon
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}
