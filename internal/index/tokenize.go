package index

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Character n-gram lengths. Grams are taken per token, padded with a
// boundary marker so prefixes and suffixes stay distinguishable.
const (
	minCharGram = 3
	maxCharGram = 5
)

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips accents, and collapses every non-alphanumeric
// run to a single space. Listing text and queries go through the exact same
// normalization so n-gram spaces line up.
func Normalize(s string) string {
	s = strings.ToLower(s)
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokenize splits normalized text into tokens.
func Tokenize(s string) []string {
	return strings.Fields(Normalize(s))
}

// charNgrams emits boundary-padded character n-grams (3..5) for each token.
func charNgrams(tokens []string) []string {
	var grams []string
	for _, tok := range tokens {
		padded := " " + tok + " "
		r := []rune(padded)
		for n := minCharGram; n <= maxCharGram; n++ {
			for i := 0; i+n <= len(r); i++ {
				grams = append(grams, string(r[i:i+n]))
			}
		}
	}
	return grams
}

// wordNgrams emits unigrams and bigrams.
func wordNgrams(tokens []string) []string {
	grams := make([]string, 0, len(tokens)*2)
	grams = append(grams, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		grams = append(grams, tokens[i]+" "+tokens[i+1])
	}
	return grams
}

// termFreq counts occurrences of each gram.
func termFreq(grams []string) map[string]int {
	tf := make(map[string]int, len(grams))
	for _, g := range grams {
		tf[g]++
	}
	return tf
}
