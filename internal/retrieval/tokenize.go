package retrieval

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const minTokenRunes = 3

var stopwords = map[string]struct{}{
	// es
	"con": {}, "del": {}, "las": {}, "los": {}, "una": {}, "unas": {}, "unos": {},
	"por": {}, "para": {}, "que": {}, "qué": {}, "como": {}, "cómo": {}, "sus": {},
	"son": {}, "entre": {}, "sobre": {}, "este": {}, "esta": {}, "estos": {},
	"estas": {}, "ese": {}, "esa": {}, "pero": {}, "más": {}, "muy": {}, "sin": {},
	"hay": {}, "fue": {}, "ser": {}, "cual": {}, "cuál": {}, "quién": {}, "quien": {},
	"también": {}, "donde": {}, "dónde": {}, "cuando": {}, "cuándo": {}, "porque": {},
	"tiene": {}, "puedo": {}, "hace": {},
	// en
	"the": {}, "and": {}, "for": {}, "with": {}, "what": {}, "who": {}, "how": {},
	"are": {}, "was": {}, "his": {}, "her": {}, "its": {}, "this": {}, "that": {},
	"from": {}, "does": {}, "which": {}, "into": {}, "about": {},
}

// Tokenize NFC-normalizes and lowercases text, splits it on anything that is
// not a letter, digit or combining mark and drops short tokens and stopwords.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(norm.NFC.String(text)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minTokenRunes {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// TermFrequencies counts occurrences of each token.
func TermFrequencies(tokens []string) map[string]float64 {
	tf := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}
