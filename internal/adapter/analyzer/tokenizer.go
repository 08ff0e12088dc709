// Package analyzer turns medical prose into terms for the hash embedder
// and estimates prompt token cost.
package analyzer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenizer lowercases text into terms. Hyphenated compounds such as
// beta-blocker or covid-19 stay whole, numbers are kept (type 2, 500 mg),
// and negations survive stopword removal.
type Tokenizer struct {
	stopwords map[string]struct{}
}

func NewTokenizer() *Tokenizer {
	return &Tokenizer{stopwords: stopwordSet()}
}

// Tokenize returns the content terms of text in order.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	terms := make([]string, 0, len(words))

	for _, w := range words {
		w = strings.ToLower(w)
		if _, stop := t.stopwords[w]; stop {
			continue
		}
		if utf8.RuneCountInString(w) == 1 && !unicode.IsDigit([]rune(w)[0]) {
			continue
		}
		terms = append(terms, w)
	}
	return terms
}

// CountTokens estimates how many model tokens text costs. Subword
// vocabularies cut long clinical terms into pieces, so a word is charged
// one token per four characters, at least one.
func (t *Tokenizer) CountTokens(text string) int {
	n := 0
	for _, w := range splitWords(text) {
		n += max(1, (utf8.RuneCountInString(w)+3)/4)
	}
	return n
}

// splitWords cuts text at anything that is not a letter or digit. A
// hyphen between two word characters joins them.
func splitWords(text string) []string {
	var words []string
	runes := []rune(text)
	start := -1

	for i, r := range runes {
		word := isWordRune(r) ||
			(r == '-' && start >= 0 && i+1 < len(runes) && isWordRune(runes[i+1]))
		switch {
		case word && start < 0:
			start = i
		case !word && start >= 0:
			words = append(words, string(runes[start:i]))
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, string(runes[start:]))
	}
	return words
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// stopwordSet holds English function words. "no", "not", "without" and
// "never" are left out: "no fever" and "fever" must not look alike.
func stopwordSet() map[string]struct{} {
	stops := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "so",
		"of", "in", "on", "at", "by", "for", "from", "to", "with", "into",
		"is", "are", "was", "were", "be", "been", "being", "am",
		"has", "have", "had", "do", "does", "did",
		"it", "its", "this", "that", "these", "those", "there",
		"he", "she", "his", "her", "they", "their", "them", "we", "our",
		"you", "your", "i", "me", "my",
		"can", "could", "will", "would", "should", "shall", "may", "might", "must",
		"which", "who", "whom", "what", "when", "where", "why", "how",
		"as", "than", "also", "very", "such", "some", "any", "each",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
