// Package tagger derives system tags from resource text.
package tagger

import (
	"sort"
	"strings"
	"unicode"
)

// MaxTags bounds the number of system tags per resource.
const MaxTags = 5

var stopwords = map[string]bool{
	"about": true, "after": true, "also": true, "and": true, "are": true,
	"because": true, "been": true, "before": true, "being": true, "between": true,
	"both": true, "but": true, "can": true, "could": true, "does": true,
	"doing": true, "for": true, "from": true, "had": true, "has": true,
	"have": true, "having": true, "her": true, "here": true, "him": true,
	"his": true, "how": true, "into": true, "its": true, "just": true,
	"like": true, "more": true, "most": true, "not": true, "now": true,
	"only": true, "other": true, "our": true, "out": true, "over": true,
	"own": true, "same": true, "she": true, "should": true, "some": true,
	"such": true, "than": true, "that": true, "the": true, "their": true,
	"them": true, "then": true, "there": true, "these": true, "they": true,
	"this": true, "those": true, "through": true, "under": true, "use": true,
	"using": true, "very": true, "was": true, "were": true, "what": true,
	"when": true, "where": true, "which": true, "while": true, "who": true,
	"why": true, "will": true, "with": true, "would": true, "you": true,
	"your": true,
}

// Extract returns up to MaxTags keywords from the text, most frequent
// first, breaking frequency ties alphabetically so the result is stable.
func Extract(text string) []string {
	counts := make(map[string]int)
	for _, word := range tokenize(text) {
		if len(word) < 4 || stopwords[word] {
			continue
		}
		counts[word]++
	}
	if len(counts) == 0 {
		return nil
	}

	words := make([]string, 0, len(counts))
	for word := range counts {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > MaxTags {
		words = words[:MaxTags]
	}
	return words
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
