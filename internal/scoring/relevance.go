package scoring

import (
	"strings"
	"unicode"
)

// RelevanceFunc scores how well the top passages cover the query, in [0, 1].
type RelevanceFunc func(query string, passages []string) float64

var stopWords = map[string]bool{
	"what": true, "is": true, "the": true, "for": true, "a": true, "an": true,
	"to": true, "how": true, "do": true, "i": true, "can": true,
}

// ContentWords lower-cases query, strips punctuation from each word and drops stop words.
func ContentWords(query string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, field := range strings.Fields(strings.ToLower(query)) {
		w := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, field)
		if w == "" || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// TokenOverlap returns the best fraction of query content words found in any passage.
// A query of stop words only scores generic.
func TokenOverlap(generic float64) RelevanceFunc {
	return func(query string, passages []string) float64 {
		if len(passages) == 0 {
			return 0
		}
		words := ContentWords(query)
		if len(words) == 0 {
			return generic
		}
		best := 0.0
		for _, p := range passages {
			content := strings.ToLower(p)
			matched := 0
			for _, w := range words {
				if strings.Contains(content, w) {
					matched++
				}
			}
			if f := float64(matched) / float64(len(words)); f > best {
				best = f
			}
		}
		return best
	}
}
