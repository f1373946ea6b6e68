package niche

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	minWordLen   = 4
	maxKeywords  = 4
	keyWords     = 3
	minKeyLength = 2
)

var stopWords = map[string]struct{}{
	"para": {}, "con": {}, "sin": {}, "nueva": {}, "nuevo": {}, "original": {}, "oficial": {},
	"mejor": {}, "gratis": {}, "envio": {}, "full": {}, "oferta": {}, "hot": {}, "sale": {},
}

// ExtractKey derives the niche key from a listing title. The second return
// value is false when the title has fewer than two significant words.
func ExtractKey(title string) (string, bool) {
	words := significantWords(title)
	if len(words) < minKeyLength {
		return "", false
	}
	if len(words) > keyWords {
		words = words[:keyWords]
	}
	return strings.Join(words, " "), true
}

func significantWords(title string) []string {
	folded := foldDiacritics(strings.ToLower(title))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}

	var words []string
	for _, w := range strings.Fields(b.String()) {
		if len(w) < minWordLen {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		words = append(words, w)
		if len(words) == maxKeywords {
			break
		}
	}
	return words
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
