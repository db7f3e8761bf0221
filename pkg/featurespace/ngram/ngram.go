// Package ngram generates the string keys that are counted during the
// collection pass and looked up during extraction. Both passes go through
// these functions, so a key produced in one is byte-identical in the other.
package ngram

import (
	"strings"
)

// Separator joins the tokens of a word n-gram
const Separator = "_"

// Fold lower-cases s when lower is set
func Fold(s string, lower bool) string {
	if lower {
		return strings.ToLower(s)
	}
	return s
}

// WordNGrams returns every contiguous token n-gram with length in
// [minN, maxN], in text order.
func WordNGrams(tokens []string, minN, maxN int) []string {
	return FilteredWordNGrams(tokens, minN, maxN, nil)
}

// FilteredWordNGrams is WordNGrams with a drop predicate applied to the
// tokens of each candidate n-gram. A nil drop keeps everything.
func FilteredWordNGrams(tokens []string, minN, maxN int, drop func([]string) bool) []string {
	if minN < 1 {
		minN = 1
	}
	var grams []string
	for i := range tokens {
		for n := minN; n <= maxN && i+n <= len(tokens); n++ {
			if drop != nil && drop(tokens[i:i+n]) {
				continue
			}
			grams = append(grams, strings.Join(tokens[i:i+n], Separator))
		}
	}
	return grams
}

// CharNGrams returns every contiguous character n-gram of word with length
// in [minN, maxN]. Lengths are counted in runes.
func CharNGrams(word string, minN, maxN int) []string {
	return SkipGrams(word, minN, maxN, 0)
}

// SkipGrams returns every character subsequence of word with length in
// [minN, maxN] that skips at most skip characters in total between its first
// and last character. skip = 0 yields the contiguous n-grams.
func SkipGrams(word string, minN, maxN, skip int) []string {
	if minN < 1 {
		minN = 1
	}
	if skip < 0 {
		skip = 0
	}
	runes := []rune(word)
	var grams []string
	buf := make([]rune, 0, maxN)

	var extend func(last, budget int)
	extend = func(last, budget int) {
		if len(buf) >= minN {
			grams = append(grams, string(buf))
		}
		if len(buf) == maxN {
			return
		}
		for gap := 0; gap <= budget; gap++ {
			next := last + 1 + gap
			if next >= len(runes) {
				return
			}
			buf = append(buf, runes[next])
			extend(next, budget-gap)
			buf = buf[:len(buf)-1]
		}
	}

	for start := range runes {
		buf = append(buf[:0], runes[start])
		extend(start, skip)
	}
	return grams
}

// DependencyKey builds the governor-relation-dependent key of one edge.
// Folding touches the covered texts only, never the relation label.
func DependencyKey(governor, relation, dependent string, lower bool) string {
	return Fold(governor, lower) + "-" + relation + "-" + Fold(dependent, lower)
}
