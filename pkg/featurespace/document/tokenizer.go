package document

import (
	"unicode"
	"unicode/utf8"
)

// Tokenizer is the fallback segmenter for documents that arrive without
// token annotations. Case is preserved: folding is an extractor option and
// must happen in exactly one place.
type Tokenizer struct{}

// NewTokenizer creates a tokenizer
func NewTokenizer() *Tokenizer {
	return &Tokenizer{}
}

// Tokenize splits text on everything that is not a letter, digit, hyphen or
// apostrophe and keeps byte offsets.
func (t *Tokenizer) Tokenize(text string) []Token {
	var tokens []Token
	start := -1

	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = appendToken(tokens, text, start, i)
			start = -1
		}
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			end := i + utf8.RuneLen(r)
			tokens = append(tokens, Token{Text: text[i:end], Begin: i, End: end})
		}
	}

	// Don't forget the last token
	if start >= 0 {
		tokens = appendToken(tokens, text, start, len(text))
	}

	return tokens
}

func appendToken(tokens []Token, text string, begin, end int) []Token {
	// Strip leading and trailing hyphens the way they are never part of a word
	for begin < end && text[begin] == '-' {
		begin++
	}
	for end > begin && text[end-1] == '-' {
		end--
	}
	if begin == end {
		return tokens
	}
	return append(tokens, Token{Text: text[begin:end], Begin: begin, End: end})
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' || r == '\''
}

// Annotate fills in tokens when the document has none. Documents that already
// carry tokens are left untouched.
func (t *Tokenizer) Annotate(d *Doc) {
	if len(d.Tokens) > 0 || d.Text == "" {
		return
	}
	d.Tokens = t.Tokenize(d.Text)
}
