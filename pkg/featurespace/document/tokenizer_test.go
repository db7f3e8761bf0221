package document

import (
	"testing"
)

func TestTokenizerPreservesCase(t *testing.T) {
	tok := NewTokenizer()
	tokens := tok.Tokenize("The Dog ran")

	want := []string{"The", "Dog", "ran"}
	if len(tokens) != len(want) {
		t.Fatalf("Expected %d tokens, got %d: %v", len(want), len(tokens), tokens)
	}
	for i, w := range want {
		if tokens[i].Text != w {
			t.Errorf("Token %d: expected %q, got %q", i, w, tokens[i].Text)
		}
	}
}

func TestTokenizerOffsets(t *testing.T) {
	text := "Café résumé, naïve!"
	tokens := NewTokenizer().Tokenize(text)

	for _, tk := range tokens {
		if text[tk.Begin:tk.End] != tk.Text {
			t.Errorf("Offsets [%d,%d) do not cover %q", tk.Begin, tk.End, tk.Text)
		}
	}
	if len(tokens) != 5 {
		t.Errorf("Expected 3 words and 2 punctuation tokens, got %v", tokens)
	}
}

func TestTokenizerHyphens(t *testing.T) {
	tokens := NewTokenizer().Tokenize("--state-of-the-art--")
	if len(tokens) != 1 || tokens[0].Text != "state-of-the-art" {
		t.Errorf("Expected [state-of-the-art], got %v", tokens)
	}
}

func TestTokenizerEmpty(t *testing.T) {
	if len(NewTokenizer().Tokenize("")) != 0 {
		t.Error("Empty text should produce 0 tokens")
	}
	if len(NewTokenizer().Tokenize("   \t\n")) != 0 {
		t.Error("Whitespace should produce 0 tokens")
	}
}

func TestAnnotateKeepsExistingTokens(t *testing.T) {
	d := Doc{ID: "x", Text: "a b", Tokens: []Token{{Text: "a", Begin: 0, End: 1}}}
	NewTokenizer().Annotate(&d)
	if len(d.Tokens) != 1 {
		t.Error("Annotate must not replace existing tokens")
	}

	d2 := Doc{ID: "y", Text: "a b"}
	NewTokenizer().Annotate(&d2)
	if len(d2.Tokens) != 2 {
		t.Errorf("Expected 2 tokens, got %v", d2.Tokens)
	}
}
