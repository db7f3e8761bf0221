package document

import (
	"strings"

	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
)

// Doc is one annotated document as handed over by the annotation pipeline.
// Offsets are byte offsets into Text.
type Doc struct {
	ID           string       `json:"id"`
	Text         string       `json:"text"`
	Tokens       []Token      `json:"tokens,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
	Units        []Unit       `json:"units,omitempty"`
	Sequences    []Span       `json:"sequences,omitempty"`
	Outcomes     []string     `json:"outcomes,omitempty"`
}

// Token is a covered piece of text
type Token struct {
	Text  string `json:"text"`
	Begin int    `json:"begin"`
	End   int    `json:"end"`
}

// Dependency is a directed edge between two tokens, addressed by index
type Dependency struct {
	Governor  int    `json:"governor"`
	Dependent int    `json:"dependent"`
	Type      string `json:"type"`
}

// Span is a half-open byte range [Begin, End)
type Span struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// Contains reports whether the token lies fully inside the span
func (s Span) Contains(t Token) bool {
	return t.Begin >= s.Begin && t.End <= s.End
}

// Unit is a classification unit inside a document, e.g. a sentence
type Unit struct {
	Span
	Outcomes []string `json:"outcomes,omitempty"`
}

// Whole returns the span covering the entire text
func (d *Doc) Whole() Span {
	return Span{Begin: 0, End: len(d.Text)}
}

// Covered returns the text of a token
func (d *Doc) Covered(i int) string {
	return d.Tokens[i].Text
}

// TokensIn returns the tokens that lie inside span, in document order
func (d *Doc) TokensIn(span Span) []Token {
	var out []Token
	for _, t := range d.Tokens {
		if span.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}

// DependenciesIn returns the edges whose governor and dependent both lie
// inside span
func (d *Doc) DependenciesIn(span Span) []Dependency {
	var out []Dependency
	for _, dep := range d.Dependencies {
		if span.Contains(d.Tokens[dep.Governor]) && span.Contains(d.Tokens[dep.Dependent]) {
			out = append(out, dep)
		}
	}
	return out
}

// Validate checks that all annotations point inside the document
func (d *Doc) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return internalerr.Malformed(d.ID, "document id is required")
	}

	for i, t := range d.Tokens {
		if t.Begin < 0 || t.End < t.Begin || t.End > len(d.Text) {
			return internalerr.Malformed(d.ID, "token %d has invalid offsets [%d,%d)", i, t.Begin, t.End)
		}
		if d.Text[t.Begin:t.End] != t.Text {
			return internalerr.Malformed(d.ID, "token %d text %q does not match covered text", i, t.Text)
		}
		if strings.ContainsAny(t.Text, "\r\n") {
			return internalerr.Malformed(d.ID, "token %d text %q spans a line break", i, t.Text)
		}
	}

	for i, dep := range d.Dependencies {
		if dep.Governor < 0 || dep.Governor >= len(d.Tokens) {
			return internalerr.Malformed(d.ID, "dependency %d governor %d out of range", i, dep.Governor)
		}
		if dep.Dependent < 0 || dep.Dependent >= len(d.Tokens) {
			return internalerr.Malformed(d.ID, "dependency %d dependent %d out of range", i, dep.Dependent)
		}
		if strings.TrimSpace(dep.Type) == "" {
			return internalerr.Malformed(d.ID, "dependency %d has no relation type", i)
		}
		if strings.ContainsAny(dep.Type, "\r\n") {
			return internalerr.Malformed(d.ID, "dependency %d relation %q spans a line break", i, dep.Type)
		}
	}

	for i, u := range d.Units {
		if !d.validSpan(u.Span) {
			return internalerr.Malformed(d.ID, "unit %d has invalid span [%d,%d)", i, u.Begin, u.End)
		}
	}
	for i, s := range d.Sequences {
		if !d.validSpan(s) {
			return internalerr.Malformed(d.ID, "sequence %d has invalid span [%d,%d)", i, s.Begin, s.End)
		}
	}

	return nil
}

func (d *Doc) validSpan(s Span) bool {
	return s.Begin >= 0 && s.End >= s.Begin && s.End <= len(d.Text)
}
