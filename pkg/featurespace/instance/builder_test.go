package instance

import (
	"errors"
	"testing"

	"github.com/cognicore/featurespace/pkg/featurespace/document"
	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
)

// tokenCounter emits one feature holding the number of tokens in the span
type tokenCounter struct {
	prefix string
	name   string
}

func (c tokenCounter) Prefix() string { return c.prefix }

func (c tokenCounter) Extract(doc *document.Doc, span document.Span) ([]Feature, error) {
	name := c.name
	if name == "" {
		name = c.prefix + "_tokens"
	}
	return []Feature{{Name: name, Value: float64(len(doc.TokensIn(span)))}}, nil
}

type failing struct{}

func (failing) Prefix() string { return "fail" }
func (failing) Extract(*document.Doc, document.Span) ([]Feature, error) {
	return nil, errors.New("boom")
}

func threeSentences() *document.Doc {
	return &document.Doc{
		ID:   "doc",
		Text: "One. Two two. Three three three.",
		Tokens: []document.Token{
			{Text: "One", Begin: 0, End: 3},
			{Text: "Two", Begin: 5, End: 8},
			{Text: "two", Begin: 9, End: 12},
			{Text: "Three", Begin: 14, End: 19},
			{Text: "three", Begin: 20, End: 25},
			{Text: "three", Begin: 26, End: 31},
		},
		Units: []document.Unit{
			{Span: document.Span{Begin: 0, End: 4}, Outcomes: []string{"NUM"}},
			{Span: document.Span{Begin: 5, End: 13}, Outcomes: []string{"NUM"}},
			{Span: document.Span{Begin: 14, End: 32}, Outcomes: []string{"NUM"}},
		},
		Outcomes: []string{"count"},
	}
}

func TestNewBuilderNoExtractors(t *testing.T) {
	_, err := NewBuilder(Options{})
	if !errors.Is(err, internalerr.ErrNoExtractors) {
		t.Errorf("Expected ErrNoExtractors, got %v", err)
	}
}

func TestNewBuilderDuplicatePrefix(t *testing.T) {
	_, err := NewBuilder(Options{Extractors: []Extractor{
		tokenCounter{prefix: "ngram"},
		tokenCounter{prefix: "ngram"},
	}})
	if !errors.Is(err, internalerr.ErrFeatureCollision) {
		t.Errorf("Expected ErrFeatureCollision, got %v", err)
	}
}

func TestNewBuilderShadowedPrefix(t *testing.T) {
	_, err := NewBuilder(Options{Extractors: []Extractor{
		tokenCounter{prefix: "ngram"},
		tokenCounter{prefix: "ngram_char"},
	}})
	if !errors.Is(err, internalerr.ErrFeatureCollision) {
		t.Errorf("Expected ErrFeatureCollision, got %v", err)
	}
}

func TestBuildDocumentMode(t *testing.T) {
	b, err := NewBuilder(Options{
		Extractors:    []Extractor{tokenCounter{prefix: "len"}},
		AddInstanceID: true,
	})
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	instances, err := b.Build(threeSentences())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(instances) != 1 {
		t.Fatalf("Expected 1 instance, got %d", len(instances))
	}
	inst := instances[0]
	if inst.ID != "doc" || inst.Outcomes[0] != "count" || inst.Position != NoPosition {
		t.Errorf("Unexpected instance %+v", inst)
	}
	if v, _ := inst.Features[0].Numeric(); v != 6 {
		t.Errorf("Expected 6 tokens, got %v", v)
	}
}

func TestBuildUnitMode(t *testing.T) {
	b, _ := NewBuilder(Options{
		Extractors:    []Extractor{tokenCounter{prefix: "len"}},
		Mode:          ModeUnit,
		AddInstanceID: true,
	})

	instances, err := b.Build(threeSentences())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(instances) != 3 {
		t.Fatalf("Expected 3 instances, got %d", len(instances))
	}
	if instances[2].ID != "doc_2" || instances[2].Outcomes[0] != "NUM" {
		t.Errorf("Unexpected third instance %+v", instances[2])
	}
}

func TestBuildSequenceModeKeepsOrder(t *testing.T) {
	b, _ := NewBuilder(Options{
		Extractors:    []Extractor{tokenCounter{prefix: "len"}},
		Mode:          ModeSequence,
		AddInstanceID: true,
	})

	instances, err := b.Build(threeSentences())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(instances) != 3 {
		t.Fatalf("Expected exactly 3 instances, got %d", len(instances))
	}
	for i, inst := range instances {
		if inst.Position != i {
			t.Errorf("Instance %d carries position %d", i, inst.Position)
		}
		if v, _ := inst.Features[0].Numeric(); int(v) != i+1 {
			t.Errorf("Instance %d should cover sentence %d (%d tokens), got %v", i, i, i+1, v)
		}
	}
	if instances[1].ID != "doc_0_1" {
		t.Errorf("Expected id doc_0_1, got %s", instances[1].ID)
	}
}

func TestBuildSequenceModeExplicitSequences(t *testing.T) {
	d := threeSentences()
	d.Sequences = []document.Span{{Begin: 0, End: 13}, {Begin: 14, End: 32}}

	b, _ := NewBuilder(Options{Extractors: []Extractor{tokenCounter{prefix: "len"}}, Mode: ModeSequence})
	instances, err := b.Build(d)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []struct{ seq, pos int }{{0, 0}, {0, 1}, {1, 0}}
	for i, w := range want {
		if instances[i].SequenceID != w.seq || instances[i].Position != w.pos {
			t.Errorf("Instance %d: expected (%d,%d), got (%d,%d)", i, w.seq, w.pos,
				instances[i].SequenceID, instances[i].Position)
		}
	}
}

func TestBuildCollisionAcrossExtractors(t *testing.T) {
	b, _ := NewBuilder(Options{Extractors: []Extractor{
		tokenCounter{prefix: "a", name: "shared"},
		tokenCounter{prefix: "b", name: "shared"},
	}})

	_, err := b.Build(threeSentences())
	if !errors.Is(err, internalerr.ErrFeatureCollision) {
		t.Errorf("Expected ErrFeatureCollision, got %v", err)
	}
}

func TestBuildExtractorError(t *testing.T) {
	b, _ := NewBuilder(Options{Extractors: []Extractor{failing{}}})
	if _, err := b.Build(threeSentences()); err == nil {
		t.Error("Expected extractor error to surface")
	}
}

func TestBuildOutcomeChecks(t *testing.T) {
	tests := []struct {
		name     string
		learning LearningMode
		outcomes []string
		wantErr  bool
	}{
		{"single ok", LearningSingle, []string{"pos"}, false},
		{"single none", LearningSingle, nil, true},
		{"single two", LearningSingle, []string{"pos", "neg"}, true},
		{"multi two", LearningMulti, []string{"pos", "neg"}, false},
		{"multi none", LearningMulti, nil, true},
		{"regression ok", LearningRegression, []string{"0.75"}, false},
		{"regression text", LearningRegression, []string{"high"}, true},
		{"blank label", LearningSingle, []string{" "}, true},
		{"newline label", LearningSingle, []string{"a\nb"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := NewBuilder(Options{
				Extractors:   []Extractor{tokenCounter{prefix: "len"}},
				LearningMode: tt.learning,
			})
			d := threeSentences()
			d.Outcomes = tt.outcomes

			_, err := b.Build(d)
			if tt.wantErr && !errors.Is(err, internalerr.ErrMalformedDocument) {
				t.Errorf("Expected ErrMalformedDocument, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error %v", err)
			}
		})
	}
}

func TestParseModes(t *testing.T) {
	if m, err := ParseMode("Sequence"); err != nil || m != ModeSequence {
		t.Errorf("Expected sequence, got %v %v", m, err)
	}
	if m, _ := ParseMode(""); m != ModeDocument {
		t.Errorf("Empty mode should default to document, got %v", m)
	}
	if _, err := ParseMode("paragraph"); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if _, err := ParseLearningMode("ranking"); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}
