package instance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cognicore/featurespace/pkg/featurespace/document"
	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
)

// Extractor turns the part of a document covered by span into features.
// Every extractor owns a prefix; all names it emits start with it.
type Extractor interface {
	Prefix() string
	Extract(doc *document.Doc, span document.Span) ([]Feature, error)
}

// Options configures a Builder
type Options struct {
	Extractors    []Extractor
	Mode          Mode
	LearningMode  LearningMode
	AddInstanceID bool
}

// Builder assembles instances from the output of all configured extractors
type Builder struct {
	extractors []Extractor
	mode       Mode
	learning   LearningMode
	addID      bool
}

// NewBuilder validates the extractor set and creates a builder
func NewBuilder(opts Options) (*Builder, error) {
	if len(opts.Extractors) == 0 {
		return nil, internalerr.ErrNoExtractors
	}

	prefixes := make(map[string]struct{}, len(opts.Extractors))
	for _, e := range opts.Extractors {
		p := e.Prefix()
		if p == "" {
			return nil, fmt.Errorf("%w: extractor without prefix", internalerr.ErrInvalidConfig)
		}
		if _, dup := prefixes[p]; dup {
			return nil, fmt.Errorf("%w: prefix %q used by two extractors", internalerr.ErrFeatureCollision, p)
		}
		prefixes[p] = struct{}{}
	}
	for p := range prefixes {
		for q := range prefixes {
			if p != q && strings.HasPrefix(q, p+"_") {
				return nil, fmt.Errorf("%w: prefix %q shadows %q", internalerr.ErrFeatureCollision, p, q)
			}
		}
	}

	mode := opts.Mode
	if mode == "" {
		mode = ModeDocument
	}
	learning := opts.LearningMode
	if learning == "" {
		learning = LearningSingle
	}

	return &Builder{
		extractors: opts.Extractors,
		mode:       mode,
		learning:   learning,
		addID:      opts.AddInstanceID,
	}, nil
}

// Mode returns the feature mode of the builder
func (b *Builder) Mode() Mode {
	return b.mode
}

// Build turns one document into its instances. Sequence-mode instances come
// back in input order with positions 0..n-1 per sequence.
func (b *Builder) Build(doc *document.Doc) ([]Instance, error) {
	switch b.mode {
	case ModeUnit:
		return b.buildUnits(doc)
	case ModeSequence:
		return b.buildSequences(doc)
	default:
		inst, err := b.build(doc, doc.Whole(), doc.Outcomes)
		if err != nil {
			return nil, err
		}
		if b.addID {
			inst.ID = doc.ID
		}
		return []Instance{inst}, nil
	}
}

func (b *Builder) buildUnits(doc *document.Doc) ([]Instance, error) {
	instances := make([]Instance, 0, len(doc.Units))
	for u, unit := range doc.Units {
		inst, err := b.build(doc, unit.Span, unit.Outcomes)
		if err != nil {
			return nil, fmt.Errorf("unit %d: %w", u, err)
		}
		if b.addID {
			inst.ID = doc.ID + "_" + strconv.Itoa(u)
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

func (b *Builder) buildSequences(doc *document.Doc) ([]Instance, error) {
	sequences := doc.Sequences
	if len(sequences) == 0 {
		sequences = []document.Span{doc.Whole()}
	}

	var instances []Instance
	for s, seq := range sequences {
		pos := 0
		for _, unit := range doc.Units {
			if unit.Begin < seq.Begin || unit.End > seq.End {
				continue
			}
			inst, err := b.build(doc, unit.Span, unit.Outcomes)
			if err != nil {
				return nil, fmt.Errorf("sequence %d position %d: %w", s, pos, err)
			}
			inst.SequenceID = s
			inst.Position = pos
			if b.addID {
				inst.ID = doc.ID + "_" + strconv.Itoa(s) + "_" + strconv.Itoa(pos)
			}
			instances = append(instances, inst)
			pos++
		}
	}
	return instances, nil
}

func (b *Builder) build(doc *document.Doc, span document.Span, outcomes []string) (Instance, error) {
	if err := b.checkOutcomes(doc.ID, outcomes); err != nil {
		return Instance{}, err
	}

	inst := Instance{
		Outcomes: append([]string(nil), outcomes...),
		Position: NoPosition,
	}
	seen := make(map[string]string)
	for _, e := range b.extractors {
		feats, err := e.Extract(doc, span)
		if err != nil {
			return Instance{}, fmt.Errorf("extractor %s: %w", e.Prefix(), err)
		}
		for _, f := range feats {
			if owner, dup := seen[f.Name]; dup {
				return Instance{}, fmt.Errorf("%w: %q from %s and %s", internalerr.ErrFeatureCollision, f.Name, owner, e.Prefix())
			}
			seen[f.Name] = e.Prefix()
			inst.Features = append(inst.Features, f)
		}
	}
	return inst, nil
}

func (b *Builder) checkOutcomes(docID string, outcomes []string) error {
	switch b.learning {
	case LearningMulti:
		if len(outcomes) == 0 {
			return internalerr.Malformed(docID, "multi-label instance without outcome")
		}
	case LearningRegression:
		if len(outcomes) != 1 {
			return internalerr.Malformed(docID, "regression instance needs exactly one outcome, got %d", len(outcomes))
		}
		if _, err := strconv.ParseFloat(outcomes[0], 64); err != nil {
			return internalerr.Malformed(docID, "regression outcome %q is not a number", outcomes[0])
		}
	default:
		if len(outcomes) != 1 {
			return internalerr.Malformed(docID, "single-label instance needs exactly one outcome, got %d", len(outcomes))
		}
	}
	for _, o := range outcomes {
		if strings.TrimSpace(o) == "" || strings.ContainsAny(o, "\r\n") {
			return internalerr.Malformed(docID, "invalid outcome label %q", o)
		}
	}
	return nil
}
