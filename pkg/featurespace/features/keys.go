package features

import (
	"fmt"

	"github.com/cognicore/featurespace/pkg/featurespace/document"
	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
	"github.com/cognicore/featurespace/pkg/featurespace/ngram"
	"github.com/cognicore/featurespace/pkg/featurespace/stoplist"
)

// KeySource produces the vocabulary keys of a span. The collector counts
// them, the extractor looks them up; sharing the source keeps both passes
// byte-identical.
type KeySource interface {
	Keys(doc *document.Doc, span document.Span) []string
}

type factory func(cfg Config) (KeySource, error)

var registry = map[string]factory{
	KindWordNGram:    newWordNGrams,
	KindCharNGram:    newCharNGrams,
	KindCharSkipGram: newCharSkipGrams,
	KindDependency:   newDependencies,
}

func lookup(kind string) (factory, error) {
	f, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", internalerr.ErrUnknownKind, kind)
	}
	return f, nil
}

// NewKeySource resolves the key source of cfg
func NewKeySource(cfg Config) (KeySource, error) {
	f, err := lookup(cfg.Kind)
	if err != nil {
		return nil, err
	}
	return f(cfg)
}

type wordNGrams struct {
	minN, maxN int
	lower      bool
	stops      *stoplist.List
}

func newWordNGrams(cfg Config) (KeySource, error) {
	src := &wordNGrams{minN: cfg.MinN, maxN: cfg.MaxN, lower: cfg.LowerCase}
	if cfg.Stopwords != "" {
		stops, err := stoplist.Load(cfg.Stopwords)
		if err != nil {
			return nil, fmt.Errorf("%w: load stopwords for %q: %v", internalerr.ErrInvalidConfig, cfg.Prefix(), err)
		}
		src.stops = stops
	}
	return src, nil
}

func (w *wordNGrams) Keys(doc *document.Doc, span document.Span) []string {
	tokens := doc.TokensIn(span)
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = ngram.Fold(t.Text, w.lower)
	}
	var drop func([]string) bool
	if w.stops.Len() > 0 {
		drop = w.stops.AllStop
	}
	return ngram.FilteredWordNGrams(words, w.minN, w.maxN, drop)
}

type charSkipGrams struct {
	minN, maxN, skip int
	lower            bool
}

func newCharNGrams(cfg Config) (KeySource, error) {
	return &charSkipGrams{minN: cfg.MinN, maxN: cfg.MaxN, lower: cfg.LowerCase}, nil
}

func newCharSkipGrams(cfg Config) (KeySource, error) {
	return &charSkipGrams{minN: cfg.MinN, maxN: cfg.MaxN, skip: cfg.SkipSize, lower: cfg.LowerCase}, nil
}

func (c *charSkipGrams) Keys(doc *document.Doc, span document.Span) []string {
	var keys []string
	for _, t := range doc.TokensIn(span) {
		keys = append(keys, ngram.SkipGrams(ngram.Fold(t.Text, c.lower), c.minN, c.maxN, c.skip)...)
	}
	return keys
}

type dependencies struct {
	lower bool
}

func newDependencies(cfg Config) (KeySource, error) {
	return &dependencies{lower: cfg.LowerCase}, nil
}

func (d *dependencies) Keys(doc *document.Doc, span document.Span) []string {
	deps := doc.DependenciesIn(span)
	keys := make([]string, 0, len(deps))
	for _, dep := range deps {
		keys = append(keys, ngram.DependencyKey(doc.Covered(dep.Governor), dep.Type, doc.Covered(dep.Dependent), d.lower))
	}
	return keys
}
