package features

import (
	"context"
	"fmt"

	"github.com/cognicore/featurespace/pkg/featurespace/document"
	"github.com/cognicore/featurespace/pkg/featurespace/instance"
	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
	"github.com/cognicore/featurespace/pkg/featurespace/vocab"
)

// Extractor is the second-pass side of a configuration: it projects a span
// onto the top-K vocabulary collected in the first pass.
type Extractor struct {
	cfg    Config
	keys   KeySource
	vocab  *vocab.Store
	order  []string
	names  map[string]string
	prefix string
}

// NewExtractor loads the configured vocabulary, checks that it was collected
// with the same settings and truncates it to TopK
func NewExtractor(ctx context.Context, cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	store, meta, err := vocab.Load(ctx, cfg.Vocabulary)
	if err != nil {
		return nil, err
	}
	if err := checkMeta(cfg, meta); err != nil {
		return nil, err
	}
	return NewExtractorFromStore(cfg, store)
}

// NewExtractorFromStore builds an extractor over an in-memory vocabulary
func NewExtractorFromStore(cfg Config, store *vocab.Store) (*Extractor, error) {
	keys, err := NewKeySource(cfg)
	if err != nil {
		return nil, err
	}

	top := store.TopK(cfg.TopK)
	e := &Extractor{
		cfg:    cfg,
		keys:   keys,
		vocab:  top,
		order:  top.Keys(),
		prefix: cfg.Prefix(),
	}
	e.names = make(map[string]string, len(e.order))
	for _, k := range e.order {
		e.names[k] = e.FeatureName(k)
	}
	return e, nil
}

func checkMeta(cfg Config, meta vocab.Meta) error {
	mismatch := func(field string, want, got any) error {
		return fmt.Errorf("%w: vocabulary %s was collected with %s=%v, extractor %q uses %v",
			internalerr.ErrInvalidConfig, cfg.Vocabulary, field, got, cfg.Prefix(), want)
	}
	if meta.Kind != cfg.Kind {
		return mismatch("kind", cfg.Kind, meta.Kind)
	}
	if meta.LowerCase != cfg.LowerCase {
		return mismatch("lowerCase", cfg.LowerCase, meta.LowerCase)
	}
	if cfg.Kind == KindDependency {
		return nil
	}
	if meta.MinN != cfg.MinN || meta.MaxN != cfg.MaxN {
		return mismatch("n-range", fmt.Sprintf("%d..%d", cfg.MinN, cfg.MaxN), fmt.Sprintf("%d..%d", meta.MinN, meta.MaxN))
	}
	if cfg.Kind == KindCharSkipGram && meta.SkipSize != cfg.SkipSize {
		return mismatch("skipSize", cfg.SkipSize, meta.SkipSize)
	}
	return nil
}

// Prefix implements instance.Extractor
func (e *Extractor) Prefix() string {
	return e.prefix
}

// FeatureName returns the feature name of a vocabulary key
func (e *Extractor) FeatureName(key string) string {
	return e.prefix + "_" + key
}

// FeatureNames returns every feature name the extractor can emit, in
// vocabulary rank order
func (e *Extractor) FeatureNames() []string {
	names := make([]string, len(e.order))
	for i, k := range e.order {
		names[i] = e.names[k]
	}
	return names
}

// Vocabulary returns the truncated, read-only vocabulary
func (e *Extractor) Vocabulary() *vocab.Store {
	return e.vocab
}

// Extract implements instance.Extractor. Values are occurrence counts of
// each vocabulary key inside span. Dense extractors emit every vocabulary
// key, sparse ones only the keys that occur.
func (e *Extractor) Extract(doc *document.Doc, span document.Span) ([]instance.Feature, error) {
	counts := make(map[string]int)
	for _, k := range e.keys.Keys(doc, span) {
		if _, ok := e.names[k]; ok {
			counts[k]++
		}
	}

	feats := make([]instance.Feature, 0, len(counts))
	for _, k := range e.order {
		c := counts[k]
		if c == 0 && e.cfg.Sparse {
			continue
		}
		feats = append(feats, instance.Feature{Name: e.names[k], Value: float64(c)})
	}
	return feats, nil
}

// Open builds one extractor per configuration
func Open(ctx context.Context, cfgs []Config) ([]instance.Extractor, error) {
	if err := ValidateAll(cfgs); err != nil {
		return nil, err
	}
	out := make([]instance.Extractor, 0, len(cfgs))
	for _, cfg := range cfgs {
		e, err := NewExtractor(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("extractor %s: %w", cfg.Prefix(), err)
		}
		out = append(out, e)
	}
	return out, nil
}
