package features

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
)

// Extractor kinds
const (
	KindWordNGram    = "word-ngram"
	KindCharNGram    = "char-ngram"
	KindCharSkipGram = "char-skipgram"
	KindDependency   = "dependency"
)

// Config is the resolved configuration of one extractor. The same Config
// drives the collection pass and the extraction pass.
type Config struct {
	// Name identifies the extractor and prefixes its feature names
	Name string
	Kind string
	// Vocabulary is the path of the vocabulary file
	Vocabulary string
	TopK       int
	MinN       int
	MaxN       int
	SkipSize   int
	LowerCase  bool
	Sparse     bool
	// Stopwords is an optional stoplist file (word-ngram only)
	Stopwords string
}

// Defaults returns the default configuration for a kind
func Defaults(kind string) Config {
	cfg := Config{
		Kind:      kind,
		TopK:      500,
		MinN:      1,
		MaxN:      3,
		LowerCase: true,
	}
	switch kind {
	case KindCharNGram:
		cfg.MinN = 2
	case KindCharSkipGram:
		cfg.MinN = 2
		cfg.SkipSize = 2
	case KindDependency:
		cfg.MinN, cfg.MaxN = 0, 0
	}
	return cfg
}

var defaultPrefixes = map[string]string{
	KindWordNGram:    "ngram",
	KindCharNGram:    "charngram",
	KindCharSkipGram: "charskipngram",
	KindDependency:   "dep",
}

// Prefix returns the feature-name prefix of the extractor
func (c Config) Prefix() string {
	if c.Name != "" {
		return c.Name
	}
	return defaultPrefixes[c.Kind]
}

// Validate checks the configuration and resolves its kind in the registry
func (c Config) Validate() error {
	if _, err := lookup(c.Kind); err != nil {
		return err
	}
	if strings.TrimSpace(c.Vocabulary) == "" {
		return fmt.Errorf("%w: extractor %q has no vocabulary path", internalerr.ErrInvalidConfig, c.Prefix())
	}
	if strings.ContainsAny(c.Prefix(), " \t\r\n") {
		return fmt.Errorf("%w: extractor name %q contains whitespace", internalerr.ErrInvalidConfig, c.Prefix())
	}
	if c.TopK < 0 {
		return fmt.Errorf("%w: extractor %q topK must not be negative", internalerr.ErrInvalidConfig, c.Prefix())
	}
	if c.Kind == KindDependency {
		return nil
	}
	if c.MinN < 1 || c.MaxN < c.MinN {
		return fmt.Errorf("%w: extractor %q needs 1 <= minN <= maxN, got %d..%d",
			internalerr.ErrInvalidConfig, c.Prefix(), c.MinN, c.MaxN)
	}
	if c.SkipSize < 0 {
		return fmt.Errorf("%w: extractor %q skip size must not be negative", internalerr.ErrInvalidConfig, c.Prefix())
	}
	return nil
}

// ValidateAll validates every configuration and rejects duplicate vocabulary
// files and prefixes
func ValidateAll(cfgs []Config) error {
	if len(cfgs) == 0 {
		return internalerr.ErrNoExtractors
	}
	paths := make(map[string]string)
	prefixes := make(map[string]struct{})
	for _, c := range cfgs {
		if err := c.Validate(); err != nil {
			return err
		}
		if other, dup := paths[c.Vocabulary]; dup {
			return fmt.Errorf("%w: extractors %q and %q share vocabulary %s",
				internalerr.ErrInvalidConfig, other, c.Prefix(), c.Vocabulary)
		}
		paths[c.Vocabulary] = c.Prefix()
		if _, dup := prefixes[c.Prefix()]; dup {
			return fmt.Errorf("%w: prefix %q configured twice", internalerr.ErrFeatureCollision, c.Prefix())
		}
		prefixes[c.Prefix()] = struct{}{}
	}
	return nil
}

// Kinds returns the registered extractor kinds, sorted
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
