package features

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/cognicore/featurespace/internal/logger"
	"github.com/cognicore/featurespace/pkg/featurespace/corpus"
	"github.com/cognicore/featurespace/pkg/featurespace/document"
	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
	"github.com/cognicore/featurespace/pkg/featurespace/metrics"
	"github.com/cognicore/featurespace/pkg/featurespace/vocab"
)

// Collector runs the first pass for one extractor configuration: it counts
// the keys of every document into its own vocabulary.
type Collector struct {
	cfg     Config
	keys    KeySource
	store   *vocab.Store
	tok     *document.Tokenizer
	docs    int64
	skipped int64
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewCollector creates a collector with an empty vocabulary
func NewCollector(cfg Config, m *metrics.Metrics) (*Collector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	keys, err := NewKeySource(cfg)
	if err != nil {
		return nil, err
	}
	return &Collector{
		cfg:     cfg,
		keys:    keys,
		store:   vocab.New(),
		tok:     document.NewTokenizer(),
		metrics: m,
		log:     logger.WithComponent("collector").With("extractor", cfg.Prefix()),
	}, nil
}

// Collect counts one document. All keys are gathered before anything is
// committed, so a malformed document leaves the vocabulary as it was. The
// returned error wraps ErrMalformedDocument for such documents.
func (c *Collector) Collect(doc *document.Doc) error {
	c.tok.Annotate(doc)
	if err := doc.Validate(); err != nil {
		c.skipped++
		c.metrics.DocSkipped("collect", c.cfg.Prefix())
		return err
	}

	batch := c.store.Begin()
	for _, k := range c.keys.Keys(doc, doc.Whole()) {
		batch.Inc(k)
	}
	if err := batch.Commit(); err != nil {
		return err
	}

	c.docs++
	c.metrics.DocProcessed("collect", c.cfg.Prefix())
	return nil
}

// Run consumes a whole corpus pass. Malformed documents are logged and
// skipped; any other error ends the pass.
func (c *Collector) Run(ctx context.Context, r corpus.Reader) error {
	return corpus.Each(ctx, r, func(doc *document.Doc) error {
		err := c.Collect(doc)
		if errors.Is(err, internalerr.ErrMalformedDocument) {
			c.log.Warn("skipping document", "doc", doc.ID, "error", err)
			return nil
		}
		return err
	})
}

// Store returns the vocabulary collected so far
func (c *Collector) Store() *vocab.Store {
	return c.store
}

// Documents returns the number of counted documents
func (c *Collector) Documents() int64 {
	return c.docs
}

// Skipped returns the number of skipped documents
func (c *Collector) Skipped() int64 {
	return c.skipped
}

// Meta describes the collected vocabulary
func (c *Collector) Meta() vocab.Meta {
	return vocab.Meta{
		Name:      c.cfg.Prefix(),
		Kind:      c.cfg.Kind,
		LowerCase: c.cfg.LowerCase,
		MinN:      c.cfg.MinN,
		MaxN:      c.cfg.MaxN,
		SkipSize:  c.cfg.SkipSize,
		Documents: c.docs,
		Skipped:   c.skipped,
	}
}

// Save persists the vocabulary to the configured path
func (c *Collector) Save(ctx context.Context) error {
	if err := vocab.Save(ctx, c.cfg.Vocabulary, c.store, c.Meta()); err != nil {
		return err
	}
	c.metrics.VocabularySize(c.cfg.Prefix(), c.store.Len())
	c.log.Info("vocabulary saved",
		"path", c.cfg.Vocabulary,
		"keys", c.store.Len(),
		"documents", c.docs,
		"skipped", c.skipped)
	return nil
}

// CollectAll runs one collector per configuration, each over its own pass of
// the corpus. Collectors own disjoint vocabulary files and run concurrently;
// the first fatal error cancels the others.
func CollectAll(ctx context.Context, cfgs []Config, open corpus.OpenFunc, m *metrics.Metrics) error {
	if err := ValidateAll(cfgs); err != nil {
		return internalerr.Abort(internalerr.PhaseInit, err)
	}

	collectors := make([]*Collector, len(cfgs))
	for i, cfg := range cfgs {
		c, err := NewCollector(cfg, m)
		if err != nil {
			return internalerr.Abort(internalerr.PhaseInit, err)
		}
		collectors[i] = c
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range collectors {
		c := c
		g.Go(func() error {
			r, err := open()
			if err != nil {
				return internalerr.Abort(internalerr.PhaseInit, err)
			}
			defer r.Close()

			if err := c.Run(gctx, r); err != nil {
				return internalerr.Abort(internalerr.PhaseProcess, fmt.Errorf("collect %s: %w", c.cfg.Prefix(), err))
			}
			return internalerr.Abort(internalerr.PhasePersist, c.Save(gctx))
		})
	}
	return g.Wait()
}
