// Package featurespace wires the two passes of an experiment: collection
// builds the vocabularies, extraction turns documents into a feature store.
package featurespace

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognicore/featurespace/pkg/featurespace/config"
	"github.com/cognicore/featurespace/pkg/featurespace/connector"
	"github.com/cognicore/featurespace/pkg/featurespace/corpus"
	"github.com/cognicore/featurespace/pkg/featurespace/features"
	"github.com/cognicore/featurespace/pkg/featurespace/filter"
	"github.com/cognicore/featurespace/pkg/featurespace/fstore"
	"github.com/cognicore/featurespace/pkg/featurespace/instance"
	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
	"github.com/cognicore/featurespace/pkg/featurespace/metrics"
)

// OpenCorpus returns a reopenable source for the configured corpus
func OpenCorpus(cfg config.CorpusConfig) (corpus.OpenFunc, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("%w: corpus path is required", internalerr.ErrInvalidConfig)
	}
	switch strings.ToLower(cfg.Format) {
	case config.FormatLinewise:
		return corpus.Linewise(cfg.Path, corpus.LinewiseOptions{StripHTML: cfg.StripHTML, UnescapeEscapes: cfg.Unescape}), nil
	case config.FormatJSONL, "":
		return corpus.JSONL(cfg.Path), nil
	}
	return nil, fmt.Errorf("%w: corpus format %q", internalerr.ErrInvalidConfig, cfg.Format)
}

// Collect runs the first pass and writes one vocabulary per extractor
func Collect(ctx context.Context, cfg *config.Config, open corpus.OpenFunc, m *metrics.Metrics) error {
	if err := cfg.Validate(); err != nil {
		return internalerr.Abort(internalerr.PhaseInit, err)
	}
	return features.CollectAll(ctx, cfg.FeatureConfigs(), open, m)
}

// NewConnector loads the vocabularies and prepares an extraction run
func NewConnector(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*connector.Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, internalerr.Abort(internalerr.PhaseInit, err)
	}

	extractors, err := features.Open(ctx, cfg.FeatureConfigs())
	if err != nil {
		return nil, internalerr.Abort(internalerr.PhaseInit, err)
	}
	mode, _ := instance.ParseMode(cfg.Connector.FeatureMode)
	learning, _ := instance.ParseLearningMode(cfg.Connector.LearningMode)
	b, err := instance.NewBuilder(instance.Options{
		Extractors:    extractors,
		Mode:          mode,
		LearningMode:  learning,
		AddInstanceID: cfg.Connector.AddInstanceID,
	})
	if err != nil {
		return nil, internalerr.Abort(internalerr.PhaseInit, err)
	}

	var chain *filter.Chain
	if len(cfg.Connector.Filters) > 0 {
		if chain, err = filter.Resolve(cfg.Connector.Filters); err != nil {
			return nil, internalerr.Abort(internalerr.PhaseInit, err)
		}
	}
	return connector.New(cfg.ConnectorConfig(), b, chain, m)
}

// Extract runs the second pass over one corpus pass and returns the manifest
// of the finished store
func Extract(ctx context.Context, cfg *config.Config, open corpus.OpenFunc, m *metrics.Metrics) (fstore.Manifest, error) {
	c, err := NewConnector(ctx, cfg, m)
	if err != nil {
		return fstore.Manifest{}, err
	}
	r, err := open()
	if err != nil {
		c.Abort()
		return fstore.Manifest{}, internalerr.Abort(internalerr.PhaseInit, err)
	}
	defer r.Close()
	return c.Run(ctx, r)
}
