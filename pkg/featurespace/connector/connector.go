// Package connector streams documents through the instance builder into a
// feature store and finalizes the store once the corpus is exhausted.
package connector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/cognicore/featurespace/internal/logger"
	"github.com/cognicore/featurespace/pkg/featurespace/corpus"
	"github.com/cognicore/featurespace/pkg/featurespace/document"
	"github.com/cognicore/featurespace/pkg/featurespace/filter"
	"github.com/cognicore/featurespace/pkg/featurespace/fstore"
	"github.com/cognicore/featurespace/pkg/featurespace/instance"
	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
	"github.com/cognicore/featurespace/pkg/featurespace/metrics"
	"github.com/cognicore/featurespace/pkg/featurespace/reconcile"
)

// Config controls where and how a run is written
type Config struct {
	OutputDir string
	// TrainingDir is the completed train store a test run reconciles against
	TrainingDir string
	Testing     bool
	Sparse      bool
}

// Validate checks the configuration. Test runs need a completed train store.
func (c Config) Validate() error {
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("%w: output directory is required", internalerr.ErrInvalidConfig)
	}
	if !c.Testing {
		return nil
	}
	if strings.TrimSpace(c.TrainingDir) == "" {
		return fmt.Errorf("%w: test runs need a training directory", internalerr.ErrInvalidConfig)
	}
	if filepath.Clean(c.TrainingDir) == filepath.Clean(c.OutputDir) {
		return fmt.Errorf("%w: test output would overwrite the training store", internalerr.ErrInvalidConfig)
	}
	if _, err := fstore.OpenCompleted(c.TrainingDir); err != nil {
		return err
	}
	return nil
}

func (c Config) split() string {
	if c.Testing {
		return fstore.SplitTest
	}
	return fstore.SplitTrain
}

func (c Config) encoding() string {
	if c.Sparse {
		return fstore.EncodingSparse
	}
	return fstore.EncodingDense
}

type state int

const (
	open state = iota
	completed
	aborted
)

// Connector owns one extraction run. It is not safe for concurrent use.
type Connector struct {
	cfg      Config
	builder  *instance.Builder
	chain    *filter.Chain
	tok      *document.Tokenizer
	writer   *fstore.Writer
	acc      *Accumulator
	rec      *reconcile.Reconciler
	metrics  *metrics.Metrics
	log      *slog.Logger
	runID    string
	started  time.Time
	docs     int
	skipped  int
	state    state
	abortErr error
}

// New validates the configuration and opens the output store
func New(cfg Config, b *instance.Builder, chain *filter.Chain, m *metrics.Metrics) (*Connector, error) {
	if b == nil {
		return nil, internalerr.Abort(internalerr.PhaseInit, internalerr.ErrNoExtractors)
	}
	if err := cfg.Validate(); err != nil {
		return nil, internalerr.Abort(internalerr.PhaseInit, err)
	}
	w, err := fstore.Create(cfg.OutputDir)
	if err != nil {
		return nil, internalerr.Abort(internalerr.PhaseInit, err)
	}

	runID := fstore.NewRunID()
	c := &Connector{
		cfg:     cfg,
		builder: b,
		chain:   chain.WithMetrics(m),
		tok:     document.NewTokenizer(),
		writer:  w,
		acc:     NewAccumulator(),
		rec:     reconcile.New(m),
		metrics: m,
		runID:   runID,
		started: time.Now(),
		log: logger.WithComponent("connector").With(
			"run", runID,
			"split", cfg.split()),
	}
	c.log.Info("extraction started", "output", cfg.OutputDir, "mode", b.Mode(), "encoding", cfg.encoding())
	return c, nil
}

// RunID returns the run identifier written to the manifest
func (c *Connector) RunID() string {
	return c.runID
}

// Accumulator exposes the names and outcomes tracked so far
func (c *Connector) Accumulator() *Accumulator {
	return c.acc
}

// Process turns one document into instances and writes them. Malformed
// documents are logged and skipped; write errors abort the run.
func (c *Connector) Process(ctx context.Context, doc *document.Doc) error {
	if err := c.usable(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return c.fail(internalerr.PhaseProcess, err)
	}

	c.tok.Annotate(doc)
	instances, err := c.build(doc)
	if errors.Is(err, internalerr.ErrMalformedDocument) {
		c.skipped++
		c.metrics.DocSkipped("extract", "")
		c.log.Warn("skipping document", "doc", doc.ID, "error", err)
		return nil
	}
	if err != nil {
		return c.fail(internalerr.PhaseProcess, err)
	}

	for _, inst := range instances {
		if err := c.writer.Write(inst); err != nil {
			return c.fail(internalerr.PhaseProcess, err)
		}
		c.acc.Add(inst)
	}
	c.docs++
	c.metrics.DocProcessed("extract", "")
	c.metrics.InstancesWritten(c.cfg.split(), len(instances))
	return nil
}

func (c *Connector) build(doc *document.Doc) ([]instance.Instance, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return c.builder.Build(doc)
}

// Run processes every document of r and completes the run
func (c *Connector) Run(ctx context.Context, r corpus.Reader) (fstore.Manifest, error) {
	err := corpus.Each(ctx, r, func(doc *document.Doc) error {
		return c.Process(ctx, doc)
	})
	if err != nil {
		return fstore.Manifest{}, c.fail(internalerr.PhaseProcess, err)
	}
	return c.Complete(ctx)
}

// Complete finalizes the store: filters, outcome and feature-name files,
// reconciliation for test runs and finally the completed manifest.
func (c *Connector) Complete(ctx context.Context) (fstore.Manifest, error) {
	if err := c.usable(); err != nil {
		return fstore.Manifest{}, err
	}
	if err := c.writer.Close(); err != nil {
		return fstore.Manifest{}, c.fail(internalerr.PhasePersist, err)
	}

	dir := c.cfg.OutputDir
	instances := c.writer.Count()
	kept, err := c.chain.Apply(ctx, filepath.Join(dir, fstore.InstancesFile), c.cfg.Testing)
	if err != nil {
		return fstore.Manifest{}, c.fail(internalerr.PhaseFilter, err)
	}
	if kept >= 0 {
		instances = kept
	}

	outcomes := c.acc.Outcomes()
	if err := fstore.WriteLines(filepath.Join(dir, fstore.OutcomesFile), outcomes); err != nil {
		return fstore.Manifest{}, c.fail(internalerr.PhasePersist, err)
	}

	manifest := fstore.Manifest{
		RunID:     c.runID,
		Split:     c.cfg.split(),
		Encoding:  c.cfg.encoding(),
		Instances: instances,
		Outcomes:  len(outcomes),
		Skipped:   c.skipped,
		CreatedAt: time.Now().UTC(),
		Completed: true,
	}

	if c.cfg.Testing {
		res, err := c.rec.Reconcile(dir, c.cfg.TrainingDir, c.cfg.Sparse)
		if err != nil {
			return fstore.Manifest{}, c.fail(internalerr.PhaseReconcile, err)
		}
		manifest.FeatureNames = len(res.Names)
		manifest.Reconciled = res.State.String()
	} else {
		names := c.acc.Names()
		if err := c.rec.Persist(dir, names, c.acc.Columns()); err != nil {
			return fstore.Manifest{}, c.fail(internalerr.PhasePersist, err)
		}
		manifest.FeatureNames = len(names)
	}

	if err := fstore.WriteManifest(dir, manifest); err != nil {
		return fstore.Manifest{}, c.fail(internalerr.PhasePersist, err)
	}
	c.state = completed

	c.log.Info("extraction completed",
		"documents", c.docs,
		"skipped", c.skipped,
		"instances", manifest.Instances,
		"features", manifest.FeatureNames,
		"outcomes", manifest.Outcomes,
		"duration", time.Since(c.started))
	return manifest, nil
}

// Abort discards the partial output. Later calls fail with ErrAborted.
func (c *Connector) Abort() {
	if c.state != open {
		return
	}
	c.state = aborted
	if err := c.writer.Discard(); err != nil {
		c.log.Error("discard partial output", "error", err)
	}
}

func (c *Connector) fail(phase internalerr.Phase, err error) error {
	err = internalerr.Abort(phase, err)
	c.abortErr = err
	c.Abort()
	c.log.Error("extraction aborted", "error", err)
	return err
}

func (c *Connector) usable() error {
	switch c.state {
	case completed:
		return fmt.Errorf("%w: run already completed", internalerr.ErrAborted)
	case aborted:
		if c.abortErr != nil {
			return fmt.Errorf("%w: %v", internalerr.ErrAborted, c.abortErr)
		}
		return internalerr.ErrAborted
	}
	return nil
}
