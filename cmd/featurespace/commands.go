package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/featurespace/internal/logger"
	"github.com/cognicore/featurespace/pkg/featurespace"
	"github.com/cognicore/featurespace/pkg/featurespace/config"
	"github.com/cognicore/featurespace/pkg/featurespace/fstore"
	"github.com/cognicore/featurespace/pkg/featurespace/metrics"
	"github.com/cognicore/featurespace/pkg/featurespace/vocab"
)

type options struct {
	configPath string
	corpusPath string
	outputDir  string
	trainDir   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "featurespace",
		Short:         "Build vocabularies and feature stores for text classification experiments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "experiment.yaml", "experiment configuration file")
	root.PersistentFlags().StringVar(&opts.corpusPath, "corpus", "", "corpus file (overrides corpus.path)")

	collect := &cobra.Command{
		Use:   "collect",
		Short: "First pass: count n-grams and dependencies into vocabulary files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd.Context(), opts)
		},
	}

	extract := &cobra.Command{
		Use:   "extract",
		Short: "Second pass: write instances into a feature store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	extract.Flags().StringVarP(&opts.outputDir, "output", "o", "", "output directory (overrides connector.outputDir)")
	extract.Flags().StringVar(&opts.trainDir, "train", "", "completed train store; makes this a test run")

	var top int
	vocabCmd := &cobra.Command{
		Use:   "vocab <file>",
		Short: "Print the most frequent entries of a vocabulary file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVocabulary(cmd.Context(), cmd.OutOrStdout(), args[0], top)
		},
	}
	vocabCmd.Flags().IntVarP(&top, "top", "n", 20, "number of entries (0 = all)")

	inspect := &cobra.Command{
		Use:   "inspect <store-dir>",
		Short: "Print the manifest of a completed feature store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printManifest(cmd.OutOrStdout(), args[0])
		},
	}

	root.AddCommand(collect, extract, vocabCmd, inspect)
	return root
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// setup loads the configuration, applies flag overrides and starts logging
// and metrics
func setup(opts *options) (*config.Config, *metrics.Metrics, func(), error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if opts.corpusPath != "" {
		cfg.Corpus.Path = opts.corpusPath
	}
	if opts.outputDir != "" {
		cfg.Connector.OutputDir = opts.outputDir
	}
	if opts.trainDir != "" {
		cfg.Connector.TrainingDir = opts.trainDir
		cfg.Connector.Testing = true
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	m := metrics.New(nil)
	stop := func() {}
	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Addr)
		stop = func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(ctx)
		}
	}
	return cfg, m, stop, nil
}

func runCollect(ctx context.Context, opts *options) error {
	cfg, m, stop, err := setup(opts)
	if err != nil {
		return err
	}
	defer stop()

	open, err := featurespace.OpenCorpus(cfg.Corpus)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(ctx)
	defer cancel()
	return featurespace.Collect(ctx, cfg, open, m)
}

func runExtract(ctx context.Context, w io.Writer, opts *options) error {
	cfg, m, stop, err := setup(opts)
	if err != nil {
		return err
	}
	defer stop()

	open, err := featurespace.OpenCorpus(cfg.Corpus)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(ctx)
	defer cancel()

	manifest, err := featurespace.Extract(ctx, cfg, open, m)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s store %s: %d instances, %d features, %d outcomes (run %s)\n",
		manifest.Split, cfg.Connector.OutputDir, manifest.Instances, manifest.FeatureNames, manifest.Outcomes, manifest.RunID)
	return nil
}

func printVocabulary(ctx context.Context, w io.Writer, path string, top int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, meta, err := vocab.Load(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s (%s, lowerCase=%v): %d keys from %d documents, %d skipped\n",
		meta.Name, meta.Kind, meta.LowerCase, store.Len(), meta.Documents, meta.Skipped)
	for _, e := range store.TopK(top).Entries() {
		fmt.Fprintf(w, "%8d  %s\n", e.Count, e.Key)
	}
	return nil
}

func printManifest(w io.Writer, dir string) error {
	m, err := fstore.OpenCompleted(dir)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
