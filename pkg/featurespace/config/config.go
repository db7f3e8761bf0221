// Package config loads an experiment file: the extractors, the corpus, the
// connector output settings, logging and metrics. Values come from YAML with
// environment-variable overrides on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/featurespace/pkg/featurespace/connector"
	"github.com/cognicore/featurespace/pkg/featurespace/features"
	"github.com/cognicore/featurespace/pkg/featurespace/filter"
	"github.com/cognicore/featurespace/pkg/featurespace/instance"
	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
)

// Config is the top-level experiment configuration.
type Config struct {
	Logging    LoggingConfig     `yaml:"logging"`
	Corpus     CorpusConfig      `yaml:"corpus"`
	Extractors []ExtractorConfig `yaml:"extractors"`
	Connector  ConnectorConfig   `yaml:"connector"`
	Metrics    MetricsConfig     `yaml:"metrics"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CorpusConfig names the input documents.
type CorpusConfig struct {
	Path string `yaml:"path"`
	// Format is jsonl (annotated documents) or linewise (label<TAB>text)
	Format string `yaml:"format"`
	// StripHTML and Unescape clean the text column of linewise corpora.
	// Both default to true.
	StripHTML bool `yaml:"stripHtml"`
	Unescape  bool `yaml:"unescape"`
}

// ExtractorConfig is one feature extractor as written in the file. Unset
// numeric fields take the defaults of the kind.
type ExtractorConfig struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	Vocabulary string `yaml:"vocabulary"`
	TopK       *int   `yaml:"topK"`
	MinN       *int   `yaml:"minN"`
	MaxN       *int   `yaml:"maxN"`
	SkipSize   *int   `yaml:"skipSize"`
	LowerCase  *bool  `yaml:"lowerCase"`
	Stopwords  string `yaml:"stopwords"`
}

// ConnectorConfig controls instance building and the output store.
type ConnectorConfig struct {
	OutputDir     string   `yaml:"outputDir"`
	TrainingDir   string   `yaml:"trainingDir"`
	AddInstanceID bool     `yaml:"addInstanceId"`
	Filters       []string `yaml:"filters"`
	LearningMode  string   `yaml:"learningMode"`
	FeatureMode   string   `yaml:"featureMode"`
	Sparse        bool     `yaml:"sparse"`
	Testing       bool     `yaml:"testing"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Corpus formats
const (
	FormatJSONL    = "jsonl"
	FormatLinewise = "linewise"
)

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing config file %s: %v", internalerr.ErrInvalidConfig, path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Corpus: CorpusConfig{
			Format:    FormatJSONL,
			StripHTML: true,
			Unescape:  true,
		},
		Connector: ConnectorConfig{
			LearningMode: string(instance.LearningSingle),
			FeatureMode:  string(instance.ModeDocument),
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// applyEnvOverrides reads FS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("FS_CORPUS_PATH"); v != "" {
		cfg.Corpus.Path = v
	}
	if v := os.Getenv("FS_OUTPUT_DIR"); v != "" {
		cfg.Connector.OutputDir = v
	}
	if v := os.Getenv("FS_TRAINING_DIR"); v != "" {
		cfg.Connector.TrainingDir = v
	}
	if v := os.Getenv("FS_TESTING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Connector.Testing = b
		}
	}
	if v := os.Getenv("FS_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

// FeatureConfigs resolves the extractor entries against the defaults of
// their kind. Sparse follows the connector encoding.
func (c *Config) FeatureConfigs() []features.Config {
	out := make([]features.Config, len(c.Extractors))
	for i, e := range c.Extractors {
		fc := features.Defaults(e.Kind)
		fc.Name = e.Name
		fc.Vocabulary = e.Vocabulary
		fc.Stopwords = e.Stopwords
		fc.Sparse = c.Connector.Sparse
		if e.TopK != nil {
			fc.TopK = *e.TopK
		}
		if e.MinN != nil {
			fc.MinN = *e.MinN
		}
		if e.MaxN != nil {
			fc.MaxN = *e.MaxN
		}
		if e.SkipSize != nil {
			fc.SkipSize = *e.SkipSize
		}
		if e.LowerCase != nil {
			fc.LowerCase = *e.LowerCase
		}
		out[i] = fc
	}
	return out
}

// ConnectorConfig returns the output settings of an extraction run
func (c *Config) ConnectorConfig() connector.Config {
	return connector.Config{
		OutputDir:   c.Connector.OutputDir,
		TrainingDir: c.Connector.TrainingDir,
		Testing:     c.Connector.Testing,
		Sparse:      c.Connector.Sparse,
	}
}

// Validate resolves every registry tag and enum so that configuration errors
// surface before the first document is read.
func (c *Config) Validate() error {
	if err := features.ValidateAll(c.FeatureConfigs()); err != nil {
		return err
	}
	if _, err := instance.ParseMode(c.Connector.FeatureMode); err != nil {
		return err
	}
	if _, err := instance.ParseLearningMode(c.Connector.LearningMode); err != nil {
		return err
	}
	if _, err := filter.Resolve(c.Connector.Filters); err != nil {
		return err
	}
	switch strings.ToLower(c.Corpus.Format) {
	case FormatJSONL, FormatLinewise:
	default:
		return fmt.Errorf("%w: corpus format %q", internalerr.ErrInvalidConfig, c.Corpus.Format)
	}
	return nil
}
