package featurespace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cognicore/featurespace/pkg/featurespace/config"
	"github.com/cognicore/featurespace/pkg/featurespace/fstore"
	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
)

func experiment(t *testing.T, root string) *config.Config {
	t.Helper()
	topK := 3
	return &config.Config{
		Corpus: config.CorpusConfig{Format: config.FormatLinewise},
		Extractors: []config.ExtractorConfig{
			{Kind: "word-ngram", Vocabulary: filepath.Join(root, "vocab", "ngram.db"), TopK: &topK},
			{Kind: "char-ngram", Vocabulary: filepath.Join(root, "vocab", "char.db"), TopK: &topK},
		},
		Connector: config.ConnectorConfig{
			OutputDir:     filepath.Join(root, "train"),
			AddInstanceID: true,
			Filters:       []string{"drop-empty"},
			LearningMode:  "single",
			FeatureMode:   "document",
		},
	}
}

func writeCorpus(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
}

func TestTrainThenTest(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	trainPath := filepath.Join(root, "train.tsv")
	testPath := filepath.Join(root, "test.tsv")
	writeCorpus(t, trainPath, "pos\tGood film, good cast\nneg\tBad film\n")
	writeCorpus(t, testPath, "pos\tA <b>good</b> plot\nneg\tboring\n")

	cfg := experiment(t, root)
	cfg.Corpus.Path = trainPath
	open, err := OpenCorpus(cfg.Corpus)
	if err != nil {
		t.Fatalf("OpenCorpus: %v", err)
	}

	if err := Collect(ctx, cfg, open, nil); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	train, err := Extract(ctx, cfg, open, nil)
	if err != nil {
		t.Fatalf("Extract train: %v", err)
	}
	if train.Instances != 2 || train.FeatureNames != 6 {
		t.Errorf("Unexpected train manifest: %+v", train)
	}

	cfg.Corpus.Path = testPath
	cfg.Corpus.StripHTML = true
	cfg.Connector.TrainingDir = cfg.Connector.OutputDir
	cfg.Connector.OutputDir = filepath.Join(root, "test")
	cfg.Connector.Testing = true
	open, _ = OpenCorpus(cfg.Corpus)

	test, err := Extract(ctx, cfg, open, nil)
	if err != nil {
		t.Fatalf("Extract test: %v", err)
	}
	// drop-empty only applies to training data
	if test.Instances != 2 {
		t.Errorf("Expected 2 test instances, got %d", test.Instances)
	}
	if test.Reconciled != "matched" {
		t.Errorf("Same vocabularies should match, got %q", test.Reconciled)
	}

	trainNames, _ := fstore.ReadLines(filepath.Join(root, "train", fstore.FeatureNamesFile))
	instances, err := fstore.ReadAll(filepath.Join(root, "test", fstore.InstancesFile))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	for _, inst := range instances {
		if len(inst.Features) != len(trainNames) {
			t.Errorf("Instance %s has %d features, want %d", inst.ID, len(inst.Features), len(trainNames))
		}
	}
}

func TestExtractWithoutVocabulary(t *testing.T) {
	root := t.TempDir()
	cfg := experiment(t, root)
	cfg.Corpus.Path = filepath.Join(root, "none.tsv")
	open, _ := OpenCorpus(cfg.Corpus)

	_, err := Extract(context.Background(), cfg, open, nil)
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig for missing vocabulary, got %v", err)
	}
	var re *internalerr.RunError
	if !errors.As(err, &re) || re.Phase != internalerr.PhaseInit {
		t.Errorf("Expected init phase, got %v", err)
	}
}

func TestOpenCorpus(t *testing.T) {
	if _, err := OpenCorpus(config.CorpusConfig{}); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for empty path, got %v", err)
	}
	if _, err := OpenCorpus(config.CorpusConfig{Path: "x", Format: "xml"}); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for unknown format, got %v", err)
	}
	if open, err := OpenCorpus(config.CorpusConfig{Path: "x"}); err != nil || open == nil {
		t.Errorf("jsonl is the default format: %v", err)
	}
}

func TestCollectIsDeterministic(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	path := filepath.Join(root, "c.tsv")
	writeCorpus(t, path, "a\tone two two three three three\n")

	cfg := experiment(t, root)
	cfg.Corpus.Path = path
	open, _ := OpenCorpus(cfg.Corpus)

	read := func() []string {
		if err := Collect(ctx, cfg, open, nil); err != nil {
			t.Fatalf("Collect: %v", err)
		}
		if _, err := Extract(ctx, cfg, open, nil); err != nil {
			t.Fatalf("Extract: %v", err)
		}
		names, _ := fstore.ReadLines(filepath.Join(cfg.Connector.OutputDir, fstore.FeatureNamesFile))
		return names
	}

	first := read()
	second := read()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Repeated runs differ: %v vs %v", first, second)
	}
}
