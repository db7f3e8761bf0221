package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectExtractInspect(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "train.tsv")
	require.NoError(t, os.WriteFile(corpus, []byte("pos\tgood film\nneg\tbad film\n"), 0o644))

	cfgPath := filepath.Join(dir, "experiment.yaml")
	cfg := `
logging: {level: error}
corpus: {format: linewise}
extractors:
  - kind: word-ngram
    vocabulary: ` + filepath.Join(dir, "ngram.db") + `
    maxN: 1
connector:
  outputDir: ` + filepath.Join(dir, "train") + `
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	run := func(args ...string) string {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		require.NoError(t, cmd.Execute(), "featurespace %s", strings.Join(args, " "))
		return out.String()
	}

	run("collect", "-c", cfgPath, "--corpus", corpus)

	out := run("vocab", filepath.Join(dir, "ngram.db"), "-n", "1")
	assert.Contains(t, out, "3 keys from 2 documents")
	assert.Contains(t, out, "film")

	out = run("extract", "-c", cfgPath, "--corpus", corpus)
	assert.Contains(t, out, "train store")
	assert.Contains(t, out, "2 instances, 3 features, 2 outcomes")

	out = run("inspect", filepath.Join(dir, "train"))
	assert.Contains(t, out, `"completed": true`)
}

func TestInspectIncompleteStore(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"inspect", t.TempDir()})
	assert.ErrorContains(t, cmd.Execute(), "incomplete")
}
