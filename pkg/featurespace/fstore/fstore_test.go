package fstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/featurespace/pkg/featurespace/instance"
	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
)

func sample(id string, v float64) instance.Instance {
	return instance.Instance{
		ID:       id,
		Features: []instance.Feature{{Name: "ngram_a", Value: v}, {Name: "pos", Value: "NN"}},
		Outcomes: []string{"x"},
		Position: instance.NoPosition,
	}
}

func TestWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	w, err := Create(dir)
	require.NoError(t, err)

	require.NoError(t, w.Write(sample("1", 2)))
	require.NoError(t, w.Write(sample("2", 0)))
	require.NoError(t, w.Close())
	assert.Equal(t, 2, w.Count())

	got, err := ReadAll(filepath.Join(dir, InstancesFile))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	v, ok := got[0].Features[0].Numeric()
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, "NN", got[0].Features[1].Value)
	assert.Equal(t, instance.NoPosition, got[1].Position)

	assert.ErrorIs(t, w.Write(sample("3", 1)), internalerr.ErrWrite)
}

func TestRewriteDropsAndModifies(t *testing.T) {
	dir := t.TempDir()
	w, _ := Create(dir)
	w.Write(sample("1", 1))
	w.Write(sample("2", 5))
	w.Close()

	path := filepath.Join(dir, InstancesFile)
	kept, err := Rewrite(path, func(inst *instance.Instance) (bool, error) {
		inst.Outcomes = []string{"y"}
		return inst.ID != "1", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, kept)

	got, _ := ReadAll(path)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"y"}, got[0].Outcomes)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestRewriteErrorKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	w, _ := Create(dir)
	w.Write(sample("1", 1))
	w.Close()

	path := filepath.Join(dir, InstancesFile)
	boom := errors.New("boom")
	_, err := Rewrite(path, func(*instance.Instance) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)

	got, _ := ReadAll(path)
	assert.Len(t, got, 1)
}

func TestLinesSortedUnique(t *testing.T) {
	path := filepath.Join(t.TempDir(), FeatureNamesFile)
	require.NoError(t, WriteLines(path, []string{"b", "a", "b"}))

	got, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestOrderedLinesKeepOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), ColumnsFile)
	require.NoError(t, WriteOrderedLines(path, []string{"ngram_good", "ngram_bad", "ngram_good"}))

	got, err := ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ngram_good", "ngram_bad"}, got)
}

func TestManifestCompletion(t *testing.T) {
	dir := t.TempDir()

	_, err := OpenCompleted(dir)
	assert.ErrorIs(t, err, internalerr.ErrIncomplete)

	require.NoError(t, WriteManifest(dir, Manifest{RunID: NewRunID(), Split: SplitTrain}))
	_, err = OpenCompleted(dir)
	assert.ErrorIs(t, err, internalerr.ErrIncomplete)

	require.NoError(t, WriteManifest(dir, Manifest{RunID: NewRunID(), Split: SplitTrain, Completed: true}))
	m, err := OpenCompleted(dir)
	require.NoError(t, err)
	assert.Len(t, m.RunID, 26)

	// A new run invalidates the old manifest
	w, err := Create(dir)
	require.NoError(t, err)
	defer w.Discard()
	_, err = OpenCompleted(dir)
	assert.ErrorIs(t, err, internalerr.ErrIncomplete)
}

func TestDiscard(t *testing.T) {
	dir := t.TempDir()
	w, _ := Create(dir)
	w.Write(sample("1", 1))
	require.NoError(t, w.Discard())

	_, err := os.Stat(filepath.Join(dir, InstancesFile))
	assert.True(t, os.IsNotExist(err))
}

func TestRunIDsAreOrdered(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.Less(t, a, b)
}
