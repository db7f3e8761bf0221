// Package fstore persists instances of one split to a directory:
// instances.jsonl, feature-names.txt, outcomes.txt and manifest.json. A
// directory only counts as a feature store once its manifest says completed.
package fstore

import (
	"bufio"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/featurespace/pkg/featurespace/instance"
	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
)

// File names inside a store directory
const (
	InstancesFile    = "instances.jsonl"
	FeatureNamesFile = "feature-names.txt"
	// ColumnsFile holds the dense column order of a train store
	ColumnsFile      = "columns.txt"
	OutcomesFile     = "outcomes.txt"
	ManifestFile     = "manifest.json"
)

// Split of a store
const (
	SplitTrain = "train"
	SplitTest  = "test"
)

// Encoding of the instances file
const (
	EncodingDense  = "dense"
	EncodingSparse = "sparse"
)

// Manifest describes a finished store
type Manifest struct {
	RunID        string    `json:"runId"`
	Split        string    `json:"split"`
	Encoding     string    `json:"encoding"`
	Instances    int       `json:"instances"`
	FeatureNames int       `json:"featureNames"`
	Outcomes     int       `json:"outcomes"`
	Skipped      int       `json:"skipped"`
	Reconciled   string    `json:"reconciled,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	Completed    bool      `json:"completed"`
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID returns a new sortable run identifier
func NewRunID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Now(), entropy).String()
}

// Writer streams instances to instances.jsonl
type Writer struct {
	dir string
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
	n   int
}

// Create prepares dir for a new run. A stale manifest from an earlier run is
// removed first so the directory is never mistaken for a finished store.
func Create(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create store dir: %v", internalerr.ErrWrite, err)
	}
	if err := os.Remove(filepath.Join(dir, ManifestFile)); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: remove stale manifest: %v", internalerr.ErrWrite, err)
	}

	f, err := os.Create(filepath.Join(dir, InstancesFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrWrite, err)
	}
	buf := bufio.NewWriter(f)
	return &Writer{dir: dir, f: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

// Write appends one instance
func (w *Writer) Write(inst instance.Instance) error {
	if w.f == nil {
		return fmt.Errorf("%w: writer closed", internalerr.ErrWrite)
	}
	if err := w.enc.Encode(inst); err != nil {
		return fmt.Errorf("%w: encode instance: %v", internalerr.ErrWrite, err)
	}
	w.n++
	return nil
}

// Count returns the number of instances written
func (w *Writer) Count() int {
	return w.n
}

// Dir returns the store directory
func (w *Writer) Dir() string {
	return w.dir
}

// Close flushes and closes the instance file
func (w *Writer) Close() error {
	if w.f == nil {
		return nil
	}
	f := w.f
	w.f = nil
	if err := w.buf.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("%w: flush instances: %v", internalerr.ErrWrite, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close instances: %v", internalerr.ErrWrite, err)
	}
	return nil
}

// Discard closes the writer and removes the partial instance file
func (w *Writer) Discard() error {
	if w.f != nil {
		w.f.Close()
		w.f = nil
	}
	err := os.Remove(filepath.Join(w.dir, InstancesFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Each streams the instances in path to fn
func Each(path string, fn func(instance.Instance) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	for n := 1; ; n++ {
		var inst instance.Instance
		if err := dec.Decode(&inst); err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("%s: record %d: %w", path, n, err)
		}
		if err := fn(inst); err != nil {
			return err
		}
	}
}

// ReadAll loads every instance of path
func ReadAll(path string) ([]instance.Instance, error) {
	var out []instance.Instance
	err := Each(path, func(inst instance.Instance) error {
		out = append(out, inst)
		return nil
	})
	return out, err
}

// Rewrite streams the instances of path through fn into a temp file and
// renames it over path. fn returns false to drop an instance. It returns the
// number of instances kept.
func Rewrite(path string, fn func(*instance.Instance) (bool, error)) (int, error) {
	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", internalerr.ErrWrite, err)
	}
	buf := bufio.NewWriter(out)
	enc := json.NewEncoder(buf)

	kept := 0
	err = Each(path, func(inst instance.Instance) error {
		keep, err := fn(&inst)
		if err != nil || !keep {
			return err
		}
		kept++
		return enc.Encode(inst)
	})
	if err == nil {
		err = buf.Flush()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("%w: %v", internalerr.ErrWrite, err)
	}
	return kept, nil
}

// WriteLines writes a sorted, de-duplicated newline-delimited set
func WriteLines(path string, lines []string) error {
	set := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		set[l] = struct{}{}
	}
	sorted := make([]string, 0, len(set))
	for l := range set {
		sorted = append(sorted, l)
	}
	sort.Strings(sorted)

	var b strings.Builder
	for _, l := range sorted {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return writeAtomic(path, []byte(b.String()))
}

// WriteOrderedLines writes lines in the given order, keeping the first of
// any duplicates
func WriteOrderedLines(path string, lines []string) error {
	seen := make(map[string]struct{}, len(lines))
	var b strings.Builder
	for _, l := range lines {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return writeAtomic(path, []byte(b.String()))
}

// ReadLines reads a newline-delimited set, skipping blank lines
func ReadLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, l := range strings.Split(string(data), "\n") {
		if l = strings.TrimRight(l, "\r"); l != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

// WriteManifest marks dir as a finished store
func WriteManifest(dir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", internalerr.ErrWrite, err)
	}
	return writeAtomic(filepath.Join(dir, ManifestFile), append(data, '\n'))
}

// ReadManifest reads the manifest of dir
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// OpenCompleted returns the manifest of dir if it is a finished store
func OpenCompleted(dir string) (Manifest, error) {
	m, err := ReadManifest(dir)
	if errors.Is(err, os.ErrNotExist) {
		return m, fmt.Errorf("%w: %s has no manifest", internalerr.ErrIncomplete, dir)
	}
	if err != nil {
		return m, fmt.Errorf("%w: %s: %v", internalerr.ErrIncomplete, dir, err)
	}
	if !m.Completed {
		return m, fmt.Errorf("%w: %s", internalerr.ErrIncomplete, dir)
	}
	return m, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", internalerr.ErrWrite, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", internalerr.ErrWrite, err)
	}
	return nil
}
