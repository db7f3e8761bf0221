// Package reconcile projects the feature space of a test store onto the
// feature names persisted by the matching train run.
package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/cognicore/featurespace/internal/logger"
	"github.com/cognicore/featurespace/pkg/featurespace/fstore"
	"github.com/cognicore/featurespace/pkg/featurespace/instance"
	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
	"github.com/cognicore/featurespace/pkg/featurespace/metrics"
)

// State of a feature space
type State int

const (
	Collecting State = iota
	// Persisted: train names written
	Persisted
	// Reconciled: test store rewritten onto the train names
	Reconciled
	// Matched: test names already equal the train names
	Matched
)

func (s State) String() string {
	switch s {
	case Collecting:
		return "collecting"
	case Persisted:
		return "persisted"
	case Reconciled:
		return "reconciled"
	case Matched:
		return "matched"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// sampleSize bounds the names listed in log lines
const sampleSize = 10

// Result reports a reconciliation
type Result struct {
	State State
	// Dropped are test-only names removed from every instance
	Dropped []string
	// Missing are train-only names; padded with 0 in dense stores
	Missing []string
	// Names is the feature-name set of the store afterwards, sorted
	Names []string
}

// Reconciler owns the feature-space state of one run
type Reconciler struct {
	state   State
	metrics *metrics.Metrics
	log     *slog.Logger
}

// New creates a reconciler in the Collecting state
func New(m *metrics.Metrics) *Reconciler {
	return &Reconciler{metrics: m, log: logger.WithComponent("reconcile")}
}

// State returns the current state
func (r *Reconciler) State() State {
	return r.state
}

// Persist writes the train feature names of dir along with the column
// order dense test stores are padded into
func (r *Reconciler) Persist(dir string, names, columns []string) error {
	if err := fstore.WriteLines(filepath.Join(dir, fstore.FeatureNamesFile), names); err != nil {
		return internalerr.Abort(internalerr.PhasePersist, err)
	}
	if err := fstore.WriteOrderedLines(filepath.Join(dir, fstore.ColumnsFile), columns); err != nil {
		return internalerr.Abort(internalerr.PhasePersist, err)
	}
	r.state = Persisted
	return nil
}

// Reconcile aligns the instances in dir with the feature names of the
// completed train store in trainingDir. Dense stores also take the train
// column order. Running it twice is a no-op.
func (r *Reconciler) Reconcile(dir, trainingDir string, sparse bool) (Result, error) {
	train, columns, err := loadTrainNames(trainingDir)
	if err != nil {
		return Result{}, internalerr.Abort(internalerr.PhaseReconcile, err)
	}

	path := filepath.Join(dir, fstore.InstancesFile)
	test, aligned, err := scanNames(path, columns)
	if err != nil {
		return Result{}, internalerr.Abort(internalerr.PhaseReconcile, err)
	}

	res := Result{Dropped: difference(test, train), Missing: difference(train, test)}
	if len(res.Dropped) == 0 && len(res.Missing) == 0 && (sparse || aligned) {
		res.State = Matched
		res.Names = sortedKeys(train)
		r.finish(res)
		return res, nil
	}

	if len(res.Dropped) > 0 || !sparse {
		_, err = fstore.Rewrite(path, func(inst *instance.Instance) (bool, error) {
			if sparse {
				inst.Features = project(inst.Features, train)
			} else {
				inst.Features = pad(inst.Features, columns)
			}
			return true, nil
		})
		if err != nil {
			return Result{}, internalerr.Abort(internalerr.PhaseReconcile, err)
		}
	}

	res.State = Reconciled
	if sparse {
		res.Names = sortedKeys(intersect(test, train))
	} else {
		res.Names = sortedKeys(train)
	}
	r.finish(res)
	return res, nil
}

func (r *Reconciler) finish(res Result) {
	r.state = res.State
	r.metrics.Reconciled(len(res.Dropped), len(res.Missing))
	if res.State == Matched {
		r.log.Info("feature spaces match", "features", len(res.Names))
		return
	}
	r.log.Info("feature space reconciled",
		"features", len(res.Names),
		"dropped", len(res.Dropped),
		"droppedSample", sample(res.Dropped),
		"missing", len(res.Missing),
		"missingSample", sample(res.Missing))
}

// loadTrainNames returns the train feature-name set and its column order.
// Stores written without a columns file fall back to sorted names.
func loadTrainNames(dir string) (map[string]struct{}, []string, error) {
	m, err := fstore.OpenCompleted(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("training store: %w", err)
	}
	if m.Split != fstore.SplitTrain {
		return nil, nil, fmt.Errorf("%w: %s holds a %s split", internalerr.ErrInvalidConfig, dir, m.Split)
	}
	names, err := fstore.ReadLines(filepath.Join(dir, fstore.FeatureNamesFile))
	if err != nil {
		return nil, nil, fmt.Errorf("training feature names: %w", err)
	}
	set := toSet(names)

	columns, err := fstore.ReadLines(filepath.Join(dir, fstore.ColumnsFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return set, sortedKeys(set), nil
	case err != nil:
		return nil, nil, fmt.Errorf("training columns: %w", err)
	}
	if len(columns) != len(set) || len(difference(toSet(columns), set)) > 0 {
		return nil, nil, fmt.Errorf("%w: %s columns do not match its feature names", internalerr.ErrInvalidConfig, dir)
	}
	return set, columns, nil
}

// scanNames collects the feature names of every instance and reports whether
// each instance lists exactly the given columns, in order
func scanNames(path string, columns []string) (map[string]struct{}, bool, error) {
	names := make(map[string]struct{})
	aligned := true
	err := fstore.Each(path, func(inst instance.Instance) error {
		for _, f := range inst.Features {
			names[f.Name] = struct{}{}
		}
		if aligned {
			aligned = sameOrder(inst.Features, columns)
		}
		return nil
	})
	return names, aligned, err
}

func sameOrder(feats []instance.Feature, columns []string) bool {
	if len(feats) != len(columns) {
		return false
	}
	for i, f := range feats {
		if f.Name != columns[i] {
			return false
		}
	}
	return true
}

// project keeps the features whose name is in keep, in their order
func project(feats []instance.Feature, keep map[string]struct{}) []instance.Feature {
	out := feats[:0]
	for _, f := range feats {
		if _, ok := keep[f.Name]; ok {
			out = append(out, f)
		}
	}
	return out
}

// pad returns one feature per name in order, 0 where the instance has none
func pad(feats []instance.Feature, order []string) []instance.Feature {
	values := make(map[string]any, len(feats))
	for _, f := range feats {
		values[f.Name] = f.Value
	}
	out := make([]instance.Feature, len(order))
	for i, name := range order {
		v, ok := values[name]
		if !ok {
			v = 0.0
		}
		out[i] = instance.Feature{Name: name, Value: v}
	}
	return out
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func difference(a, b map[string]struct{}) []string {
	var out []string
	for n := range a {
		if _, ok := b[n]; !ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for n := range a {
		if _, ok := b[n]; ok {
			out[n] = struct{}{}
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func sample(names []string) []string {
	if len(names) > sampleSize {
		return names[:sampleSize]
	}
	return names
}
