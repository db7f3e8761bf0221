package connector

import (
	"sort"

	"github.com/cognicore/featurespace/pkg/featurespace/instance"
)

// Accumulator collects the feature names and outcomes seen during one run
type Accumulator struct {
	names    map[string]struct{}
	columns  []string
	outcomes map[string]struct{}
}

// NewAccumulator creates an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{
		names:    make(map[string]struct{}),
		outcomes: make(map[string]struct{}),
	}
}

// Add folds one instance into the sets
func (a *Accumulator) Add(inst instance.Instance) {
	for _, f := range inst.Features {
		if _, ok := a.names[f.Name]; !ok {
			a.names[f.Name] = struct{}{}
			a.columns = append(a.columns, f.Name)
		}
	}
	for _, o := range inst.Outcomes {
		a.outcomes[o] = struct{}{}
	}
}

// Names returns the feature names, sorted
func (a *Accumulator) Names() []string {
	return sorted(a.names)
}

// Columns returns the feature names in first-seen order. For dense runs this
// is the column order of every instance.
func (a *Accumulator) Columns() []string {
	return append([]string(nil), a.columns...)
}

// Outcomes returns the outcome labels, sorted
func (a *Accumulator) Outcomes() []string {
	return sorted(a.outcomes)
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
