// Package filter post-processes a finished instance file. Filters run in
// configuration order once all instances of a split are written.
package filter

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cognicore/featurespace/internal/logger"
	"github.com/cognicore/featurespace/pkg/featurespace/fstore"
	"github.com/cognicore/featurespace/pkg/featurespace/instance"
	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
	"github.com/cognicore/featurespace/pkg/featurespace/metrics"
)

// Applicability says which splits a filter runs on
type Applicability int

const (
	Train Applicability = iota
	Test
	Both
)

func (a Applicability) String() string {
	switch a {
	case Train:
		return "train"
	case Test:
		return "test"
	default:
		return "both"
	}
}

// Applies reports whether the filter runs on the given split
func (a Applicability) Applies(testing bool) bool {
	switch a {
	case Train:
		return !testing
	case Test:
		return testing
	default:
		return true
	}
}

// Filter rewrites one instance at a time. Returning false drops it.
type Filter interface {
	Name() string
	Applicability() Applicability
	Apply(inst *instance.Instance) (bool, error)
}

var registry = map[string]func() Filter{
	"l2-normalize": func() Filter { return l2Normalize{} },
	"drop-empty":   func() Filter { return dropEmpty{} },
	"binary":       func() Filter { return binary{} },
}

// Names returns the registered filter tags, sorted
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Resolve turns configured tags into a chain. Unknown tags fail here, before
// any document is processed.
func Resolve(tags []string) (*Chain, error) {
	c := &Chain{}
	for _, tag := range tags {
		f, ok := registry[strings.TrimSpace(tag)]
		if !ok {
			return nil, fmt.Errorf("%w: %q (known: %s)", internalerr.ErrUnknownFilter, tag, strings.Join(Names(), ", "))
		}
		c.filters = append(c.filters, f())
	}
	return c, nil
}

// Chain is an ordered list of filters
type Chain struct {
	filters []Filter
	metrics *metrics.Metrics
}

// NewChain creates a chain from filters, in order
func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// WithMetrics attaches metrics to the chain
func (c *Chain) WithMetrics(m *metrics.Metrics) *Chain {
	if c == nil {
		return nil
	}
	c.metrics = m
	return c
}

// Len returns the number of filters
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.filters)
}

// Apply runs every applicable filter over the instance file at path and
// returns the number of instances left, or -1 when no filter ran.
func (c *Chain) Apply(ctx context.Context, path string, testing bool) (int, error) {
	if c == nil {
		return -1, nil
	}
	log := logger.WithComponent("filter")
	kept := -1
	for _, f := range c.filters {
		if !f.Applicability().Applies(testing) {
			log.Debug("filter skipped", "filter", f.Name(), "applies", f.Applicability())
			continue
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n, err := fstore.Rewrite(path, f.Apply)
		c.metrics.FilterRun(f.Name(), err)
		if err != nil {
			return 0, fmt.Errorf("filter %s: %w", f.Name(), err)
		}
		log.Info("filter applied", "filter", f.Name(), "instances", n)
		kept = n
	}
	return kept, nil
}

type l2Normalize struct{}

func (l2Normalize) Name() string                 { return "l2-normalize" }
func (l2Normalize) Applicability() Applicability { return Both }

func (l2Normalize) Apply(inst *instance.Instance) (bool, error) {
	var sum float64
	for _, f := range inst.Features {
		if v, ok := f.Numeric(); ok {
			sum += v * v
		}
	}
	if sum == 0 {
		return true, nil
	}
	norm := math.Sqrt(sum)
	for i, f := range inst.Features {
		if v, ok := f.Numeric(); ok {
			inst.Features[i].Value = v / norm
		}
	}
	return true, nil
}

type dropEmpty struct{}

func (dropEmpty) Name() string                 { return "drop-empty" }
func (dropEmpty) Applicability() Applicability { return Train }

func (dropEmpty) Apply(inst *instance.Instance) (bool, error) {
	for _, f := range inst.Features {
		if v, ok := f.Numeric(); ok && v != 0 {
			return true, nil
		}
	}
	return false, nil
}

type binary struct{}

func (binary) Name() string                 { return "binary" }
func (binary) Applicability() Applicability { return Both }

func (binary) Apply(inst *instance.Instance) (bool, error) {
	for i, f := range inst.Features {
		if v, ok := f.Numeric(); ok && v != 0 {
			inst.Features[i].Value = 1.0
		}
	}
	return true, nil
}
