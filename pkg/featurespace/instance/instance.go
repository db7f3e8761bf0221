package instance

import (
	"fmt"
	"math"
	"strings"

	"github.com/cognicore/featurespace/pkg/featurespace/internalerr"
)

// Feature is one named value of an instance. Value holds a float64 or a
// string.
type Feature struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Numeric returns the value as a float64 and whether it is numeric
func (f Feature) Numeric() (float64, bool) {
	switch v := f.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// IsDefault reports whether the value equals the default a sparse encoding
// leaves out
func (f Feature) IsDefault() bool {
	if v, ok := f.Numeric(); ok {
		return v == 0 || math.IsNaN(v)
	}
	s, ok := f.Value.(string)
	return ok && s == ""
}

// Instance is one labeled feature vector
type Instance struct {
	ID         string    `json:"id,omitempty"`
	Features   []Feature `json:"features"`
	Outcomes   []string  `json:"outcomes"`
	SequenceID int       `json:"sequence"`
	Position   int       `json:"position"`
}

// NoPosition marks instances built outside sequence mode
const NoPosition = -1

// Names returns the feature names in instance order
func (i *Instance) Names() []string {
	names := make([]string, len(i.Features))
	for n, f := range i.Features {
		names[n] = f.Name
	}
	return names
}

// Mode decides how many instances a document yields
type Mode string

const (
	ModeDocument Mode = "document"
	ModeUnit     Mode = "unit"
	ModeSequence Mode = "sequence"
)

// ParseMode resolves a configured feature mode
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeDocument, ModeUnit, ModeSequence:
		return m, nil
	case "":
		return ModeDocument, nil
	}
	return "", fmt.Errorf("%w: feature mode %q", internalerr.ErrInvalidConfig, s)
}

// LearningMode decides how many outcomes an instance carries and what they
// look like
type LearningMode string

const (
	LearningSingle     LearningMode = "single"
	LearningMulti      LearningMode = "multi"
	LearningRegression LearningMode = "regression"
)

// ParseLearningMode resolves a configured learning mode
func ParseLearningMode(s string) (LearningMode, error) {
	switch m := LearningMode(strings.ToLower(strings.TrimSpace(s))); m {
	case LearningSingle, LearningMulti, LearningRegression:
		return m, nil
	case "":
		return LearningSingle, nil
	}
	return "", fmt.Errorf("%w: learning mode %q", internalerr.ErrInvalidConfig, s)
}
