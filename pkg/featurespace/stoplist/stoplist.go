package stoplist

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// List is a case-insensitive stopword set
type List struct {
	stops map[string]struct{}
}

// File is the YAML layout of a stopword file
type File struct {
	Terms []string `yaml:"terms"`
}

// New creates a list from the given words
func New(words []string) *List {
	l := &List{stops: make(map[string]struct{}, len(words))}
	for _, w := range words {
		l.Add(w)
	}
	return l
}

// Load reads a stopword list from a YAML file with a top-level terms key
func Load(path string) (*List, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse stoplist %s: %w", path, err)
	}

	return New(f.Terms), nil
}

// IsStop checks if a token is a stopword
func (l *List) IsStop(token string) bool {
	if l == nil {
		return false
	}
	_, ok := l.stops[strings.ToLower(token)]
	return ok
}

// AllStop reports whether every token is a stopword. An empty slice is not.
func (l *List) AllStop(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, t := range tokens {
		if !l.IsStop(t) {
			return false
		}
	}
	return true
}

// Add adds a word to the list
func (l *List) Add(word string) {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return
	}
	l.stops[w] = struct{}{}
}

// Len returns the number of stopwords
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.stops)
}
