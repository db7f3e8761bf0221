// Package corpus streams annotated documents into the collection and
// extraction passes. Readers hand out one document at a time; the corpus is
// never held in memory as a whole.
package corpus

import (
	"context"
	"io"

	"github.com/cognicore/featurespace/pkg/featurespace/document"
)

// Reader yields documents until it returns io.EOF
type Reader interface {
	Next(ctx context.Context) (*document.Doc, error)
	Close() error
}

// OpenFunc opens a fresh pass over the corpus
type OpenFunc func() (Reader, error)

// Each calls fn for every document of r. It stops at the first error fn
// returns and at context cancellation.
func Each(ctx context.Context, r Reader, fn func(*document.Doc) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := r.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
}

// SliceReader serves documents from memory
type SliceReader struct {
	docs []document.Doc
	pos  int
}

// NewSliceReader creates a reader over docs. Each call to Next returns a
// copy so callers may annotate it freely.
func NewSliceReader(docs []document.Doc) *SliceReader {
	return &SliceReader{docs: docs}
}

// Next implements Reader
func (s *SliceReader) Next(ctx context.Context) (*document.Doc, error) {
	if s.pos >= len(s.docs) {
		return nil, io.EOF
	}
	d := s.docs[s.pos]
	s.pos++
	return &d, nil
}

// Close implements Reader
func (s *SliceReader) Close() error { return nil }

// Slice returns an OpenFunc that replays docs on every pass
func Slice(docs []document.Doc) OpenFunc {
	return func() (Reader, error) {
		return NewSliceReader(docs), nil
	}
}
