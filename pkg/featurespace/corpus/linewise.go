package corpus

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/cognicore/featurespace/internal/logger"
	"github.com/cognicore/featurespace/pkg/featurespace/document"
)

// LinewiseOptions configures a LinewiseReader
type LinewiseOptions struct {
	// StripHTML removes markup and decodes entities in the text column
	StripHTML bool
	// UnescapeEscapes decodes backslash escapes (\t, \n, \\, \uXXXX) after
	// HTML stripping
	UnescapeEscapes bool
	// Tokenizer annotates each line; nil uses document.NewTokenizer
	Tokenizer *document.Tokenizer
}

// LinewiseReader reads "label<TAB>text" lines. Every line becomes one
// document with a single unit spanning the whole text, so the same file
// works in document, unit and sequence mode.
type LinewiseReader struct {
	path    string
	file    *os.File
	gz      *gzip.Reader
	scanner *bufio.Scanner
	opts    LinewiseOptions
	line    int
	nextID  int
	log     *slog.Logger
}

// OpenLinewise opens a plain or .gz linewise corpus file
func OpenLinewise(path string, opts LinewiseOptions) (*LinewiseReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", path, err)
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = document.NewTokenizer()
	}

	r := &LinewiseReader{path: path, file: f, opts: opts, nextID: 1, log: logger.WithComponent("corpus")}
	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip corpus %s: %w", path, err)
		}
		r.gz = gz
		src = gz
	}
	r.scanner = bufio.NewScanner(src)
	r.scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return r, nil
}

// Linewise returns an OpenFunc over a linewise corpus file
func Linewise(path string, opts LinewiseOptions) OpenFunc {
	return func() (Reader, error) {
		return OpenLinewise(path, opts)
	}
}

// Next implements Reader
func (r *LinewiseReader) Next(ctx context.Context) (*document.Doc, error) {
	for r.scanner.Scan() {
		r.line++
		raw := strings.TrimRight(r.scanner.Text(), "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}

		label, text, ok := strings.Cut(raw, "\t")
		label = strings.TrimSpace(label)
		if !ok || label == "" {
			r.log.Warn("skipping line without label column", "path", r.path, "line", r.line)
			continue
		}
		if r.opts.StripHTML {
			text = stripHTML(text)
		}
		if r.opts.UnescapeEscapes {
			text = unescapeEscapes(text)
		}

		doc := &document.Doc{
			ID:       strconv.Itoa(r.nextID),
			Text:     text,
			Outcomes: []string{label},
		}
		r.nextID++
		r.opts.Tokenizer.Annotate(doc)
		doc.Units = []document.Unit{{Span: doc.Whole(), Outcomes: []string{label}}}
		return doc, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", r.path, err)
	}
	return nil, io.EOF
}

// Close implements Reader
func (r *LinewiseReader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	return r.file.Close()
}

// stripHTML parses s as an HTML fragment and returns its text content
// with entities decoded
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return html.UnescapeString(s)
	}

	var b strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)
	return strings.TrimSpace(b.String())
}

// unescapeEscapes decodes backslash escapes. Escapes it cannot decode, such
// as a trailing backslash or a lone surrogate, are kept as written.
func unescapeEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		i := strings.IndexByte(s, '\\')
		if i < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:i])
		s = s[i:]
		if len(s) > 1 && (s[1] == '\'' || s[1] == '"') {
			b.WriteByte(s[1])
			s = s[2:]
			continue
		}
		r, _, tail, err := strconv.UnquoteChar(s, 0)
		if err != nil {
			b.WriteByte('\\')
			s = s[1:]
			continue
		}
		b.WriteRune(r)
		s = tail
	}
	return b.String()
}
