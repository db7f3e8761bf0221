package corpus

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cognicore/featurespace/internal/logger"
	"github.com/cognicore/featurespace/pkg/featurespace/document"
)

const maxLineSize = 64 * 1024 * 1024

// JSONLReader reads one annotated document per line. Lines that do not
// decode are logged and skipped.
type JSONLReader struct {
	path    string
	file    *os.File
	gz      *gzip.Reader
	scanner *bufio.Scanner
	line    int
	log     *slog.Logger
}

// OpenJSONL opens a .jsonl or .jsonl.gz file
func OpenJSONL(path string) (*JSONLReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", path, err)
	}

	r := &JSONLReader{path: path, file: f, log: logger.WithComponent("corpus")}
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

// JSONL returns an OpenFunc over a JSONL corpus file
func JSONL(path string) OpenFunc {
	return func() (Reader, error) {
		return OpenJSONL(path)
	}
}

// Next implements Reader
func (r *JSONLReader) Next(ctx context.Context) (*document.Doc, error) {
	for r.scanner.Scan() {
		r.line++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}

		var doc document.Doc
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			r.log.Warn("skipping malformed JSON", "path", r.path, "line", r.line, "error", err)
			continue
		}
		if doc.ID == "" {
			doc.ID = fmt.Sprintf("%d", r.line)
		}
		return &doc, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", r.path, err)
	}
	return nil, io.EOF
}

// Close implements Reader
func (r *JSONLReader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	return r.file.Close()
}
