// Package reader loads tabular statistical files into a dataset table and
// its variable metadata. Readers are selected by file extension.
package reader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	errs "github.com/c360studio/semstreams/errors"

	"github.com/c360studio/ddicdi/dataset"
)

// Options controls how a file is read.
type Options struct {
	// RowLimit caps the rows loaded. Zero loads every row. Metadata.RowCount
	// still reports the full count when the format states it.
	RowLimit int

	// Encodings lists candidate text encodings tried in order. Empty uses
	// DefaultEncodings.
	Encodings []string

	// Delimiter is the CSV field separator. Zero sniffs among , ; tab and |.
	Delimiter rune

	// DecomposeKeys splits the keys of a flat JSON map into key_1..key_n
	// columns on KeySeparators.
	DecomposeKeys bool

	// KeySeparators are the characters keys are split on. Empty uses "./".
	KeySeparators string

	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) encodings() []string {
	if len(o.Encodings) > 0 {
		return o.Encodings
	}
	return DefaultEncodings
}

// Reader decodes one file format.
type Reader interface {
	// Read decodes content. filename is used for messages and the
	// dataset's Filename.
	Read(filename string, content []byte, opts Options) (*dataset.Dataset, error)

	// Name returns the format name, e.g. "spss".
	Name() string

	// Extensions returns the lower-case extensions handled, with dot.
	Extensions() []string
}

// Registry maps file extensions to readers.
type Registry struct {
	mu      sync.RWMutex
	readers map[string]Reader // keyed by lower-case extension
}

// DefaultRegistry is the registry with every built-in reader.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a registry with the SPSS, Stata, CSV and JSON readers.
func NewRegistry() *Registry {
	r := &Registry{readers: make(map[string]Reader)}
	r.Register(NewSAVReader())
	r.Register(NewDTAReader())
	r.Register(NewCSVReader())
	r.Register(NewJSONReader())
	return r
}

// Register adds a reader for each of its extensions.
func (r *Registry) Register(rd Reader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range rd.Extensions() {
		r.readers[strings.ToLower(ext)] = rd
	}
}

// Lookup returns the reader for a file name.
func (r *Registry) Lookup(filename string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	r.mu.RLock()
	defer r.mu.RUnlock()
	rd, ok := r.readers[ext]
	if !ok {
		return nil, errs.WrapInvalid(fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext),
			"reader", "Lookup", "select reader for "+filepath.Base(filename))
	}
	return rd, nil
}

// Supports reports whether some reader handles the file name.
func (r *Registry) Supports(filename string) bool {
	_, err := r.Lookup(filename)
	return err == nil
}

// Extensions returns every registered extension, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.readers))
	for ext := range r.readers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Read loads a file from disk.
func (r *Registry) Read(path string, opts Options) (*dataset.Dataset, error) {
	rd, err := r.Lookup(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, "reader", rd.Name(), "open "+path)
	}
	return read(rd, filepath.Base(path), content, opts)
}

// ReadBytes decodes content already in memory, choosing the reader by
// filename.
func (r *Registry) ReadBytes(filename string, content []byte, opts Options) (*dataset.Dataset, error) {
	rd, err := r.Lookup(filename)
	if err != nil {
		return nil, err
	}
	return read(rd, filepath.Base(filename), content, opts)
}

func read(rd Reader, filename string, content []byte, opts Options) (*dataset.Dataset, error) {
	ds, err := rd.Read(filename, content, opts)
	if err != nil {
		return nil, errs.WrapInvalid(err, "reader", rd.Name(), "read "+filename)
	}
	ds.Filename = filename
	ds.Metadata.SourceFormat = rd.Name()
	opts.logger().Debug("dataset loaded",
		slog.String("file", filename),
		slog.String("format", rd.Name()),
		slog.Int("columns", len(ds.Metadata.ColumnNames)),
		slog.Int("rows", ds.Table.Len()),
		slog.Int("row_count", ds.Metadata.RowCount),
		slog.String("encoding", ds.Metadata.FileEncoding))
	return ds, nil
}

// Read loads a file with the default registry.
func Read(path string, opts Options) (*dataset.Dataset, error) {
	return DefaultRegistry.Read(path, opts)
}

// limit returns the number of rows to load out of total.
func (o Options) limit(total int) int {
	if o.RowLimit > 0 && o.RowLimit < total {
		return o.RowLimit
	}
	return total
}
