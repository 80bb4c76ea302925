package export

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/c360studio/ddicdi/cdi"
)

// Options configures an Exporter.
type Options struct {
	// BaseURI is the base for instance IRIs in Turtle and N-Triples.
	BaseURI string

	// Agency is the registration authority written into XML identifiers.
	Agency string

	// Now is the clock for the XML generation comment.
	Now func() time.Time
}

// Exporter serializes node graphs in every registered format.
type Exporter struct {
	opts Options
}

// NewExporter creates an exporter.
func NewExporter(opts Options) *Exporter {
	return &Exporter{opts: opts}
}

// Marshal serializes nodes in format.
func (e *Exporter) Marshal(nodes []cdi.Node, format Format) ([]byte, error) {
	switch format {
	case FormatJSONLD:
		return NewJSONLDWriter().Marshal(nodes)
	case FormatXML:
		var buf bytes.Buffer
		if err := NewXMLWriter(e.opts.Agency, e.opts.Now).Write(&buf, nodes); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatTurtle, FormatNTriples:
		s, err := NewRDFExporter(e.opts.BaseURI).Export(nodes, format)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Write serializes nodes in format to w.
func (e *Exporter) Write(w io.Writer, nodes []cdi.Node, format Format) error {
	data, err := e.Marshal(nodes, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	return nil
}
