package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/c360studio/ddicdi/cdi"
	"github.com/c360studio/ddicdi/dataset"
	vocab "github.com/c360studio/ddicdi/vocabulary/cdi"
)

const jsonLDIndent = "    "

// JSONLDWriter writes a node graph as a flat DDI-CDI JSON-LD document:
// {"@context": [context, {"skos": ...}], "@graph": [...]}. Node keys are
// written as @id, @type, then fields in declaration order.
type JSONLDWriter struct {
	buf bytes.Buffer
}

// NewJSONLDWriter creates a new JSON-LD writer.
func NewJSONLDWriter() *JSONLDWriter {
	return &JSONLDWriter{}
}

// Marshal returns the indented document for nodes.
func (w *JSONLDWriter) Marshal(nodes []cdi.Node) ([]byte, error) {
	w.buf.Reset()
	w.buf.WriteString(`{"@context":[`)
	w.str(vocab.JSONLDContext)
	w.buf.WriteString(`,{"skos":`)
	w.str(vocab.SKOS)
	w.buf.WriteString(`}],"@graph":[`)
	for i, n := range nodes {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		if err := w.node(n); err != nil {
			return nil, err
		}
	}
	w.buf.WriteString("]}")

	var out bytes.Buffer
	if err := json.Indent(&out, w.buf.Bytes(), "", jsonLDIndent); err != nil {
		return nil, fmt.Errorf("indent json-ld: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func (w *JSONLDWriter) node(n cdi.Node) error {
	w.buf.WriteString(`{"@id":`)
	w.str(n.NodeID())
	w.buf.WriteString(`,"@type":`)
	w.str(n.NodeType())
	for _, f := range n.Fields() {
		w.buf.WriteByte(',')
		w.str(f.Name)
		w.buf.WriteByte(':')
		if f.Kind == cdi.FieldRef {
			w.refs(f)
			continue
		}
		if err := w.literal(f.Value); err != nil {
			return &NotSerializableError{NodeID: n.NodeID(), Field: f.Name, Value: f.Value, Err: err}
		}
	}
	w.buf.WriteByte('}')
	return nil
}

func (w *JSONLDWriter) refs(f cdi.Field) {
	if !f.Many && len(f.Refs) == 1 {
		w.str(f.Refs[0].ID)
		return
	}
	w.buf.WriteByte('[')
	for i, r := range f.Refs {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		w.str(r.ID)
	}
	w.buf.WriteByte(']')
}

func (w *JSONLDWriter) literal(v any) error {
	switch x := v.(type) {
	case string:
		w.str(x)
	case bool:
		w.buf.WriteString(strconv.FormatBool(x))
	case int:
		w.buf.WriteString(strconv.Itoa(x))
	case int64:
		w.buf.WriteString(strconv.FormatInt(x, 10))
	case dataset.Value:
		switch x.Kind() {
		case dataset.KindString, dataset.KindTime:
			w.str(x.String())
		default:
			b, err := x.MarshalJSON()
			if err != nil {
				return err
			}
			w.buf.Write(b)
		}
	default:
		return fmt.Errorf("no JSON encoding for %T", v)
	}
	return nil
}

// str appends s as a JSON string without HTML escaping.
func (w *JSONLDWriter) str(s string) {
	enc := json.NewEncoder(&w.buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	w.buf.Truncate(w.buf.Len() - 1)
}
