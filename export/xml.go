package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/c360studio/ddicdi/cdi"
	"github.com/c360studio/ddicdi/dataset"
	vocab "github.com/c360studio/ddicdi/vocabulary/cdi"
)

// XMLTimestampLayout formats the generation time in the header comment.
const XMLTimestampLayout = "02 January 2006, 03:04:05 PM"

const xmlVersionIdentifier = "1"

// XMLWriter writes a node graph as DDI-CDI XML. Every node carries an
// identifier block with the registration agency, and every reference is a
// ddiReference block followed by its validType.
type XMLWriter struct {
	agency string
	now    func() time.Time
}

// NewXMLWriter creates an XML writer. An empty agency uses
// vocab.DefaultAgency and a nil clock uses time.Now.
func NewXMLWriter(agency string, now func() time.Time) *XMLWriter {
	if agency == "" {
		agency = vocab.DefaultAgency
	}
	if now == nil {
		now = time.Now
	}
	return &XMLWriter{agency: agency, now: now}
}

// Write encodes nodes to out.
func (w *XMLWriter) Write(out io.Writer, nodes []cdi.Node) error {
	header := xml.Header + "<!-- CDI version 1, generated: " + w.now().Format(XMLTimestampLayout) + " -->\n"
	if _, err := io.WriteString(out, header); err != nil {
		return fmt.Errorf("write xml header: %w", err)
	}
	enc := xml.NewEncoder(out)
	enc.Indent("", "  ")

	root := xml.StartElement{
		Name: xml.Name{Local: "cdi:DDICDIModels"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "xmlns:cdi"}, Value: vocab.XMLNamespace},
			{Name: xml.Name{Local: "xmlns:skos"}, Value: vocab.SKOS},
			{Name: xml.Name{Local: "xmlns:xsi"}, Value: vocab.XSI},
			{Name: xml.Name{Local: "xsi:schemaLocation"}, Value: vocab.XMLSchemaLocation},
		},
	}
	if err := enc.EncodeToken(root); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}
	for _, n := range nodes {
		if err := w.node(enc, n); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("flush xml: %w", err)
	}
	_, err := io.WriteString(out, "\n")
	return err
}

func (w *XMLWriter) node(enc *xml.Encoder, n cdi.Node) error {
	el := xml.StartElement{Name: xml.Name{Local: qualify(n.NodeType())}}
	if err := enc.EncodeToken(el); err != nil {
		return fmt.Errorf("encode xml %s: %w", n.NodeID(), err)
	}
	if err := w.identifier(enc, "identifier", "ddiIdentifier", n.NodeID()); err != nil {
		return err
	}
	for _, f := range n.Fields() {
		var err error
		if f.Kind == cdi.FieldRef {
			err = w.references(enc, f)
		} else {
			err = w.literal(enc, n, f)
		}
		if err != nil {
			return err
		}
	}
	return enc.EncodeToken(el.End())
}

// identifier writes outer/inner/{dataIdentifier, registrationAuthorityIdentifier,
// versionIdentifier}. An empty outer writes the inner block only.
func (w *XMLWriter) identifier(enc *xml.Encoder, outer, inner, id string) error {
	var wrap xml.StartElement
	if outer != "" {
		wrap = xml.StartElement{Name: xml.Name{Local: qualify(outer)}}
		if err := enc.EncodeToken(wrap); err != nil {
			return err
		}
	}
	block := xml.StartElement{Name: xml.Name{Local: qualify(inner)}}
	if err := enc.EncodeToken(block); err != nil {
		return err
	}
	if err := leaf(enc, "dataIdentifier", id); err != nil {
		return err
	}
	if err := leaf(enc, "registrationAuthorityIdentifier", w.agency); err != nil {
		return err
	}
	if err := leaf(enc, "versionIdentifier", xmlVersionIdentifier); err != nil {
		return err
	}
	if err := enc.EncodeToken(block.End()); err != nil {
		return err
	}
	if outer != "" {
		return enc.EncodeToken(wrap.End())
	}
	return nil
}

// references writes one element per target, each holding a ddiReference
// and the validType of the target.
func (w *XMLWriter) references(enc *xml.Encoder, f cdi.Field) error {
	for _, r := range f.Refs {
		el := xml.StartElement{Name: xml.Name{Local: qualify(f.XMLName())}}
		if err := enc.EncodeToken(el); err != nil {
			return err
		}
		if err := w.identifier(enc, "", "ddiReference", r.ID); err != nil {
			return err
		}
		if err := leaf(enc, "validType", r.Type); err != nil {
			return err
		}
		if err := enc.EncodeToken(el.End()); err != nil {
			return err
		}
	}
	return nil
}

func (w *XMLWriter) literal(enc *xml.Encoder, n cdi.Node, f cdi.Field) error {
	s, ok, err := xmlText(f.Value)
	if err != nil {
		return &NotSerializableError{NodeID: n.NodeID(), Field: f.Name, Value: f.Value, Err: err}
	}
	if !ok {
		return nil
	}
	name := f.XMLName()
	switch f.Text {
	case cdi.TextLangString:
		return wrapped(enc, []string{name, "languageSpecificString", "content"}, s)
	case cdi.TextNested:
		child := f.Child
		if child == "" {
			child = name
		}
		return wrapped(enc, []string{name, child}, s)
	default:
		return leaf(enc, name, s)
	}
}

// xmlText renders a literal as element text. ok is false for values that
// produce no element: empty strings, nulls and NaN.
func xmlText(v any) (s string, ok bool, err error) {
	switch x := v.(type) {
	case string:
		return x, x != "", nil
	case bool:
		return strconv.FormatBool(x), true, nil
	case int:
		return strconv.Itoa(x), true, nil
	case int64:
		return strconv.FormatInt(x, 10), true, nil
	case dataset.Value:
		if x.IsNA() {
			return "", false, nil
		}
		if f, isFloat := x.AsFloat(); isFloat && math.IsInf(f, 0) {
			return "", false, &dataset.UnsupportedValueError{Value: x}
		}
		s := x.String()
		return s, s != "", nil
	default:
		return "", false, fmt.Errorf("no XML encoding for %T", v)
	}
}

func leaf(enc *xml.Encoder, name, text string) error {
	return wrapped(enc, []string{name}, text)
}

// wrapped writes text inside the nested elements path.
func wrapped(enc *xml.Encoder, path []string, text string) error {
	opened := make([]xml.StartElement, 0, len(path))
	for _, name := range path {
		el := xml.StartElement{Name: xml.Name{Local: qualify(name)}}
		if err := enc.EncodeToken(el); err != nil {
			return err
		}
		opened = append(opened, el)
	}
	if err := enc.EncodeToken(xml.CharData(text)); err != nil {
		return err
	}
	for i := len(opened) - 1; i >= 0; i-- {
		if err := enc.EncodeToken(opened[i].End()); err != nil {
			return err
		}
	}
	return nil
}

// qualify prefixes a DDI-CDI element name with "cdi:". SKOS terms keep their
// prefix.
func qualify(name string) string {
	if strings.HasPrefix(name, "skos:") {
		return name
	}
	return "cdi:" + name
}
