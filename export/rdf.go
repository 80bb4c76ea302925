// Package export serializes DDI-CDI node graphs as JSON-LD, DDI-CDI XML,
// Turtle and N-Triples.
package export

import (
	"fmt"
	"maps"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/c360studio/ddicdi/cdi"
	"github.com/c360studio/ddicdi/dataset"
	vocab "github.com/c360studio/ddicdi/vocabulary/cdi"
)

// Triple is one RDF statement with absolute subject and predicate IRIs.
type Triple struct {
	Subject   string
	Predicate string
	Object    Object
}

// Object is the object of a triple: an IRI, or a literal with an optional
// datatype IRI. A literal without datatype is an xsd:string.
type Object struct {
	IRI      string
	Literal  string
	Datatype string
}

// IsIRI reports whether o is an IRI.
func (o Object) IsIRI() bool { return o.IRI != "" }

// RDFExporter renders node graphs as RDF. Fragment identifiers resolve
// against the base URI.
type RDFExporter struct {
	baseURI  string
	prefixes map[string]string
}

// NewRDFExporter creates an exporter for a base URI. An empty base URI uses
// vocab.DefaultBaseURI.
func NewRDFExporter(baseURI string) *RDFExporter {
	if baseURI == "" {
		baseURI = vocab.DefaultBaseURI
	}
	prefixes := defaultPrefixes()
	prefixes[BasePrefix(baseURI)] = baseURI
	return &RDFExporter{baseURI: baseURI, prefixes: prefixes}
}

// defaultPrefixes returns the standard namespace prefixes for RDF export.
func defaultPrefixes() map[string]string {
	return map[string]string{
		"ddi":  vocab.Namespace,
		"rdf":  vocab.RDF,
		"rdfs": vocab.RDFS,
		"skos": vocab.SKOS,
		"xsd":  vocab.XSD,
	}
}

// BasePrefix chooses the prefix bound to a base URI: "sikt" for sikt.no
// URIs, "ex" for example.org, "inst" otherwise.
func BasePrefix(baseURI string) string {
	switch {
	case strings.Contains(baseURI, "sikt.no"):
		return "sikt"
	case strings.Contains(baseURI, "example.org"):
		return "ex"
	default:
		return "inst"
	}
}

// BaseURI returns the base URI instance identifiers resolve against.
func (e *RDFExporter) BaseURI() string { return e.baseURI }

// Prefixes returns a copy of the prefix bindings.
func (e *RDFExporter) Prefixes() map[string]string { return maps.Clone(e.prefixes) }

// ResolveIRI turns a fragment identifier ("#x") or a file-scheme IRI into an
// IRI under the base URI. Other values are returned unchanged.
func (e *RDFExporter) ResolveIRI(ref string) string {
	switch {
	case strings.HasPrefix(ref, "#"):
		return e.baseURI + "#" + escapeFragment(ref[1:])
	case strings.HasPrefix(ref, "file:///"):
		last := ref[strings.LastIndex(ref, "/")+1:]
		if i := strings.Index(last, "#"); i >= 0 {
			return e.baseURI + "#" + escapeFragment(last[i+1:])
		}
		return e.baseURI + last
	}
	return ref
}

func escapeFragment(s string) string {
	return (&url.URL{Fragment: s}).EscapedFragment()
}

// Triples converts nodes to triples in node order: the type assertion, then
// one triple per literal field and reference target. Null literals produce
// no triple.
func (e *RDFExporter) Triples(nodes []cdi.Node) ([]Triple, error) {
	var out []Triple
	for _, n := range nodes {
		subject := e.ResolveIRI(n.NodeID())
		out = append(out, Triple{Subject: subject, Predicate: vocab.RDFType, Object: Object{IRI: vocab.Expand(n.NodeType())}})
		for _, f := range n.Fields() {
			predicate := vocab.Expand(f.Name)
			if f.Kind == cdi.FieldRef {
				for _, r := range f.Refs {
					out = append(out, Triple{Subject: subject, Predicate: predicate, Object: Object{IRI: e.ResolveIRI(r.ID)}})
				}
				continue
			}
			obj, ok, err := e.object(f)
			if err != nil {
				return nil, &NotSerializableError{NodeID: n.NodeID(), Field: f.Name, Value: f.Value, Err: err}
			}
			if ok {
				out = append(out, Triple{Subject: subject, Predicate: predicate, Object: obj})
			}
		}
	}
	return out, nil
}

func (e *RDFExporter) object(f cdi.Field) (Object, bool, error) {
	switch v := f.Value.(type) {
	case string:
		if f.IRI {
			return Object{IRI: e.ResolveIRI(v)}, true, nil
		}
		return Object{Literal: v}, true, nil
	case bool:
		return Object{Literal: strconv.FormatBool(v), Datatype: cdi.XSDBoolean}, true, nil
	case int:
		return Object{Literal: strconv.Itoa(v), Datatype: cdi.XSDInteger}, true, nil
	case int64:
		return Object{Literal: strconv.FormatInt(v, 10), Datatype: cdi.XSDInteger}, true, nil
	case dataset.Value:
		return valueObject(v)
	default:
		return Object{}, false, fmt.Errorf("no RDF encoding for %T", f.Value)
	}
}

func valueObject(v dataset.Value) (Object, bool, error) {
	switch v.Kind() {
	case dataset.KindNull:
		return Object{}, false, nil
	case dataset.KindInt:
		return Object{Literal: v.String(), Datatype: cdi.XSDInteger}, true, nil
	case dataset.KindFloat:
		f, _ := v.AsFloat()
		if math.IsNaN(f) {
			return Object{}, false, nil
		}
		if math.IsInf(f, 0) {
			return Object{}, false, &dataset.UnsupportedValueError{Value: v}
		}
		return Object{Literal: v.String(), Datatype: cdi.XSDDouble}, true, nil
	case dataset.KindTime:
		s := v.String()
		if len(s) == len("2006-01-02") {
			return Object{Literal: s, Datatype: cdi.XSDDate}, true, nil
		}
		return Object{Literal: s, Datatype: cdi.XSDDateTime}, true, nil
	default:
		return Object{Literal: v.String()}, true, nil
	}
}

// Export serializes nodes to Turtle or N-Triples.
func (e *RDFExporter) Export(nodes []cdi.Node, format Format) (string, error) {
	triples, err := e.Triples(nodes)
	if err != nil {
		return "", err
	}
	switch format {
	case FormatTurtle:
		return e.toTurtle(triples), nil
	case FormatNTriples:
		return toNTriples(triples), nil
	default:
		return "", fmt.Errorf("%w: %s is not an RDF triple format", ErrUnsupportedFormat, format)
	}
}

// toTurtle groups consecutive triples of a subject into one block.
func (e *RDFExporter) toTurtle(triples []Triple) string {
	w := NewTurtleWriter(e.prefixes)
	w.WritePrefixes()
	for i, t := range triples {
		if i == 0 || triples[i-1].Subject != t.Subject {
			w.WriteSubject(t.Subject)
		}
		last := i == len(triples)-1 || triples[i+1].Subject != t.Subject
		w.WritePredicate(t.Predicate, t.Object, last)
		if last {
			w.WriteBlank()
		}
	}
	return w.String()
}

func toNTriples(triples []Triple) string {
	w := NewNTriplesWriter()
	for _, t := range triples {
		w.WriteTriple(t)
	}
	return w.String()
}

// TurtleWriter writes RDF in Turtle format.
type TurtleWriter struct {
	prefixes   map[string]string
	namespaces []string // prefixes by descending namespace length
	sb         strings.Builder
}

// NewTurtleWriter creates a Turtle writer with the given prefixes.
func NewTurtleWriter(prefixes map[string]string) *TurtleWriter {
	w := &TurtleWriter{prefixes: make(map[string]string, len(prefixes))}
	for p, iri := range prefixes {
		w.SetPrefix(p, iri)
	}
	return w
}

// SetPrefix sets a namespace prefix.
func (w *TurtleWriter) SetPrefix(prefix, iri string) {
	w.prefixes[prefix] = iri
	w.namespaces = w.namespaces[:0]
	for p := range w.prefixes {
		w.namespaces = append(w.namespaces, p)
	}
	sort.Slice(w.namespaces, func(i, j int) bool {
		a, b := w.prefixes[w.namespaces[i]], w.prefixes[w.namespaces[j]]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return w.namespaces[i] < w.namespaces[j]
	})
}

// WritePrefixes writes prefix declarations.
func (w *TurtleWriter) WritePrefixes() {
	keys := make([]string, 0, len(w.prefixes))
	for k := range w.prefixes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, prefix := range keys {
		w.sb.WriteString(fmt.Sprintf("@prefix %s: <%s> .\n", prefix, w.prefixes[prefix]))
	}
	w.sb.WriteString("\n")
}

// WriteSubject starts a new subject block.
func (w *TurtleWriter) WriteSubject(iri string) {
	w.sb.WriteString(w.term(iri) + "\n")
}

// WritePredicate writes a predicate-object pair. rdf:type is written as "a".
func (w *TurtleWriter) WritePredicate(predicateIRI string, object Object, last bool) {
	terminator := " ;"
	if last {
		terminator = " ."
	}
	predicate := "a"
	if predicateIRI != vocab.RDFType {
		predicate = w.term(predicateIRI)
	}
	w.sb.WriteString(fmt.Sprintf("    %s %s%s\n", predicate, w.object(object), terminator))
}

// WriteBlank writes a blank line for readability.
func (w *TurtleWriter) WriteBlank() {
	w.sb.WriteString("\n")
}

// String returns the accumulated Turtle output.
func (w *TurtleWriter) String() string {
	return w.sb.String()
}

var localName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// term compacts an IRI to prefix:local when a bound namespace matches and
// the remainder is a plain local name, and writes <iri> otherwise.
func (w *TurtleWriter) term(iri string) string {
	for _, p := range w.namespaces {
		ns := w.prefixes[p]
		if rest, ok := strings.CutPrefix(iri, ns); ok && localName.MatchString(rest) {
			return p + ":" + rest
		}
	}
	return "<" + iri + ">"
}

func (w *TurtleWriter) object(o Object) string {
	if o.IsIRI() {
		return w.term(o.IRI)
	}
	lit := `"` + escapeString(o.Literal) + `"`
	if o.Datatype != "" {
		lit += "^^" + w.term(o.Datatype)
	}
	return lit
}

// NTriplesWriter writes RDF in N-Triples format.
type NTriplesWriter struct {
	sb strings.Builder
}

// NewNTriplesWriter creates a new N-Triples writer.
func NewNTriplesWriter() *NTriplesWriter {
	return &NTriplesWriter{}
}

// WriteTriple writes a single triple.
func (w *NTriplesWriter) WriteTriple(t Triple) {
	w.sb.WriteString(fmt.Sprintf("<%s> <%s> %s .\n", t.Subject, t.Predicate, formatObjectNTriples(t.Object)))
}

// String returns the accumulated N-Triples output.
func (w *NTriplesWriter) String() string {
	return w.sb.String()
}

// formatObjectNTriples formats an object for N-Triples output.
func formatObjectNTriples(o Object) string {
	if o.IsIRI() {
		return "<" + o.IRI + ">"
	}
	lit := `"` + escapeString(o.Literal) + `"`
	if o.Datatype != "" {
		lit += "^^<" + o.Datatype + ">"
	}
	return lit
}

// escapeString escapes special characters in strings for RDF serialization.
// Control characters without a short escape are written as \uXXXX.
func escapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
