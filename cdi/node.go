package cdi

// FieldKind distinguishes literal fields from reference fields.
type FieldKind uint8

const (
	FieldLiteral FieldKind = iota
	FieldRef
)

// TextStyle selects how a literal is wrapped in DDI-CDI XML.
type TextStyle uint8

const (
	// TextPlain writes the literal as element text.
	TextPlain TextStyle = iota
	// TextLangString wraps the literal in languageSpecificString/content.
	TextLangString
	// TextNested wraps the literal in a single child named Field.Child, or
	// the element name again when Child is empty, e.g. name/name.
	TextNested
)

// Ref is a reference to another node by fragment identifier. Type is the
// class of the target, written as validType in XML.
type Ref struct {
	ID   string
	Type string
}

// Field is one property of a node in declaration order.
type Field struct {
	Kind FieldKind

	// Name is the JSON-LD term. Terms with a "skos:" prefix are SKOS.
	Name string

	// XML is the XML element name. Empty means Name.
	XML string

	// Value is the literal of a FieldLiteral: string, bool, int or
	// dataset.Value.
	Value any

	// IRI marks a string literal holding an absolute IRI.
	IRI bool

	Text  TextStyle
	Child string

	// Refs holds the targets of a FieldRef.
	Refs []Ref

	// Many renders a reference field as a list even with one target.
	Many bool
}

// XMLName returns the XML element name of the field.
func (f Field) XMLName() string {
	if f.XML != "" {
		return f.XML
	}
	return f.Name
}

// Node is one emitted graph node.
type Node interface {
	NodeID() string
	NodeType() string
	Fields() []Field
}

func literal(name, xml string, v any) Field {
	return Field{Kind: FieldLiteral, Name: name, XML: xml, Value: v}
}

func text(name string, style TextStyle, v any) Field {
	return Field{Kind: FieldLiteral, Name: name, Value: v, Text: style}
}

func one(name, xml string, r Ref) Field {
	return Field{Kind: FieldRef, Name: name, XML: xml, Refs: []Ref{r}}
}

func many(name, xml string, rs []Ref) Field {
	if rs == nil {
		rs = []Ref{}
	}
	return Field{Kind: FieldRef, Name: name, XML: xml, Refs: rs, Many: true}
}
