package cdi

import (
	"strings"

	vocab "github.com/c360studio/ddicdi/vocabulary/cdi"
)

// XSD datatype IRIs.
const (
	XSDString   = vocab.XSD + "string"
	XSDInteger  = vocab.XSD + "integer"
	XSDDecimal  = vocab.XSD + "decimal"
	XSDDouble   = vocab.XSD + "double"
	XSDBoolean  = vocab.XSD + "boolean"
	XSDDateTime = vocab.XSD + "dateTime"
	XSDDate     = vocab.XSD + "date"
	XSDTime     = vocab.XSD + "time"
	XSDDuration = vocab.XSD + "duration"
)

var xsdTypes = map[string]string{
	"int":             XSDInteger,
	"int8":            XSDInteger,
	"int16":           XSDInteger,
	"int32":           XSDInteger,
	"int64":           XSDInteger,
	"uint8":           XSDInteger,
	"uint16":          XSDInteger,
	"uint32":          XSDInteger,
	"uint64":          XSDInteger,
	"integer":         XSDInteger,
	"long":            XSDInteger,
	"byte":            XSDInteger,
	"short":           XSDInteger,
	"float":           XSDDouble,
	"float16":         XSDDouble,
	"float32":         XSDDouble,
	"float64":         XSDDouble,
	"double":          XSDDouble,
	"number":          XSDDecimal,
	"numeric":         XSDDecimal,
	"decimal":         XSDDecimal,
	"string":          XSDString,
	"str":             XSDString,
	"strl":            XSDString,
	"object":          XSDString,
	"text":            XSDString,
	"category":        XSDString,
	"bool":            XSDBoolean,
	"boolean":         XSDBoolean,
	"datetime":        XSDDateTime,
	"datetime64":      XSDDateTime,
	"datetime64[ns]":  XSDDateTime,
	"timestamp":       XSDDateTime,
	"date":            XSDDate,
	"time":            XSDTime,
	"timedelta":       XSDDuration,
	"timedelta64[ns]": XSDDuration,
	"duration":        XSDDuration,
}

// XSDType maps a native type tag to an XSD datatype IRI. Lookup is exact,
// then case-insensitive; unknown tags map to xsd:string.
func XSDType(tag string) string {
	if t, ok := xsdTypes[tag]; ok {
		return t
	}
	if t, ok := xsdTypes[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return t
	}
	return XSDString
}
