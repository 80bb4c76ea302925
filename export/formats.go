package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	errs "github.com/c360studio/semstreams/errors"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatJSONLD produces the DDI-CDI JSON-LD document (.jsonld).
	FormatJSONLD Format = "jsonld"

	// FormatXML produces DDI-CDI XML (.xml).
	FormatXML Format = "xml"

	// FormatTurtle produces Turtle (.ttl) output.
	FormatTurtle Format = "turtle"

	// FormatNTriples produces N-Triples (.nt) output.
	FormatNTriples Format = "ntriples"
)

// ErrUnsupportedFormat is returned for an unknown output format.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format `json:"name"`

	// MIMEType is the standard MIME type.
	MIMEType string `json:"mime_type"`

	// Extension is the file extension (with dot).
	Extension string `json:"extension"`

	// Description describes the format.
	Description string `json:"description"`

	// RequiresConversion is true for formats derived from the RDF graph
	// rather than written from the DDI-CDI node list directly.
	RequiresConversion bool `json:"requires_conversion"`
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatJSONLD: {
		Name:        FormatJSONLD,
		MIMEType:    "application/ld+json",
		Extension:   ".jsonld",
		Description: "JSON-LD - DDI-CDI graph for Linked Data",
	},
	FormatXML: {
		Name:        FormatXML,
		MIMEType:    "application/xml",
		Extension:   ".xml",
		Description: "DDI-CDI XML - schema-conformant XML encoding",
	},
	FormatTurtle: {
		Name:               FormatTurtle,
		MIMEType:           "text/turtle",
		Extension:          ".ttl",
		Description:        "Turtle - Terse RDF Triple Language",
		RequiresConversion: true,
	},
	FormatNTriples: {
		Name:               FormatNTriples,
		MIMEType:           "application/n-triples",
		Extension:          ".nt",
		Description:        "N-Triples - Line-based RDF format",
		RequiresConversion: true,
	},
}

// formatOrder is the listing order of Formats.
var formatOrder = []Format{FormatJSONLD, FormatXML, FormatTurtle, FormatNTriples}

var formatAliases = map[string]Format{
	"json-ld":   FormatJSONLD,
	"json":      FormatJSONLD,
	"ttl":       FormatTurtle,
	"nt":        FormatNTriples,
	"n-triples": FormatNTriples,
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// Formats returns every supported format in a stable order.
func Formats() []FormatInfo {
	out := make([]FormatInfo, 0, len(formatOrder))
	for _, f := range formatOrder {
		out = append(out, FormatRegistry[f])
	}
	return out
}

// ParseFormat resolves a format name, accepting common aliases
// ("json-ld", "ttl", "nt") case-insensitively. An empty name is JSON-LD.
func ParseFormat(name string) (Format, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return FormatJSONLD, nil
	}
	if _, ok := FormatRegistry[Format(n)]; ok {
		return Format(n), nil
	}
	if f, ok := formatAliases[n]; ok {
		return f, nil
	}
	return "", errs.WrapInvalid(fmt.Errorf("%w: %s", ErrUnsupportedFormat, name),
		"export", "ParseFormat", "parse format")
}

// OutputName returns the file name a conversion of input is written to:
// the input base name without extension, "_DDICDI", and the format's
// extension.
func OutputName(input string, format Format) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	ext := ".jsonld"
	if info, ok := FormatRegistry[format]; ok {
		ext = info.Extension
	}
	return base + "_DDICDI" + ext
}
