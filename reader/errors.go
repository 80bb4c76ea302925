package reader

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedFormat is returned for a file extension no reader handles.
	ErrUnsupportedFormat = errors.New("unsupported input format")

	// ErrDecode is returned when no candidate text encoding decodes a file.
	ErrDecode = errors.New("could not decode file with any encoding")

	// ErrSchema is returned for a JSON document that does not match its
	// declared shape.
	ErrSchema = errors.New("invalid dataset schema")

	// ErrMalformed is returned for a structurally broken binary file.
	ErrMalformed = errors.New("malformed data file")
)

// DecodeError reports the encodings tried for a file.
type DecodeError struct {
	Path  string
	Tried []string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: could not decode with any of [%s]", e.Path, strings.Join(e.Tried, ", "))
}

func (e *DecodeError) Unwrap() error { return ErrDecode }

// SchemaError reports the variable and reason of a schema violation.
type SchemaError struct {
	Variable string
	Reason   string
}

func (e *SchemaError) Error() string {
	if e.Variable == "" {
		return "schema: " + e.Reason
	}
	return fmt.Sprintf("schema: variable %s: %s", e.Variable, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
