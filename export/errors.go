package export

import (
	"errors"
	"fmt"
)

// ErrNotSerializable is returned when a node field holds a value the target
// format cannot encode.
var ErrNotSerializable = errors.New("value not serializable")

// NotSerializableError reports the node and field holding an unencodable
// value.
type NotSerializableError struct {
	NodeID string
	Field  string
	Value  any
	Err    error
}

func (e *NotSerializableError) Error() string {
	msg := fmt.Sprintf("node %s field %s: value %v of type %T is not serializable", e.NodeID, e.Field, e.Value, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NotSerializableError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrNotSerializable, e.Err}
	}
	return []error{ErrNotSerializable}
}
