package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind discriminates the variants of Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// Value is a single typed cell, value-label key or missing-range bound.
// The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	t    time.Time
}

// Null returns the null value.
func Null() Value { return Value{} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point value. NaN is kept as a float so that the
// serializer can apply its own missing rule.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Str returns a string value.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Time returns a timestamp value.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Number returns Int when f is integral and representable, Float otherwise.
func Number(f float64) Value {
	if isIntegral(f) {
		return Int(int64(f))
	}
	return Float(f)
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNA reports whether v denotes a missing cell: null or a NaN float.
func (v Value) IsNA() bool {
	return v.kind == KindNull || (v.kind == KindFloat && math.IsNaN(v.f))
}

// AsInt returns the integer held by v.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float held by v.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsTime returns the timestamp held by v.
func (v Value) AsTime() (time.Time, bool) { return v.t, v.kind == KindTime }

// Numeric coerces v to a float64. Integers, non-NaN floats and strings that
// parse as a number coerce; everything else does not.
func (v Value) Numeric() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		if math.IsNaN(v.f) {
			return 0, false
		}
		return v.f, true
	case KindString:
		s := strings.TrimSpace(v.s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// String renders v the way it appears in identifiers and text literals.
// Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return formatFloat(v.f)
	case KindString:
		return v.s
	case KindTime:
		return FormatTime(v.t)
	default:
		return ""
	}
}

// Equal reports whether a and b hold the same variant and value.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindString:
		return v.s == o.s
	case KindTime:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

// FormatTime renders t as ISO-8601: a bare date at midnight UTC, RFC 3339
// with fractional seconds otherwise.
func FormatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isIntegral(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f) &&
		f >= math.MinInt64 && f < math.MaxInt64
}

// NormalizeColumn converts a numeric column whose non-missing cells are all
// integral floats to Int cells. Other columns are returned unchanged.
func NormalizeColumn(col []Value) []Value {
	sawFloat := false
	for _, v := range col {
		switch v.kind {
		case KindNull:
		case KindInt:
		case KindFloat:
			if math.IsNaN(v.f) {
				continue
			}
			if !isIntegral(v.f) {
				return col
			}
			sawFloat = true
		default:
			return col
		}
	}
	if !sawFloat {
		return col
	}
	out := make([]Value, len(col))
	for i, v := range col {
		switch {
		case v.kind == KindFloat && math.IsNaN(v.f):
			out[i] = Null()
		case v.kind == KindFloat:
			out[i] = Int(int64(v.f))
		default:
			out[i] = v
		}
	}
	return out
}

// MarshalJSON encodes v as a JSON scalar. NaN encodes as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindFloat:
		if math.IsNaN(v.f) {
			return []byte("null"), nil
		}
		if math.IsInf(v.f, 0) {
			return nil, &UnsupportedValueError{Value: v}
		}
		return strconv.AppendFloat(nil, v.f, 'f', -1, 64), nil
	case KindString:
		return json.Marshal(v.s)
	case KindTime:
		return json.Marshal(FormatTime(v.t))
	default:
		return []byte("null"), nil
	}
}

// UnsupportedValueError reports a value with no JSON encoding.
type UnsupportedValueError struct {
	Value Value
}

func (e *UnsupportedValueError) Error() string {
	return "dataset: unsupported value " + e.Value.String()
}
