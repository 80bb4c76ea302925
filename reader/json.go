package reader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/c360studio/ddicdi/dataset"
)

// defaultKeySeparators split flat map keys when decomposing.
const defaultKeySeparators = "./"

// JSONReader reads three document shapes: a described dataset with a
// "variables" object, an array of records, and a flat key/value map.
type JSONReader struct{}

// NewJSONReader creates a JSON reader.
func NewJSONReader() *JSONReader { return &JSONReader{} }

// Name implements Reader.
func (*JSONReader) Name() string { return "json" }

// Extensions implements Reader.
func (*JSONReader) Extensions() []string { return []string{".json"} }

// object is a JSON object that keeps its keys in document order.
type object struct {
	keys   []string
	values map[string]any
}

func (o *object) get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Read implements Reader.
func (j *JSONReader) Read(filename string, content []byte, opts Options) (*dataset.Dataset, error) {
	text, enc, err := decodeText(filename, content, opts)
	if err != nil {
		return nil, err
	}
	doc, err := decodeOrdered(text)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}

	var ds *dataset.Dataset
	switch v := doc.(type) {
	case *object:
		if vars, ok := v.get("variables"); ok {
			if vo, ok := vars.(*object); ok {
				ds, err = readSchema(v, vo, opts)
				break
			}
		}
		ds, err = readFlatMap(v, opts)
	case []any:
		ds, err = readRecords(v, opts)
	default:
		err = &SchemaError{Reason: "document must be an object or an array"}
	}
	if err != nil {
		return nil, err
	}
	ds.Metadata.FileEncoding = enc
	return ds, nil
}

// readSchema reads {dataset_name, variables: {name: {type, description,
// values, value_labels, missing_values}}}.
func readSchema(doc, vars *object, opts Options) (*dataset.Dataset, error) {
	meta := dataset.NewMetadata(vars.keys...)
	if name, ok := doc.get("dataset_name"); ok {
		meta.FileLabel = scalarText(name)
	}
	table := dataset.NewTable()
	rows := -1
	for _, name := range vars.keys {
		spec, ok := vars.values[name].(*object)
		if !ok {
			return nil, &SchemaError{Variable: name, Reason: "definition must be an object"}
		}
		raw, ok := spec.get("values")
		if !ok {
			return nil, &SchemaError{Variable: name, Reason: "missing values array"}
		}
		cells, ok := raw.([]any)
		if !ok {
			return nil, &SchemaError{Variable: name, Reason: "values must be an array"}
		}
		if rows >= 0 && len(cells) != rows {
			return nil, &SchemaError{Variable: name, Reason: fmt.Sprintf("has %d values, expected %d", len(cells), rows)}
		}
		rows = len(cells)

		typ := ""
		if t, ok := spec.get("type"); ok {
			typ = strings.ToLower(scalarText(t))
		}
		col, inferred, err := typedColumn(cells[:opts.limit(len(cells))], typ)
		if err != nil {
			return nil, &SchemaError{Variable: name, Reason: err.Error()}
		}
		if typ == "" {
			typ = inferred
		}
		if err := table.Set(name, col); err != nil {
			return nil, &SchemaError{Variable: name, Reason: err.Error()}
		}
		meta.DeclaredTypes[name] = typ

		if d, ok := spec.get("description"); ok {
			meta.ColumnLabels[name] = scalarText(d)
		}
		level := levelFor(inferred)
		if m, ok := spec.get("measure"); ok {
			level = dataset.MeasurementLevel(strings.ToLower(scalarText(m)))
		}
		meta.MeasurementLevels[name] = level

		if vl, ok := spec.get("value_labels"); ok {
			labels, ok := vl.(*object)
			if !ok {
				return nil, &SchemaError{Variable: name, Reason: "value_labels must be an object"}
			}
			for _, k := range labels.keys {
				meta.ValueLabels[name] = append(meta.ValueLabels[name], dataset.ValueLabel{
					Value: keyValue(k),
					Label: scalarText(labels.values[k]),
				})
			}
		}
		if mv, ok := spec.get("missing_values"); ok {
			if err := readMissing(meta, name, mv); err != nil {
				return nil, err
			}
		}
	}
	meta.RowCount = max(rows, 0)
	return &dataset.Dataset{Table: table, Metadata: meta}, nil
}

// readMissing accepts scalars as discrete values and {lo, hi} objects as
// ranges.
func readMissing(meta *dataset.Metadata, name string, raw any) error {
	list, ok := raw.([]any)
	if !ok {
		return &SchemaError{Variable: name, Reason: "missing_values must be an array"}
	}
	for _, item := range list {
		if r, ok := item.(*object); ok {
			lo, okLo := r.get("lo")
			hi, okHi := r.get("hi")
			if !okLo || !okHi {
				return &SchemaError{Variable: name, Reason: "missing range needs lo and hi"}
			}
			meta.MissingRanges[name] = append(meta.MissingRanges[name], dataset.MissingRange{
				Lo: scalarValue(lo),
				Hi: scalarValue(hi),
			})
			continue
		}
		meta.MissingUserValues[name] = append(meta.MissingUserValues[name], scalarValue(item))
	}
	return nil
}

// typedColumn converts JSON cells. Date types parse string cells; other
// columns keep the JSON scalar kinds.
func typedColumn(cells []any, typ string) ([]dataset.Value, string, error) {
	switch typ {
	case "date", "datetime", "timestamp":
		col := make([]dataset.Value, len(cells))
		for i, c := range cells {
			if c == nil {
				continue
			}
			s := scalarText(c)
			if isNullToken(s) {
				continue
			}
			v, ok := parseDate(s)
			if !ok {
				return nil, "", fmt.Errorf("row %d: %q is not a date", i, s)
			}
			col[i] = v
		}
		return col, typeDatetime, nil
	}
	col := make([]dataset.Value, len(cells))
	kinds := map[dataset.Kind]bool{}
	for i, c := range cells {
		if _, nested := c.(*object); nested {
			return nil, "", fmt.Errorf("row %d: nested object", i)
		}
		if _, nested := c.([]any); nested {
			return nil, "", fmt.Errorf("row %d: nested array", i)
		}
		col[i] = scalarValue(c)
		if !col[i].IsNull() {
			kinds[col[i].Kind()] = true
		}
	}
	switch {
	case kinds[dataset.KindString]:
		return col, typeString, nil
	case kinds[dataset.KindFloat]:
		norm, tag := normalizeFloats(col)
		return norm, tag, nil
	case kinds[dataset.KindInt]:
		return col, typeInt, nil
	}
	return col, typeString, nil
}

// readRecords reads an array of flat objects. Columns follow first
// appearance.
func readRecords(records []any, opts Options) (*dataset.Dataset, error) {
	var names []string
	index := map[string]bool{}
	for i, r := range records {
		rec, ok := r.(*object)
		if !ok {
			return nil, &SchemaError{Reason: fmt.Sprintf("record %d is not an object", i)}
		}
		for _, k := range rec.keys {
			if !index[k] {
				index[k] = true
				names = append(names, k)
			}
		}
	}
	n := opts.limit(len(records))
	cells := make(map[string][]string, len(names))
	for _, r := range records[:n] {
		rec := r.(*object)
		for _, name := range names {
			v, ok := rec.values[name]
			if !ok || v == nil {
				cells[name] = append(cells[name], "")
				continue
			}
			cells[name] = append(cells[name], scalarText(v))
		}
	}
	meta := dataset.NewMetadata(names...)
	meta.RowCount = len(records)
	table, err := columnTable(names, cells, meta)
	if err != nil {
		return nil, err
	}
	return &dataset.Dataset{Table: table, Metadata: meta}, nil
}

// readFlatMap turns {key: value} into a long table. Nested objects are
// flattened with "." joined keys.
func readFlatMap(doc *object, opts Options) (*dataset.Dataset, error) {
	var keys, values []string
	flatten(doc, "", &keys, &values)

	names := []string{"key"}
	cells := map[string][]string{}
	if opts.DecomposeKeys {
		seps := opts.KeySeparators
		if seps == "" {
			seps = defaultKeySeparators
		}
		parts := make([][]string, len(keys))
		width := 1
		for i, k := range keys {
			parts[i] = strings.FieldsFunc(k, func(r rune) bool { return strings.ContainsRune(seps, r) })
			width = max(width, len(parts[i]))
		}
		names = names[:0]
		for p := 1; p <= width; p++ {
			names = append(names, "key_"+strconv.Itoa(p))
		}
		for _, ps := range parts {
			for p, name := range names {
				cell := ""
				if p < len(ps) {
					cell = ps[p]
				}
				cells[name] = append(cells[name], cell)
			}
		}
	} else {
		cells["key"] = keys
	}
	names = append(names, "value")
	cells["value"] = values

	n := opts.limit(len(keys))
	for name := range cells {
		cells[name] = cells[name][:n]
	}
	meta := dataset.NewMetadata(names...)
	meta.RowCount = len(keys)
	table, err := columnTable(names, cells, meta)
	if err != nil {
		return nil, err
	}
	return &dataset.Dataset{Table: table, Metadata: meta}, nil
}

func flatten(o *object, prefix string, keys, values *[]string) {
	for _, k := range o.keys {
		full := k
		if prefix != "" {
			full = prefix + "." + k
		}
		switch v := o.values[k].(type) {
		case *object:
			flatten(v, full, keys, values)
		case []any:
			parts := make([]string, len(v))
			for i, item := range v {
				parts[i] = scalarText(item)
			}
			*keys = append(*keys, full)
			*values = append(*values, strings.Join(parts, ";"))
		default:
			*keys = append(*keys, full)
			*values = append(*values, scalarText(v))
		}
	}
}

// scalarValue converts a JSON scalar to a cell. Integral numbers become Int.
func scalarValue(v any) dataset.Value {
	switch x := v.(type) {
	case nil:
		return dataset.Null()
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return dataset.Int(i)
		}
		if f, err := x.Float64(); err == nil {
			return dataset.Float(f)
		}
		return dataset.Str(x.String())
	case string:
		return dataset.Str(x)
	case bool:
		return dataset.Str(strconv.FormatBool(x))
	default:
		return dataset.Str(scalarText(v))
	}
}

func scalarText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case json.Number:
		return x.String()
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case *object:
		return "{...}"
	case []any:
		return "[...]"
	default:
		return fmt.Sprint(x)
	}
}

// keyValue converts an object key used as a value label key.
func keyValue(k string) dataset.Value {
	if f, err := strconv.ParseFloat(k, 64); err == nil {
		return dataset.Number(f)
	}
	return dataset.Str(k)
}

// decodeOrdered parses a JSON document keeping object key order.
func decodeOrdered(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after document")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			o := &object{values: map[string]any{}}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key := kt.(string)
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				if _, dup := o.values[key]; !dup {
					o.keys = append(o.keys, key)
				}
				o.values[key] = v
			}
			_, err := dec.Token()
			return o, err
		case '[':
			list := []any{}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, v)
			}
			_, err := dec.Token()
			return list, err
		}
		return nil, fmt.Errorf("unexpected %v", t)
	default:
		return t, nil
	}
}

