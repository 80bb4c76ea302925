package reader

import (
	"bytes"
	"encoding/binary"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/c360studio/ddicdi/dataset"
)

// Stata storage types after normalizing the release specific codes.
const (
	dtaByte = iota + 1
	dtaInt
	dtaLong
	dtaFloat
	dtaDouble
	dtaStr
	dtaStrL
)

// stataEpoch is the origin of Stata date values.
var stataEpoch = time.Date(1960, time.January, 1, 0, 0, 0, 0, time.UTC)

// DTAReader reads Stata datasets, releases 114 and 115 and the tagged
// releases 117, 118 and 119.
type DTAReader struct{}

// NewDTAReader creates a Stata reader.
func NewDTAReader() *DTAReader { return &DTAReader{} }

// Name implements Reader.
func (*DTAReader) Name() string { return "stata" }

// Extensions implements Reader.
func (*DTAReader) Extensions() []string { return []string{".dta"} }

type dtaVar struct {
	kind      int
	width     int
	name      []byte
	format    []byte
	labelName []byte
	label     []byte
}

// strlRef locates a long string by variable and observation.
type strlRef struct {
	v, o uint64
}

type dtaFile struct {
	release   int
	order     binary.ByteOrder
	nobs      int
	dataLabel []byte
	vars      []dtaVar
	rows      [][]any // raw cells: []byte, int64, float64, strlRef or missing
	strls     map[strlRef][]byte
	rawLabels map[string][]dtaRawLabel
}

type dtaRawLabel struct {
	value int32
	text  []byte
}

// dtaMissing is an extended (1..26) or system (0) missing code.
type dtaMissing int

// Read implements Reader.
func (d *DTAReader) Read(filename string, content []byte, opts Options) (*dataset.Dataset, error) {
	var (
		f   *dtaFile
		err error
	)
	if bytes.HasPrefix(content, []byte("<stata_dta>")) {
		f, err = parseTaggedDTA(content, opts)
	} else {
		f, err = parseBinaryDTA(content, opts)
	}
	if err != nil {
		return nil, err
	}

	dec := textDecoder{name: "utf-8"}
	if f.release < 118 {
		var samples [][]byte
		samples = append(samples, f.dataLabel)
		for _, v := range f.vars {
			samples = append(samples, v.name, v.label)
		}
		for _, ls := range f.rawLabels {
			for _, l := range ls {
				samples = append(samples, l.text)
			}
		}
		if dec, err = chooseDecoder(filename, samples, opts); err != nil {
			return nil, err
		}
	}
	return f.dataset(dec), nil
}

func (f *dtaFile) dataset(dec textDecoder) *dataset.Dataset {
	names := make([]string, len(f.vars))
	for i, v := range f.vars {
		names[i] = dec.lossy(cString(v.name))
	}
	meta := dataset.NewMetadata(names...)
	meta.FileLabel = dec.lossy(cString(f.dataLabel))
	meta.FileEncoding = dec.name
	meta.RowCount = f.nobs

	table := dataset.NewTable()
	for i, v := range f.vars {
		name := names[i]
		format := string(cString(v.format))
		meta.Formats[name] = format
		meta.MeasurementLevels[name] = dataset.LevelUnknown
		if l := cString(v.label); len(l) > 0 {
			meta.ColumnLabels[name] = dec.lossy(l)
		}
		if ln := string(cString(v.labelName)); ln != "" {
			for _, rl := range f.rawLabels[ln] {
				meta.ValueLabels[name] = append(meta.ValueLabels[name], dataset.ValueLabel{
					Value: dataset.Int(int64(rl.value)),
					Label: dec.lossy(rl.text),
				})
			}
		}

		dateKind := stataDateKind(format)
		col := make([]dataset.Value, len(f.rows))
		for r, row := range f.rows {
			switch c := row[i].(type) {
			case dtaMissing:
				if c == 0 {
					col[r] = dataset.Null()
					continue
				}
				code := dataset.Str("." + string(rune('a'+c-1)))
				col[r] = code
				if !slices.ContainsFunc(meta.MissingUserValues[name], code.Equal) {
					meta.MissingUserValues[name] = append(meta.MissingUserValues[name], code)
				}
			case int64:
				col[r] = stataNumber(float64(c), dataset.Int(c), dateKind)
			case float64:
				col[r] = stataNumber(c, dataset.Float(c), dateKind)
			case []byte:
				col[r] = dataset.Str(dec.lossy(cString(c)))
			case strlRef:
				col[r] = dataset.Str(dec.lossy(cString(f.strls[c])))
			}
		}
		if dateKind == "" && (v.kind == dtaFloat || v.kind == dtaDouble) {
			col = dataset.NormalizeColumn(col)
		}
		_ = table.Set(name, col)
		meta.DeclaredTypes[name] = stataType(v, dateKind)
	}
	return &dataset.Dataset{Table: table, Metadata: meta}
}

// stataDateKind returns "date" or "datetime" for Stata date formats.
func stataDateKind(format string) string {
	f := strings.TrimPrefix(format, "%")
	switch {
	case strings.HasPrefix(f, "td"), strings.HasPrefix(f, "d"):
		return "date"
	case strings.HasPrefix(f, "tc"), strings.HasPrefix(f, "tC"):
		return "datetime"
	}
	return ""
}

func stataNumber(f float64, v dataset.Value, dateKind string) dataset.Value {
	switch dateKind {
	case "date":
		return dataset.Time(stataEpoch.AddDate(0, 0, int(f)))
	case "datetime":
		ms := int64(f)
		return dataset.Time(stataEpoch.Add(time.Duration(ms/1000) * time.Second).Add(time.Duration(ms%1000) * time.Millisecond))
	}
	return v
}

func stataType(v dtaVar, dateKind string) string {
	if dateKind != "" {
		return dateKind
	}
	switch v.kind {
	case dtaByte:
		return "int8"
	case dtaInt:
		return "int16"
	case dtaLong:
		return "int32"
	case dtaFloat:
		return "float32"
	case dtaDouble:
		return "float64"
	case dtaStrL:
		return "strl"
	}
	return "string"
}

// parseBinaryDTA reads releases 114 and 115.
func parseBinaryDTA(b []byte, opts Options) (*dtaFile, error) {
	if len(b) < 109 {
		return nil, malformed("stata header truncated")
	}
	f := &dtaFile{release: int(b[0])}
	if f.release != 114 && f.release != 115 {
		return nil, malformed("unsupported stata release %d", f.release)
	}
	switch b[1] {
	case 1:
		f.order = binary.BigEndian
	case 2:
		f.order = binary.LittleEndian
	default:
		return nil, malformed("unknown stata byte order %d", b[1])
	}
	c := newCursor(b, f.order)
	c.skip(4)
	nvar := int(c.u16())
	f.nobs = int(c.u32())
	f.dataLabel = c.take(81)
	c.skip(18) // time stamp

	f.vars = make([]dtaVar, nvar)
	for i := range f.vars {
		code := int(c.u8())
		switch {
		case code >= 1 && code <= 244:
			f.vars[i].kind, f.vars[i].width = dtaStr, code
		case code == 251:
			f.vars[i].kind = dtaByte
		case code == 252:
			f.vars[i].kind = dtaInt
		case code == 253:
			f.vars[i].kind = dtaLong
		case code == 254:
			f.vars[i].kind = dtaFloat
		case code == 255:
			f.vars[i].kind = dtaDouble
		default:
			if c.err == nil {
				return nil, malformed("unknown stata type %d", code)
			}
		}
	}
	for i := range f.vars {
		f.vars[i].name = c.take(33)
	}
	c.skip(2 * (nvar + 1)) // sort list
	for i := range f.vars {
		f.vars[i].format = c.take(49)
	}
	for i := range f.vars {
		f.vars[i].labelName = c.take(33)
	}
	for i := range f.vars {
		f.vars[i].label = c.take(81)
	}
	for c.err == nil {
		typ := c.u8()
		n := int(c.i32())
		if typ == 0 && n == 0 {
			break
		}
		c.skip(n)
	}
	if c.err != nil {
		return nil, c.err
	}
	if err := f.readRows(c, opts); err != nil {
		return nil, err
	}

	f.rawLabels = map[string][]dtaRawLabel{}
	for c.remaining() > 0 {
		c.i32() // table length
		name := string(cString(c.take(33)))
		c.skip(3)
		if err := f.readLabelTable(c, name); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// parseTaggedDTA reads releases 117, 118 and 119.
func parseTaggedDTA(b []byte, opts Options) (*dtaFile, error) {
	c := newCursor(b, binary.LittleEndian)
	c.expect("<stata_dta><header><release>")
	rel, err := strconv.Atoi(string(c.take(3)))
	if c.err != nil {
		return nil, c.err
	}
	if err != nil || (rel != 117 && rel != 118 && rel != 119) {
		return nil, malformed("unsupported stata release %q", b[28:31])
	}
	f := &dtaFile{release: rel}
	c.expect("</release><byteorder>")
	switch bo := string(c.take(3)); bo {
	case "LSF":
		f.order = binary.LittleEndian
	case "MSF":
		f.order = binary.BigEndian
	default:
		if c.err == nil {
			return nil, malformed("unknown stata byte order %q", bo)
		}
	}
	c.order = f.order
	c.expect("</byteorder><K>")
	var nvar int
	if rel == 119 {
		nvar = int(c.u32())
	} else {
		nvar = int(c.u16())
	}
	c.expect("</K><N>")
	if rel == 117 {
		f.nobs = int(c.u32())
	} else {
		f.nobs = int(c.u64())
	}
	c.expect("</N><label>")
	var labelLen int
	if rel == 117 {
		labelLen = int(c.u8())
	} else {
		labelLen = int(c.u16())
	}
	f.dataLabel = c.take(labelLen)
	c.expect("</label><timestamp>")
	c.skip(int(c.u8()))
	c.expect("</timestamp></header><map>")
	c.skip(14 * 8)
	c.expect("</map><variable_types>")

	nameLen, formatLen, varLabelLen := 129, 57, 321
	if rel == 117 {
		nameLen, formatLen, varLabelLen = 33, 49, 81
	}
	if c.err != nil {
		return nil, c.err
	}
	if nvar > c.remaining()/2 {
		return nil, malformed("stata variable count %d exceeds file", nvar)
	}
	f.vars = make([]dtaVar, nvar)
	for i := range f.vars {
		code := int(c.u16())
		switch {
		case code >= 1 && code <= 2045:
			f.vars[i].kind, f.vars[i].width = dtaStr, code
		case code == 32768:
			f.vars[i].kind = dtaStrL
		case code == 65526:
			f.vars[i].kind = dtaDouble
		case code == 65527:
			f.vars[i].kind = dtaFloat
		case code == 65528:
			f.vars[i].kind = dtaLong
		case code == 65529:
			f.vars[i].kind = dtaInt
		case code == 65530:
			f.vars[i].kind = dtaByte
		default:
			if c.err == nil {
				return nil, malformed("unknown stata type %d", code)
			}
		}
	}
	c.expect("</variable_types><varnames>")
	for i := range f.vars {
		f.vars[i].name = c.take(nameLen)
	}
	c.expect("</varnames><sortlist>")
	if rel == 119 {
		c.skip(4 * (nvar + 1))
	} else {
		c.skip(2 * (nvar + 1))
	}
	c.expect("</sortlist><formats>")
	for i := range f.vars {
		f.vars[i].format = c.take(formatLen)
	}
	c.expect("</formats><value_label_names>")
	for i := range f.vars {
		f.vars[i].labelName = c.take(nameLen)
	}
	c.expect("</value_label_names><variable_labels>")
	for i := range f.vars {
		f.vars[i].label = c.take(varLabelLen)
	}
	c.expect("</variable_labels>")
	if c.err != nil {
		return nil, c.err
	}
	end := bytes.Index(b[c.off:], []byte("</characteristics>"))
	if end < 0 {
		return nil, malformed("missing characteristics section")
	}
	c.skip(end + len("</characteristics>"))
	c.expect("<data>")
	if c.err != nil {
		return nil, c.err
	}
	if err := f.readRows(c, opts); err != nil {
		return nil, err
	}
	c.expect("</data><strls>")

	f.strls = map[strlRef][]byte{}
	for c.err == nil && bytes.HasPrefix(b[c.off:], []byte("GSO")) {
		c.skip(3)
		ref := strlRef{v: uint64(c.u32())}
		if rel == 117 {
			ref.o = uint64(c.u32())
		} else {
			ref.o = c.u64()
		}
		c.u8() // 129 binary, 130 text with trailing NUL
		n := int(c.u32())
		f.strls[ref] = c.take(n)
	}
	c.expect("</strls><value_labels>")

	f.rawLabels = map[string][]dtaRawLabel{}
	for c.err == nil && bytes.HasPrefix(b[c.off:], []byte("<lbl>")) {
		c.skip(5)
		c.i32() // table length
		name := string(cString(c.take(nameLen)))
		c.skip(3)
		if err := f.readLabelTable(c, name); err != nil {
			return nil, err
		}
		c.expect("</lbl>")
	}
	c.expect("</value_labels></stata_dta>")
	if c.err != nil {
		return nil, c.err
	}
	return f, nil
}

// readLabelTable reads one value label table: counts, offsets, values and
// the packed label text.
func (f *dtaFile) readLabelTable(c *cursor, name string) error {
	n := int(c.i32())
	txtLen := int(c.i32())
	if c.err != nil {
		return c.err
	}
	if n < 0 || txtLen < 0 || n > c.remaining()/8 {
		return malformed("bad value label table %s", name)
	}
	offsets := make([]int, n)
	for i := range offsets {
		offsets[i] = int(c.i32())
	}
	values := make([]int32, n)
	for i := range values {
		values[i] = c.i32()
	}
	txt := c.take(txtLen)
	if c.err != nil {
		return c.err
	}
	for i := range n {
		if offsets[i] < 0 || offsets[i] > len(txt) {
			return malformed("value label offset out of range in %s", name)
		}
		f.rawLabels[name] = append(f.rawLabels[name], dtaRawLabel{value: values[i], text: cString(txt[offsets[i]:])})
	}
	return nil
}

// readRows reads the observations, keeping at most the row limit.
func (f *dtaFile) readRows(c *cursor, opts Options) error {
	keep := opts.limit(f.nobs)
	f.rows = make([][]any, 0, min(keep, c.remaining()))
	for r := range f.nobs {
		row := make([]any, len(f.vars))
		for i, v := range f.vars {
			row[i] = f.readCell(c, v)
		}
		if c.err != nil {
			return c.err
		}
		if r < keep {
			f.rows = append(f.rows, row)
		}
	}
	return nil
}

func (f *dtaFile) readCell(c *cursor, v dtaVar) any {
	switch v.kind {
	case dtaByte:
		x := c.i8()
		if x > 100 {
			return dtaMissing(x - 101)
		}
		return int64(x)
	case dtaInt:
		x := c.i16()
		if x > 32740 {
			return dtaMissing(x - 32741)
		}
		return int64(x)
	case dtaLong:
		x := c.i32()
		if x > 2147483620 {
			return dtaMissing(x - 2147483621)
		}
		return int64(x)
	case dtaFloat:
		bits := c.u32()
		if bits >= 0x7f000000 && bits < 0x80000000 {
			return dtaMissing((bits - 0x7f000000) >> 11)
		}
		return float64(math.Float32frombits(bits))
	case dtaDouble:
		bits := c.u64()
		if bits >= 0x7fe0000000000000 && bits < 0x8000000000000000 {
			return dtaMissing((bits - 0x7fe0000000000000) >> 40)
		}
		return math.Float64frombits(bits)
	case dtaStr:
		return c.take(v.width)
	case dtaStrL:
		raw := c.take(8)
		if raw == nil {
			return nil
		}
		return f.decodeStrL(raw)
	}
	return nil
}

// decodeStrL decodes the (variable, observation) pair of a strL cell.
func (f *dtaFile) decodeStrL(raw []byte) strlRef {
	switch f.release {
	case 117:
		return strlRef{v: uint64(f.order.Uint32(raw[:4])), o: uint64(f.order.Uint32(raw[4:]))}
	case 118:
		return strlRef{v: uint64(f.order.Uint16(raw[:2])), o: uintN(raw[2:], f.order)}
	default:
		return strlRef{v: uintN(raw[:3], f.order), o: uintN(raw[3:], f.order)}
	}
}

// uintN decodes an unsigned integer of len(b) bytes.
func uintN(b []byte, order binary.ByteOrder) uint64 {
	var buf [8]byte
	if order == binary.LittleEndian {
		copy(buf[:], b)
		return binary.LittleEndian.Uint64(buf[:])
	}
	copy(buf[8-len(b):], b)
	return binary.BigEndian.Uint64(buf[:])
}
