package reader

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/c360studio/ddicdi/dataset"
)

// SPSS system file compression codes.
const (
	savUncompressed = 0
	savBytecode     = 1
	savZlib         = 2
)

// savSegment is the number of bytes a very long string stores per segment.
const savSegment = 252

// savSysmis is the system-missing value.
const savSysmis = -math.MaxFloat64

// spssEpoch is the origin of SPSS date values, counted in seconds.
var spssEpoch = time.Date(1582, time.October, 14, 0, 0, 0, 0, time.UTC)

// savFormats names SPSS print format type codes.
var savFormats = map[int]string{
	1: "A", 2: "AHEX", 3: "COMMA", 4: "DOLLAR", 5: "F", 6: "IB", 7: "PIBHEX", 8: "P",
	9: "PIB", 10: "PK", 11: "RB", 12: "RBHEX", 15: "Z", 16: "N", 17: "E", 20: "DATE",
	21: "TIME", 22: "DATETIME", 23: "ADATE", 24: "JDATE", 25: "DTIME", 26: "WKDAY",
	27: "MONTH", 28: "MOYR", 29: "QYR", 30: "WKYR", 31: "PCT", 32: "DOT", 33: "CCA",
	34: "CCB", 35: "CCC", 36: "CCD", 37: "CCE", 38: "EDATE", 39: "SDATE", 40: "MTIME",
	41: "YMDHMS",
}

// Format types whose values are calendar dates or timestamps.
var (
	savDateFormats     = map[string]bool{"DATE": true, "ADATE": true, "EDATE": true, "SDATE": true, "JDATE": true, "MOYR": true, "QYR": true, "WKYR": true}
	savDatetimeFormats = map[string]bool{"DATETIME": true, "YMDHMS": true}
)

// SAVReader reads SPSS system files, uncompressed, bytecode compressed or
// zlib compressed.
type SAVReader struct{}

// NewSAVReader creates an SPSS reader.
func NewSAVReader() *SAVReader { return &SAVReader{} }

// Name implements Reader.
func (*SAVReader) Name() string { return "spss" }

// Extensions implements Reader.
func (*SAVReader) Extensions() []string { return []string{".sav", ".zsav"} }

type savVar struct {
	short    string
	rawName  []byte
	width    int   // 0 for numeric
	segments []int // declared widths of the records holding a string
	label    []byte
	format   int32
	nMissing int32
	missing  [][]byte
	measure  int32
	name     string
}

func (v *savVar) numeric() bool { return v.width == 0 }

type savLabelSet struct {
	values [][]byte
	labels [][]byte
	vars   []int32 // dictionary indices, 1-based
}

type savLongLabels struct {
	name   []byte
	values [][]byte
	labels [][]byte
}

type savLongMissing struct {
	name   []byte
	values [][]byte
}

type savFile struct {
	order       binary.ByteOrder
	compression int32
	ncases      int32
	bias        float64
	fileLabel   []byte

	vars     []*savVar
	byIndex  map[int32]*savVar
	labels   []savLabelSet
	measures []int32

	longNames   []byte
	veryLong    []byte
	encoding    string
	codePage    int32
	longLabels  []savLongLabels
	longMissing []savLongMissing

	dataOffset int
}

// Read implements Reader.
func (s *SAVReader) Read(filename string, content []byte, opts Options) (*dataset.Dataset, error) {
	f, err := parseSAVDictionary(content)
	if err != nil {
		return nil, err
	}
	if err := f.mergeVeryLongStrings(); err != nil {
		return nil, err
	}
	dec, err := f.decoder(filename, opts)
	if err != nil {
		return nil, err
	}
	meta := f.metadata(dec, opts)

	src, err := f.slots(content)
	if err != nil {
		return nil, err
	}
	cols, total, err := f.cases(src, dec, opts)
	if err != nil {
		return nil, err
	}

	table := dataset.NewTable()
	for i, v := range f.vars {
		col := cols[i]
		typ := "string"
		if v.numeric() {
			format := meta.Formats[v.name]
			switch {
			case savDateFormats[formatType(format)]:
				typ = "date"
			case savDatetimeFormats[formatType(format)]:
				typ = "datetime"
			default:
				col = dataset.NormalizeColumn(col)
				typ = numericType(col)
			}
		}
		if err := table.Set(v.name, col); err != nil {
			return nil, malformed("%v", err)
		}
		meta.DeclaredTypes[v.name] = typ
	}
	meta.RowCount = total
	return &dataset.Dataset{Table: table, Metadata: meta}, nil
}

func parseSAVDictionary(b []byte) (*savFile, error) {
	if len(b) < 176 {
		return nil, malformed("spss header truncated")
	}
	magic := string(b[:4])
	if magic != "$FL2" && magic != "$FL3" {
		return nil, malformed("not an spss system file")
	}
	f := &savFile{byIndex: map[int32]*savVar{}}
	switch layout := binary.LittleEndian.Uint32(b[64:68]); layout {
	case 2, 3:
		f.order = binary.LittleEndian
	default:
		if l := binary.BigEndian.Uint32(b[64:68]); l != 2 && l != 3 {
			return nil, malformed("unknown layout code %d", layout)
		}
		f.order = binary.BigEndian
	}

	c := newCursor(b, f.order)
	c.skip(68)
	c.i32() // nominal case size
	f.compression = c.i32()
	c.i32() // weight index
	f.ncases = c.i32()
	f.bias = c.f64()
	c.skip(17) // creation date and time
	f.fileLabel = padded(c.take(64))
	c.skip(3)

	if f.compression == savZlib && magic != "$FL3" {
		return nil, malformed("zlib compression in a $FL2 file")
	}

	var index int32
	for c.err == nil {
		switch rt := c.i32(); rt {
		case 2:
			index++
			f.readVariable(c, index)
		case 3:
			f.readValueLabels(c)
		case 6:
			n := c.i32()
			c.skip(int(n) * 80)
		case 7:
			f.readExtension(c)
		case 999:
			c.i32()
			if c.err != nil {
				return nil, c.err
			}
			f.dataOffset = c.off
			return f, nil
		default:
			if c.err == nil {
				return nil, malformed("unknown record type %d at offset %d", rt, c.off-4)
			}
		}
	}
	return nil, c.err
}

func (f *savFile) readVariable(c *cursor, index int32) {
	typ := c.i32()
	hasLabel := c.i32()
	nMissing := c.i32()
	printFormat := c.i32()
	c.i32() // write format
	name := c.take(8)
	var label []byte
	if hasLabel == 1 {
		n := int(c.i32())
		label = c.take(n)
		c.skip((4 - n%4) % 4)
	}
	if c.err != nil {
		return
	}
	// 1..3 discrete values, -2 a range, -3 a range plus one value.
	if nMissing < -3 || nMissing > 3 || nMissing == -1 {
		c.err = malformed("variable %d: invalid missing value count %d", index, nMissing)
		return
	}
	n := nMissing
	if n < 0 {
		n = -n
	}
	missing := make([][]byte, 0, n)
	for range n {
		missing = append(missing, c.take(8))
		if c.err != nil {
			return
		}
	}
	if typ == -1 {
		if len(f.vars) == 0 {
			c.err = malformed("continuation record without a variable")
			return
		}
		f.byIndex[index] = nil
		return
	}
	v := &savVar{
		short:    string(padded(name)),
		rawName:  padded(name),
		width:    int(typ),
		label:    label,
		format:   printFormat,
		nMissing: nMissing,
		missing:  missing,
	}
	if typ > 0 {
		v.segments = []int{int(typ)}
	}
	f.vars = append(f.vars, v)
	f.byIndex[index] = v
}

func (f *savFile) readValueLabels(c *cursor) {
	n := int(c.i32())
	if n < 0 || n > c.remaining()/9 {
		c.err = malformed("bad value label count %d", n)
		return
	}
	var set savLabelSet
	for range n {
		val := c.take(8)
		l := int(c.u8())
		label := c.take(l)
		c.skip((8 - (l+1)%8) % 8)
		set.values = append(set.values, val)
		set.labels = append(set.labels, label)
	}
	if rt := c.i32(); c.err == nil && rt != 4 {
		c.err = malformed("value labels not followed by a variable index record")
		return
	}
	nv := int(c.i32())
	if nv < 0 || nv > c.remaining()/4 {
		c.err = malformed("bad value label variable count %d", nv)
		return
	}
	for range nv {
		set.vars = append(set.vars, c.i32())
	}
	f.labels = append(f.labels, set)
}

func (f *savFile) readExtension(c *cursor) {
	subtype := c.i32()
	size := int(c.i32())
	count := int(c.i32())
	if size < 0 || count < 0 || (size > 0 && count > c.remaining()/size) {
		c.err = malformed("bad extension record %d", subtype)
		return
	}
	data := c.take(size * count)
	if c.err != nil {
		return
	}
	e := newCursor(data, f.order)
	switch subtype {
	case 3:
		if count >= 8 {
			e.skip(28)
			f.codePage = e.i32()
		}
	case 11:
		for range count {
			f.measures = append(f.measures, e.i32())
		}
	case 13:
		f.longNames = data
	case 14:
		f.veryLong = data
	case 20:
		f.encoding = string(padded(data))
	case 21:
		for e.remaining() > 0 && e.err == nil {
			var ll savLongLabels
			ll.name = e.take(int(e.i32()))
			e.i32() // width
			n := int(e.i32())
			for i := 0; i < n && e.err == nil; i++ {
				ll.values = append(ll.values, e.take(int(e.i32())))
				ll.labels = append(ll.labels, e.take(int(e.i32())))
			}
			f.longLabels = append(f.longLabels, ll)
		}
	case 22:
		for e.remaining() > 0 && e.err == nil {
			var lm savLongMissing
			lm.name = e.take(int(e.i32()))
			n := int(e.u8())
			width := int(e.i32())
			for i := 0; i < n && e.err == nil; i++ {
				lm.values = append(lm.values, e.take(width))
			}
			f.longMissing = append(f.longMissing, lm)
		}
	}
	if e.err != nil {
		c.err = fmt.Errorf("extension record %d: %w", subtype, e.err)
	}
}

// mergeVeryLongStrings folds the segment variables of each very long string
// into its first segment and applies display measures.
func (f *savFile) mergeVeryLongStrings() error {
	if len(f.measures) > 0 {
		per := 2
		if len(f.measures) == 3*len(f.vars) {
			per = 3
		}
		for i, v := range f.vars {
			if i*per < len(f.measures) {
				v.measure = f.measures[i*per]
			}
		}
	}
	widths := map[string]int{}
	for _, entry := range splitEntries(string(f.veryLong)) {
		k, val, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		w, err := strconv.Atoi(strings.TrimSpace(strings.Trim(val, "\x00")))
		if err != nil {
			return malformed("very long string width %q", val)
		}
		widths[strings.ToUpper(strings.TrimSpace(k))] = w
	}
	if len(widths) == 0 {
		return nil
	}
	merged := f.vars[:0:0]
	for i := 0; i < len(f.vars); i++ {
		v := f.vars[i]
		w, ok := widths[strings.ToUpper(v.short)]
		if !ok || v.numeric() {
			merged = append(merged, v)
			continue
		}
		n := (w + savSegment - 1) / savSegment
		if i+n > len(f.vars) {
			return malformed("very long string %s has %d segments, dictionary ends", v.short, n)
		}
		for _, seg := range f.vars[i+1 : i+n] {
			v.segments = append(v.segments, seg.segments...)
		}
		v.width = w
		merged = append(merged, v)
		i += n - 1
	}
	f.vars = merged
	return nil
}

func splitEntries(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == '\t' || r == 0 })
}

// decoder picks the dictionary text encoding: the declared encoding, then
// the declared code page, then the configured candidates.
func (f *savFile) decoder(filename string, opts Options) (textDecoder, error) {
	if f.encoding != "" {
		if d, err := lookupEncoding(f.encoding); err == nil {
			return d, nil
		}
		opts.logger().Warn("unknown declared encoding", slog.String("file", filename), slog.String("encoding", f.encoding))
	}
	if name, ok := codePages[f.codePage]; ok {
		if d, err := lookupEncoding(name); err == nil {
			return d, nil
		}
	}
	samples := [][]byte{f.fileLabel, f.longNames}
	for _, v := range f.vars {
		samples = append(samples, v.rawName, v.label)
	}
	for _, set := range f.labels {
		samples = append(samples, set.labels...)
	}
	return chooseDecoder(filename, samples, opts)
}

func (f *savFile) metadata(dec textDecoder, opts Options) *dataset.Metadata {
	long := map[string]string{}
	for _, entry := range strings.Split(dec.lossy(f.longNames), "\t") {
		if k, v, ok := strings.Cut(entry, "="); ok {
			long[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
	}
	var names []string
	byName := map[string]*savVar{}
	for _, v := range f.vars {
		v.name = dec.lossy(v.rawName)
		if ln, ok := long[strings.ToUpper(v.name)]; ok && ln != "" {
			v.name = ln
		}
		names = append(names, v.name)
		byName[strings.ToUpper(v.name)] = v
		byName[strings.ToUpper(v.short)] = v
	}

	meta := dataset.NewMetadata(names...)
	meta.FileLabel = dec.lossy(f.fileLabel)
	meta.FileEncoding = dec.name
	for _, v := range f.vars {
		if len(v.label) > 0 {
			meta.ColumnLabels[v.name] = dec.lossy(v.label)
		}
		meta.Formats[v.name] = formatString(v.format, v.width)
		switch v.measure {
		case 1:
			meta.MeasurementLevels[v.name] = dataset.LevelNominal
		case 2:
			meta.MeasurementLevels[v.name] = dataset.LevelOrdinal
		case 3:
			meta.MeasurementLevels[v.name] = dataset.LevelScale
		default:
			meta.MeasurementLevels[v.name] = dataset.LevelUnknown
		}
		if rs := f.missingRanges(v, dec); len(rs) > 0 {
			meta.MissingRanges[v.name] = rs
		}
	}

	for _, set := range f.labels {
		for _, idx := range set.vars {
			v := f.byIndex[idx]
			if v == nil {
				opts.logger().Debug("value labels for unknown variable index", slog.Int("index", int(idx)))
				continue
			}
			for i, raw := range set.values {
				meta.ValueLabels[v.name] = append(meta.ValueLabels[v.name], dataset.ValueLabel{
					Value: f.rawValue(v, raw, dec),
					Label: strings.TrimRight(dec.lossy(set.labels[i]), " "),
				})
			}
		}
	}
	for _, ll := range f.longLabels {
		v := byName[strings.ToUpper(dec.lossy(ll.name))]
		if v == nil {
			continue
		}
		for i, raw := range ll.values {
			meta.ValueLabels[v.name] = append(meta.ValueLabels[v.name], dataset.ValueLabel{
				Value: dataset.Str(strings.TrimRight(dec.lossy(raw), " ")),
				Label: dec.lossy(ll.labels[i]),
			})
		}
	}
	for _, lm := range f.longMissing {
		v := byName[strings.ToUpper(dec.lossy(lm.name))]
		if v == nil {
			continue
		}
		for _, raw := range lm.values {
			meta.MissingRanges[v.name] = append(meta.MissingRanges[v.name],
				dataset.PointRange(dataset.Str(strings.TrimRight(dec.lossy(raw), " "))))
		}
	}
	return meta
}

func (f *savFile) rawValue(v *savVar, raw []byte, dec textDecoder) dataset.Value {
	if v.numeric() {
		return dataset.Number(math.Float64frombits(f.order.Uint64(raw)))
	}
	return dataset.Str(strings.TrimRight(dec.lossy(raw), " "))
}

func (f *savFile) missingRanges(v *savVar, dec textDecoder) dataset.Ranges {
	var rs dataset.Ranges
	vals := v.missing
	if v.nMissing < 0 {
		if len(vals) < 2 {
			return nil
		}
		rs = append(rs, dataset.MissingRange{Lo: f.rawValue(v, vals[0], dec), Hi: f.rawValue(v, vals[1], dec)})
		vals = vals[2:]
	}
	for _, raw := range vals {
		rs = append(rs, dataset.PointRange(f.rawValue(v, raw, dec)))
	}
	return rs
}

// slotSource yields the 8-byte slots of the case data in order.
type slotSource interface {
	next() ([]byte, bool)
}

type rawSlots struct{ c *cursor }

func (r *rawSlots) next() ([]byte, bool) {
	if r.c.remaining() < 8 {
		return nil, false
	}
	return r.c.take(8), true
}

type bytecodeSlots struct {
	c      *cursor
	codes  []byte
	pos    int
	bias   float64
	order  binary.ByteOrder
	done   bool
	spaces []byte
	sysmis []byte
}

func newBytecodeSlots(data []byte, bias float64, order binary.ByteOrder) *bytecodeSlots {
	sysmis := make([]byte, 8)
	order.PutUint64(sysmis, math.Float64bits(savSysmis))
	return &bytecodeSlots{
		c:      newCursor(data, order),
		bias:   bias,
		order:  order,
		spaces: []byte("        "),
		sysmis: sysmis,
	}
}

func (s *bytecodeSlots) next() ([]byte, bool) {
	for !s.done {
		if s.pos >= len(s.codes) {
			if s.c.remaining() < 8 {
				s.done = true
				break
			}
			s.codes, s.pos = s.c.take(8), 0
		}
		code := s.codes[s.pos]
		s.pos++
		switch code {
		case 0:
		case 252:
			s.done = true
		case 253:
			if s.c.remaining() < 8 {
				s.done = true
				break
			}
			return s.c.take(8), true
		case 254:
			return s.spaces, true
		case 255:
			return s.sysmis, true
		default:
			b := make([]byte, 8)
			s.order.PutUint64(b, math.Float64bits(float64(code)-s.bias))
			return b, true
		}
	}
	return nil, false
}

func (f *savFile) slots(content []byte) (slotSource, error) {
	data := content[f.dataOffset:]
	switch f.compression {
	case savUncompressed:
		return &rawSlots{c: newCursor(data, f.order)}, nil
	case savBytecode:
		return newBytecodeSlots(data, f.bias, f.order), nil
	case savZlib:
		inflated, err := f.inflate(content)
		if err != nil {
			return nil, err
		}
		return newBytecodeSlots(inflated, f.bias, f.order), nil
	}
	return nil, malformed("unknown compression %d", f.compression)
}

// inflate decompresses the zlib blocks listed in the trailer.
func (f *savFile) inflate(content []byte) ([]byte, error) {
	c := newCursor(content, f.order)
	c.skip(f.dataOffset)
	c.i64() // header offset
	trailer := c.i64()
	c.i64() // trailer length
	if c.err != nil {
		return nil, c.err
	}
	if trailer < 0 || int(trailer) > len(content) {
		return nil, malformed("zlib trailer offset %d out of range", trailer)
	}
	t := newCursor(content, f.order)
	t.skip(int(trailer))
	t.i64() // bias
	t.i64() // zero
	t.i32() // block size
	n := int(t.i32())
	if n < 0 || n > t.remaining()/24 {
		return nil, malformed("bad zlib block count %d", n)
	}
	var out bytes.Buffer
	for range n {
		t.i64() // uncompressed offset
		off := t.i64()
		t.i32() // uncompressed size
		size := t.i32()
		if t.err != nil {
			return nil, t.err
		}
		if off < 0 || size < 0 || int(off)+int(size) > len(content) {
			return nil, malformed("zlib block out of range")
		}
		zr, err := zlib.NewReader(bytes.NewReader(content[off : off+int64(size)]))
		if err != nil {
			return nil, fmt.Errorf("%w: zlib block: %v", ErrMalformed, err)
		}
		_, err = io.Copy(&out, zr)
		zr.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: zlib block: %v", ErrMalformed, err)
		}
	}
	return out.Bytes(), nil
}

// cases reads every case, keeping at most the row limit. total is the number
// of cases in the file.
func (f *savFile) cases(src slotSource, dec textDecoder, opts Options) ([][]dataset.Value, int, error) {
	cols := make([][]dataset.Value, len(f.vars))
	dateKinds := make([]string, len(f.vars))
	for i, v := range f.vars {
		dateKinds[i] = formatType(formatString(v.format, v.width))
	}
	total := 0
	for f.ncases < 0 || total < int(f.ncases) {
		loaded := opts.RowLimit <= 0 || total < opts.RowLimit
		row := make([]dataset.Value, len(f.vars))
		for i, v := range f.vars {
			if v.numeric() {
				raw, ok := src.next()
				if !ok {
					return cols, total, f.endOfData(i, total)
				}
				row[i] = numericCell(math.Float64frombits(f.order.Uint64(raw)), dateKinds[i])
				continue
			}
			var buf []byte
			for si, w := range v.segments {
				var seg []byte
				for range (w + 7) / 8 {
					raw, ok := src.next()
					if !ok {
						return cols, total, f.endOfData(i, total)
					}
					seg = append(seg, raw...)
				}
				used := w
				if len(v.segments) > 1 && si < len(v.segments)-1 {
					used = savSegment
				}
				buf = append(buf, seg[:min(used, len(seg))]...)
			}
			row[i] = dataset.Str(dec.lossy(bytes.TrimRight(buf, " \x00")))
		}
		total++
		if loaded {
			for i := range row {
				cols[i] = append(cols[i], row[i])
			}
		}
		if f.ncases >= 0 && opts.RowLimit > 0 && total >= opts.RowLimit {
			total = int(f.ncases)
			break
		}
	}
	return cols, total, nil
}

// endOfData accepts running out of slots on a case boundary when the case
// count is not stated.
func (f *savFile) endOfData(slot, total int) error {
	if slot == 0 && (f.ncases < 0 || total == int(f.ncases)) {
		return nil
	}
	if slot == 0 {
		return malformed("data ends after %d of %d cases", total, f.ncases)
	}
	return malformed("data ends inside case %d", total+1)
}

func numericCell(f float64, format string) dataset.Value {
	if f == savSysmis || math.IsNaN(f) {
		return dataset.Null()
	}
	if savDateFormats[format] || savDatetimeFormats[format] {
		return dataset.Time(spssTime(f))
	}
	return dataset.Float(f)
}

func spssTime(secs float64) time.Time {
	whole := math.Floor(secs)
	nanos := int64(math.Round((secs - whole) * 1e9))
	return time.Unix(spssEpoch.Unix()+int64(whole), nanos).UTC()
}

// formatString renders a print format as "F8.2" or "A20".
func formatString(print int32, width int) string {
	typ := int(print>>16) & 0xff
	w := int(print>>8) & 0xff
	d := int(print) & 0xff
	name, ok := savFormats[typ]
	if !ok {
		name = "F"
	}
	if name == "A" || name == "AHEX" {
		if width > w {
			w = width
		}
		return name + strconv.Itoa(w)
	}
	if d > 0 || name == "F" {
		return fmt.Sprintf("%s%d.%d", name, w, d)
	}
	return name + strconv.Itoa(w)
}

// formatType returns the letters of a format string.
func formatType(format string) string {
	return strings.TrimRight(format, "0123456789.")
}

func numericType(col []dataset.Value) string {
	sawInt := false
	for _, v := range col {
		switch v.Kind() {
		case dataset.KindFloat:
			return "double"
		case dataset.KindInt:
			sawInt = true
		}
	}
	if sawInt {
		return "int64"
	}
	return "double"
}
