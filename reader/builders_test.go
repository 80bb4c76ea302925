package reader_test

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// le writes little-endian fields.
type le struct{ bytes.Buffer }

func (w *le) i8(v int8)     { w.WriteByte(byte(v)) }
func (w *le) u8(v uint8)    { w.WriteByte(v) }
func (w *le) i16(v int16)   { _ = binary.Write(w, binary.LittleEndian, v) }
func (w *le) u16(v uint16)  { _ = binary.Write(w, binary.LittleEndian, v) }
func (w *le) i32(v int32)   { _ = binary.Write(w, binary.LittleEndian, v) }
func (w *le) u32(v uint32)  { _ = binary.Write(w, binary.LittleEndian, v) }
func (w *le) i64(v int64)   { _ = binary.Write(w, binary.LittleEndian, v) }
func (w *le) u64(v uint64)  { _ = binary.Write(w, binary.LittleEndian, v) }
func (w *le) f64(v float64) { _ = binary.Write(w, binary.LittleEndian, v) }
func (w *le) str(s string)  { w.WriteString(s) }

// fixed writes s padded with pad to n bytes.
func (w *le) fixed(s string, n int, pad byte) {
	b := bytes.Repeat([]byte{pad}, n)
	copy(b, s)
	w.Write(b)
}

// SPSS system file builder.

const (
	fmtF    = 5
	fmtA    = 1
	fmtDate = 20
)

type savVarSpec struct {
	short   string
	width   int
	label   string
	format  int32 // print format type code
	decs    int
	missing []float64
	// rangeMissing makes the first two missing values a range.
	rangeMissing bool
	strMissing   []string
	measure      int32
}

type savSpec struct {
	magic       string
	compression int32
	label       string
	vars        []savVarSpec
	rows        [][]any // float64, string or nil for sysmis
	valueLabels map[int][][2]any // var position -> (float64 value, label)
	longNames   string
	encoding    string
	// unknownCases writes -1 as the case count.
	unknownCases bool
}

func segmentWidths(width int) []int {
	if width <= 255 {
		return []int{width}
	}
	n := (width + 251) / 252
	out := make([]int, n)
	for i := range out {
		out[i] = 255
	}
	out[n-1] = width - 252*(n-1)
	return out
}

func slotCount(width int) int {
	if width == 0 {
		return 1
	}
	n := 0
	for _, w := range segmentWidths(width) {
		n += (w + 7) / 8
	}
	return n
}

func buildSAV(t *testing.T, spec savSpec) []byte {
	t.Helper()
	var w le
	magic := spec.magic
	if magic == "" {
		magic = "$FL2"
		if spec.compression == 2 {
			magic = "$FL3"
		}
	}
	caseSize := 0
	for _, v := range spec.vars {
		caseSize += slotCount(v.width)
	}
	w.str(magic)
	w.fixed("@(#) SPSS DATA FILE reader test", 60, ' ')
	w.i32(2)
	w.i32(int32(caseSize))
	w.i32(spec.compression)
	w.i32(0)
	if spec.unknownCases {
		w.i32(-1)
	} else {
		w.i32(int32(len(spec.rows)))
	}
	w.f64(100)
	w.fixed("01 Jan 26", 9, ' ')
	w.fixed("10:00:00", 8, ' ')
	w.fixed(spec.label, 64, ' ')
	w.fixed("", 3, 0)

	index := map[int]int32{}
	var dict int32
	var segmentSpecs []savVarSpec
	var veryLong []string
	for pos, v := range spec.vars {
		segs := []int{v.width}
		if v.width > 255 {
			segs = segmentWidths(v.width)
			veryLong = append(veryLong, fmt.Sprintf("%s=%05d", v.short, v.width))
		}
		for si, sw := range segs {
			name := v.short
			if si > 0 {
				name = v.short[:min(len(v.short), 7)] + string(rune('0'+si))
			}
			dict++
			if si == 0 {
				index[pos] = dict
			}
			w.i32(2)
			w.i32(int32(sw))
			hasLabel := si == 0 && v.label != ""
			w.i32(boolInt(hasLabel))
			nMissing := int32(len(v.missing) + len(v.strMissing))
			if v.rangeMissing {
				nMissing = -int32(len(v.missing))
			}
			if si > 0 {
				nMissing = 0
			}
			w.i32(nMissing)
			format := v.format
			fw := 8
			if v.width > 0 {
				format = fmtA
				fw = min(sw, 255)
			}
			pf := format<<16 | int32(fw)<<8 | int32(v.decs)
			w.i32(pf)
			w.i32(pf)
			w.fixed(name, 8, ' ')
			if hasLabel {
				w.i32(int32(len(v.label)))
				w.fixed(v.label, (len(v.label)+3)/4*4, ' ')
			}
			if si == 0 {
				for _, m := range v.missing {
					w.f64(m)
				}
				for _, m := range v.strMissing {
					w.fixed(m, 8, ' ')
				}
			}
			for range (max(sw, 1)+7)/8 - 1 {
				dict++
				w.i32(2)
				w.i32(-1)
				w.i32(0)
				w.i32(0)
				w.i32(0)
				w.i32(0)
				w.fixed("", 8, ' ')
			}
			segmentSpecs = append(segmentSpecs, v)
		}
	}

	for pos := range spec.vars {
		labels, ok := spec.valueLabels[pos]
		if !ok {
			continue
		}
		w.i32(3)
		w.i32(int32(len(labels)))
		for _, l := range labels {
			switch v := l[0].(type) {
			case float64:
				w.f64(v)
			case string:
				w.fixed(v, 8, ' ')
			}
			label := l[1].(string)
			w.u8(uint8(len(label)))
			w.fixed(label, (len(label)+1+7)/8*8-1, ' ')
		}
		w.i32(4)
		w.i32(1)
		w.i32(index[pos])
	}

	measures := false
	for _, v := range spec.vars {
		measures = measures || v.measure != 0
	}
	if measures {
		w.i32(7)
		w.i32(11)
		w.i32(4)
		w.i32(int32(3 * len(segmentSpecs)))
		for _, v := range segmentSpecs {
			w.i32(v.measure)
			w.i32(8)
			w.i32(0)
		}
	}
	if spec.longNames != "" {
		extension(&w, 13, spec.longNames)
	}
	if len(veryLong) > 0 {
		extension(&w, 14, strings.Join(veryLong, "\x00\t")+"\x00\t")
	}
	if spec.encoding != "" {
		extension(&w, 20, spec.encoding)
	}
	w.i32(999)
	w.i32(0)

	var data [][]byte
	for _, row := range spec.rows {
		for i, v := range spec.vars {
			data = append(data, cellSlots(v, row[i])...)
		}
	}
	switch spec.compression {
	case 0:
		for _, slot := range data {
			w.Write(slot)
		}
	case 1:
		w.Write(bytecode(data))
	case 2:
		stream := bytecode(data)
		var z bytes.Buffer
		zw := zlib.NewWriter(&z)
		_, err := zw.Write(stream)
		require.NoError(t, err)
		require.NoError(t, zw.Close())

		header := int64(w.Len())
		block := header + 24
		trailer := block + int64(z.Len())
		w.i64(header)
		w.i64(trailer)
		w.i64(48)
		w.Write(z.Bytes())
		w.i64(-100)
		w.i64(0)
		w.i32(0x3ff000)
		w.i32(1)
		w.i64(header)
		w.i64(block)
		w.i32(int32(len(stream)))
		w.i32(int32(z.Len()))
	}
	return w.Bytes()
}

func extension(w *le, subtype int32, text string) {
	w.i32(7)
	w.i32(subtype)
	w.i32(1)
	w.i32(int32(len(text)))
	w.str(text)
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func cellSlots(v savVarSpec, cell any) [][]byte {
	if v.width == 0 {
		f := -math.MaxFloat64
		if x, ok := cell.(float64); ok {
			f = x
		}
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(f))
		return [][]byte{b}
	}
	s, _ := cell.(string)
	segs := segmentWidths(v.width)
	var out [][]byte
	for si, sw := range segs {
		part := s
		if len(segs) > 1 {
			lo := min(252*si, len(s))
			hi := min(lo+252, len(s))
			if si == len(segs)-1 {
				hi = len(s)
			}
			part = s[lo:hi]
		}
		n := (sw + 7) / 8 * 8
		buf := bytes.Repeat([]byte{' '}, n)
		copy(buf, part)
		for i := 0; i < n; i += 8 {
			out = append(out, buf[i:i+8])
		}
	}
	return out
}

// bytecode compresses slots the way SPSS does with a bias of 100.
func bytecode(slots [][]byte) []byte {
	var out bytes.Buffer
	codes := make([]byte, 0, 8)
	var raw [][]byte
	flush := func() {
		for len(codes) < 8 {
			codes = append(codes, 0)
		}
		out.Write(codes)
		for _, r := range raw {
			out.Write(r)
		}
		codes, raw = codes[:0], nil
	}
	push := func(code byte, r []byte) {
		codes = append(codes, code)
		if r != nil {
			raw = append(raw, r)
		}
		if len(codes) == 8 {
			flush()
		}
	}
	for _, s := range slots {
		f := math.Float64frombits(binary.LittleEndian.Uint64(s))
		switch {
		case string(s) == "        ":
			push(254, nil)
		case f == -math.MaxFloat64:
			push(255, nil)
		case f == math.Trunc(f) && f >= -99 && f <= 151:
			push(byte(f+100), nil)
		default:
			push(253, s)
		}
	}
	push(252, nil)
	if len(codes) > 0 {
		flush()
	}
	return out.Bytes()
}

// Stata builders.

type dtaVarSpec struct {
	name      string
	typ       int // release specific type code
	format    string
	labelName string
	label     string
}

type dtaLabelTable struct {
	name   string
	values []int32
	labels []string
}

type dtaSpec struct {
	label  string
	vars   []dtaVarSpec
	rows   [][]any // int8, int16, int32, float32, float64, string, or strl
	tables []dtaLabelTable
	strls  map[[2]uint64]string
}

// strl is a strL cell pointing at (variable, observation).
type strl struct{ v, o uint64 }

func writeCell(w *le, release int, typ int, cell any) {
	switch c := cell.(type) {
	case int8:
		w.i8(c)
	case int16:
		w.i16(c)
	case int32:
		w.i32(c)
	case float32:
		w.u32(math.Float32bits(c))
	case float64:
		w.f64(c)
	case uint32:
		w.u32(c)
	case uint64:
		w.u64(c)
	case string:
		w.fixed(c, typ, 0)
	case strl:
		if release == 118 {
			w.u16(uint16(c.v))
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], c.o)
			w.Write(b[:6])
		} else {
			w.u32(uint32(c.v))
			w.u32(uint32(c.o))
		}
	}
}

func writeLabelTables(w *le, tables []dtaLabelTable, nameLen int, tagged bool) {
	for _, tbl := range tables {
		var txt bytes.Buffer
		offsets := make([]int32, len(tbl.labels))
		for i, l := range tbl.labels {
			offsets[i] = int32(txt.Len())
			txt.WriteString(l)
			txt.WriteByte(0)
		}
		if tagged {
			w.str("<lbl>")
		}
		w.i32(int32(8 + 8*len(tbl.values) + txt.Len()))
		w.fixed(tbl.name, nameLen, 0)
		w.fixed("", 3, 0)
		w.i32(int32(len(tbl.values)))
		w.i32(int32(txt.Len()))
		for _, o := range offsets {
			w.i32(o)
		}
		for _, v := range tbl.values {
			w.i32(v)
		}
		w.Write(txt.Bytes())
		if tagged {
			w.str("</lbl>")
		}
	}
}

// buildDTA114 writes a release 114 little-endian file. Type codes are the
// release 114 codes: 1-244 str#, 251 byte, 252 int, 253 long, 254 float,
// 255 double.
func buildDTA114(spec dtaSpec) []byte {
	var w le
	w.u8(114)
	w.u8(2)
	w.u8(1)
	w.u8(0)
	w.u16(uint16(len(spec.vars)))
	w.u32(uint32(len(spec.rows)))
	w.fixed(spec.label, 81, 0)
	w.fixed("01 Jan 2026 10:00", 18, 0)
	for _, v := range spec.vars {
		w.u8(uint8(v.typ))
	}
	for _, v := range spec.vars {
		w.fixed(v.name, 33, 0)
	}
	w.fixed("", 2*(len(spec.vars)+1), 0)
	for _, v := range spec.vars {
		w.fixed(v.format, 49, 0)
	}
	for _, v := range spec.vars {
		w.fixed(v.labelName, 33, 0)
	}
	for _, v := range spec.vars {
		w.fixed(v.label, 81, 0)
	}
	w.u8(0)
	w.i32(0)
	for _, row := range spec.rows {
		for i, v := range spec.vars {
			writeCell(&w, 114, v.typ, row[i])
		}
	}
	writeLabelTables(&w, spec.tables, 33, false)
	return w.Bytes()
}

// buildDTA118 writes a release 118 LSF file. Type codes are the tagged
// codes: 1-2045 str#, 32768 strL, 65526 double, 65527 float, 65528 long,
// 65529 int, 65530 byte.
func buildDTA118(spec dtaSpec) []byte {
	var w le
	w.str("<stata_dta><header><release>118</release><byteorder>LSF</byteorder><K>")
	w.u16(uint16(len(spec.vars)))
	w.str("</K><N>")
	w.u64(uint64(len(spec.rows)))
	w.str("</N><label>")
	w.u16(uint16(len(spec.label)))
	w.str(spec.label)
	w.str("</label><timestamp>")
	w.u8(17)
	w.str("01 Jan 2026 10:00")
	w.str("</timestamp></header><map>")
	w.fixed("", 14*8, 0)
	w.str("</map><variable_types>")
	for _, v := range spec.vars {
		w.u16(uint16(v.typ))
	}
	w.str("</variable_types><varnames>")
	for _, v := range spec.vars {
		w.fixed(v.name, 129, 0)
	}
	w.str("</varnames><sortlist>")
	w.fixed("", 2*(len(spec.vars)+1), 0)
	w.str("</sortlist><formats>")
	for _, v := range spec.vars {
		w.fixed(v.format, 57, 0)
	}
	w.str("</formats><value_label_names>")
	for _, v := range spec.vars {
		w.fixed(v.labelName, 129, 0)
	}
	w.str("</value_label_names><variable_labels>")
	for _, v := range spec.vars {
		w.fixed(v.label, 321, 0)
	}
	w.str("</variable_labels><characteristics></characteristics><data>")
	for _, row := range spec.rows {
		for i, v := range spec.vars {
			writeCell(&w, 118, v.typ, row[i])
		}
	}
	w.str("</data><strls>")
	for key, s := range spec.strls {
		w.str("GSO")
		w.u32(uint32(key[0]))
		w.u64(key[1])
		w.u8(130)
		w.u32(uint32(len(s) + 1))
		w.str(s)
		w.u8(0)
	}
	w.str("</strls><value_labels>")
	writeLabelTables(&w, spec.tables, 129, true)
	w.str("</value_labels></stata_dta>")
	return w.Bytes()
}
