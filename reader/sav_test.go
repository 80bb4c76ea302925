package reader_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/ddicdi/dataset"
	"github.com/c360studio/ddicdi/reader"
)

func surveySpec(compression int32) savSpec {
	return savSpec{
		compression: compression,
		label:       "Survey 2026",
		encoding:    "UTF-8",
		vars: []savVarSpec{
			{short: "ID", format: fmtF, label: "Respondent id", measure: 3},
			{short: "GENDER", format: fmtF, label: "Gender", missing: []float64{9}, measure: 1},
			{short: "INCOME", format: fmtF, decs: 2, missing: []float64{-99, -1}, rangeMissing: true, measure: 3},
			{short: "CITY", width: 10, label: "City", strMissing: []string{"NA"}, measure: 1},
		},
		rows: [][]any{
			{1.0, 1.0, 1234.5, "Oslo"},
			{2.0, 2.0, nil, "Bergen"},
			{3.0, 9.0, -99.0, "NA"},
		},
		valueLabels: map[int][][2]any{
			1: {{1.0, "Male"}, {2.0, "Female"}, {9.0, "Refused"}},
		},
		longNames: "ID=id\tGENDER=gender\tINCOME=income\tCITY=city",
	}
}

func readSAV(t *testing.T, content []byte, opts reader.Options) *dataset.Dataset {
	t.Helper()
	ds, err := reader.DefaultRegistry.ReadBytes("survey.sav", content, opts)
	require.NoError(t, err)
	return ds
}

func TestSAVMetadata(t *testing.T) {
	ds := readSAV(t, buildSAV(t, surveySpec(0)), reader.Options{})
	meta := ds.Metadata

	assert.Equal(t, []string{"id", "gender", "income", "city"}, meta.ColumnNames)
	assert.Equal(t, "survey.sav", ds.Filename)
	assert.Equal(t, "spss", meta.SourceFormat)
	assert.Equal(t, "utf-8", meta.FileEncoding)
	assert.Equal(t, "Survey 2026", meta.FileLabel)
	assert.Equal(t, 3, meta.RowCount)

	assert.Equal(t, map[string]string{"id": "Respondent id", "gender": "Gender", "city": "City"}, meta.ColumnLabels)
	assert.Equal(t, map[string]string{"id": "int64", "gender": "int64", "income": "double", "city": "string"}, meta.DeclaredTypes)
	assert.Equal(t, map[string]string{"id": "F8.0", "gender": "F8.0", "income": "F8.2", "city": "A10"}, meta.Formats)
	assert.Equal(t, dataset.LevelScale, meta.Level("id"))
	assert.Equal(t, dataset.LevelNominal, meta.Level("gender"))
	assert.Equal(t, dataset.LevelNominal, meta.Level("city"))

	assert.Equal(t, []dataset.ValueLabel{
		{Value: dataset.Int(1), Label: "Male"},
		{Value: dataset.Int(2), Label: "Female"},
		{Value: dataset.Int(9), Label: "Refused"},
	}, meta.ValueLabels["gender"])

	assert.Equal(t, dataset.Ranges{dataset.PointRange(dataset.Int(9))}, meta.MissingRanges["gender"])
	assert.Equal(t, dataset.Ranges{{Lo: dataset.Int(-99), Hi: dataset.Int(-1)}}, meta.MissingRanges["income"])
	assert.Equal(t, dataset.Ranges{dataset.PointRange(dataset.Str("NA"))}, meta.MissingRanges["city"])
	assert.Empty(t, meta.MissingRanges["id"])
}

func TestSAVCells(t *testing.T) {
	ds := readSAV(t, buildSAV(t, surveySpec(0)), reader.Options{})

	assert.Equal(t, []dataset.Value{dataset.Int(1), dataset.Int(2), dataset.Int(3)}, ds.Table.Column("id"))
	assert.Equal(t, []dataset.Value{dataset.Int(1), dataset.Int(2), dataset.Int(9)}, ds.Table.Column("gender"))
	assert.Equal(t, []dataset.Value{dataset.Float(1234.5), dataset.Null(), dataset.Float(-99)}, ds.Table.Column("income"))
	assert.Equal(t, []dataset.Value{dataset.Str("Oslo"), dataset.Str("Bergen"), dataset.Str("NA")}, ds.Table.Column("city"))
}

func TestSAVCompression(t *testing.T) {
	want := readSAV(t, buildSAV(t, surveySpec(0)), reader.Options{})

	tests := []struct {
		name        string
		compression int32
		filename    string
	}{
		{"bytecode", 1, "survey.sav"},
		{"zlib", 2, "survey.zsav"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := reader.DefaultRegistry.ReadBytes(tt.filename, buildSAV(t, surveySpec(tt.compression)), reader.Options{})
			require.NoError(t, err)
			assert.Equal(t, want.Table.Columns, ds.Table.Columns)
			assert.Equal(t, want.Metadata.MissingRanges, ds.Metadata.MissingRanges)
			assert.Equal(t, 3, ds.Metadata.RowCount)
		})
	}
}

func TestSAVRowLimit(t *testing.T) {
	for _, unknown := range []bool{false, true} {
		spec := surveySpec(1)
		spec.unknownCases = unknown
		ds := readSAV(t, buildSAV(t, spec), reader.Options{RowLimit: 1})
		assert.Equal(t, 1, ds.Table.Len())
		assert.Equal(t, 3, ds.Metadata.RowCount, "unknown case count: %v", unknown)
	}
}

func TestSAVDates(t *testing.T) {
	spec := savSpec{
		vars: []savVarSpec{{short: "DOB", format: fmtDate}},
		rows: [][]any{{13798425600.0}, {nil}},
	}
	ds := readSAV(t, buildSAV(t, spec), reader.Options{})
	assert.Equal(t, "date", ds.Metadata.DeclaredTypes["DOB"])
	assert.Equal(t, "DATE8", ds.Metadata.Formats["DOB"])

	col := ds.Table.Column("DOB")
	require.Len(t, col, 2)
	got, ok := col[0].AsTime()
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2020, time.January, 15, 0, 0, 0, 0, time.UTC)), got.String())
	assert.Equal(t, "2020-01-15", col[0].String())
	assert.True(t, col[1].IsNull())
}

func TestSAVVeryLongString(t *testing.T) {
	long := strings.Repeat("ab", 150)
	spec := savSpec{
		vars: []savVarSpec{
			{short: "NOTE", width: 300, label: "Open answer", measure: 1},
			{short: "N", format: fmtF, measure: 3},
		},
		rows: [][]any{{long, 1.0}, {"short", 2.0}},
	}
	ds := readSAV(t, buildSAV(t, spec), reader.Options{})

	assert.Equal(t, []string{"NOTE", "N"}, ds.Metadata.ColumnNames)
	assert.Equal(t, []dataset.Value{dataset.Str(long), dataset.Str("short")}, ds.Table.Column("NOTE"))
	assert.Equal(t, []dataset.Value{dataset.Int(1), dataset.Int(2)}, ds.Table.Column("N"))
	assert.Equal(t, "Open answer", ds.Metadata.Label("NOTE"))
	assert.Equal(t, dataset.LevelNominal, ds.Metadata.Level("NOTE"))
	assert.Equal(t, dataset.LevelScale, ds.Metadata.Level("N"))
}

func TestSAVDeclaredEncoding(t *testing.T) {
	spec := savSpec{
		encoding: "windows-1252",
		vars:     []savVarSpec{{short: "KJONN", format: fmtF, label: "Kj\xf8nn"}},
		rows:     [][]any{{1.0}},
		valueLabels: map[int][][2]any{
			0: {{1.0, "Gutt/Mann \xe6\xf8\xe5"}},
		},
	}
	ds := readSAV(t, buildSAV(t, spec), reader.Options{})
	assert.Equal(t, "windows-1252", ds.Metadata.FileEncoding)
	assert.Equal(t, "Kjønn", ds.Metadata.Label("KJONN"))
	assert.Equal(t, "Gutt/Mann æøå", ds.Metadata.ValueLabels["KJONN"][0].Label)
}

func TestSAVMalformed(t *testing.T) {
	good := buildSAV(t, surveySpec(0))
	tests := []struct {
		name    string
		content []byte
	}{
		{"short header", good[:100]},
		{"bad magic", append([]byte("$XX2"), good[4:]...)},
		{"truncated dictionary", good[:300]},
		{"huge missing count", withMissingCount(good, 50_000_000)},
		{"max missing count", withMissingCount(good, math.MaxInt32)},
		{"min missing count", withMissingCount(good, math.MinInt32)},
		{"four missing values", withMissingCount(good, 4)},
		{"missing count minus one", withMissingCount(good, -1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reader.DefaultRegistry.ReadBytes("broken.sav", tt.content, reader.Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, reader.ErrMalformed)
		})
	}
}

// withMissingCount returns a copy of a system file whose first variable
// record declares n missing values.
func withMissingCount(content []byte, n int32) []byte {
	out := bytes.Clone(content)
	// 176-byte file header, then record type, type code and label flag.
	binary.LittleEndian.PutUint32(out[188:], uint32(n))
	return out
}
