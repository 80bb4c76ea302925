package reader_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/ddicdi/dataset"
	"github.com/c360studio/ddicdi/reader"
)

const schemaDoc = `{
  "dataset_name": "Household survey",
  "variables": {
    "zid": {"type": "int64", "description": "Household", "values": [1, 2, 3]},
    "tenure": {
      "type": "int64",
      "description": "Tenure",
      "values": [1, 2, 8],
      "value_labels": {"1": "Owner", "2": "Renter", "8": "Unknown"},
      "missing_values": [8]
    },
    "income": {"values": [10.5, null, 12], "missing_values": [{"lo": -9, "hi": -1}]},
    "moved": {"type": "date", "values": ["2020-01-02", null, "2021-06-30"]}
  }
}`

func TestJSONSchemaDocument(t *testing.T) {
	ds, err := reader.DefaultRegistry.ReadBytes("households.json", []byte(schemaDoc), reader.Options{})
	require.NoError(t, err)
	meta := ds.Metadata

	assert.Equal(t, []string{"zid", "tenure", "income", "moved"}, meta.ColumnNames)
	assert.Equal(t, "Household survey", meta.FileLabel)
	assert.Equal(t, "json", meta.SourceFormat)
	assert.Equal(t, 3, meta.RowCount)
	assert.Equal(t, "Tenure", meta.Label("tenure"))
	assert.Equal(t, map[string]string{"zid": "int64", "tenure": "int64", "income": "float64", "moved": "date"}, meta.DeclaredTypes)

	assert.Equal(t, []dataset.ValueLabel{
		{Value: dataset.Int(1), Label: "Owner"},
		{Value: dataset.Int(2), Label: "Renter"},
		{Value: dataset.Int(8), Label: "Unknown"},
	}, meta.ValueLabels["tenure"])
	assert.Equal(t, []dataset.Value{dataset.Int(8)}, meta.MissingUserValues["tenure"])
	assert.Equal(t, dataset.Ranges{{Lo: dataset.Int(-9), Hi: dataset.Int(-1)}}, meta.MissingRanges["income"])

	assert.Equal(t, []dataset.Value{dataset.Float(10.5), dataset.Null(), dataset.Int(12)}, ds.Table.Column("income"))
	assert.Equal(t, "2021-06-30", ds.Table.Cell("moved", 2).String())
	assert.True(t, ds.Table.Cell("moved", 1).IsNull())
}

func TestJSONSchemaErrors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		variable string
	}{
		{"missing values", `{"variables": {"a": {"type": "int64"}}}`, "a"},
		{"ragged", `{"variables": {"a": {"values": [1, 2]}, "b": {"values": [1]}}}`, "b"},
		{"values not array", `{"variables": {"a": {"values": 3}}}`, "a"},
		{"bad date", `{"variables": {"d": {"type": "date", "values": ["soon"]}}}`, "d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reader.DefaultRegistry.ReadBytes("bad.json", []byte(tt.doc), reader.Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, reader.ErrSchema)

			var se *reader.SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.variable, se.Variable)
		})
	}
}

func TestJSONRecords(t *testing.T) {
	doc := `[{"b": 1, "a": "x"}, {"a": "y", "c": 2.5}, {"b": null, "a": "z"}]`
	ds, err := reader.DefaultRegistry.ReadBytes("records.json", []byte(doc), reader.Options{RowLimit: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "c"}, ds.Metadata.ColumnNames)
	assert.Equal(t, 3, ds.Metadata.RowCount)
	assert.Equal(t, 2, ds.Table.Len())
	assert.Equal(t, []dataset.Value{dataset.Int(1), dataset.Null()}, ds.Table.Column("b"))
	assert.Equal(t, []dataset.Value{dataset.Null(), dataset.Float(2.5)}, ds.Table.Column("c"))
	assert.Equal(t, "string", ds.Metadata.DeclaredTypes["a"])
}

func TestIntegralFloatsMatchAcrossFormats(t *testing.T) {
	want := []dataset.Value{dataset.Int(1), dataset.Int(2), dataset.Null()}
	tests := []struct {
		name     string
		filename string
		content  string
		typ      string
	}{
		{"json schema", "w.json", `{"variables": {"w": {"values": [1.0, 2.0, null]}}}`, "int64"},
		{"json schema declared", "w.json", `{"variables": {"w": {"type": "float64", "values": [1.0, 2, null]}}}`, "float64"},
		{"json records", "w.json", `[{"w": 1.0}, {"w": 2.0}, {"w": null}]`, "int64"},
		{"csv", "w.csv", "w\n1.0\n2.0\nNA\n", "int64"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := reader.DefaultRegistry.ReadBytes(tt.filename, []byte(tt.content), reader.Options{})
			require.NoError(t, err)
			assert.Equal(t, want, ds.Table.Column("w"))
			assert.Equal(t, tt.typ, ds.Metadata.DeclaredTypes["w"])
		})
	}
}

func TestJSONFlatMap(t *testing.T) {
	doc := `{"no.oslo": 700000, "no.bergen": 290000, "se/stockholm": 980000}`

	t.Run("key value", func(t *testing.T) {
		ds, err := reader.DefaultRegistry.ReadBytes("cities.json", []byte(doc), reader.Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"key", "value"}, ds.Metadata.ColumnNames)
		assert.Equal(t, []dataset.Value{dataset.Str("no.oslo"), dataset.Str("no.bergen"), dataset.Str("se/stockholm")}, ds.Table.Column("key"))
		assert.Equal(t, "int64", ds.Metadata.DeclaredTypes["value"])
	})

	t.Run("decomposed", func(t *testing.T) {
		ds, err := reader.DefaultRegistry.ReadBytes("cities.json", []byte(doc), reader.Options{DecomposeKeys: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"key_1", "key_2", "value"}, ds.Metadata.ColumnNames)
		assert.Equal(t, []dataset.Value{dataset.Str("no"), dataset.Str("no"), dataset.Str("se")}, ds.Table.Column("key_1"))
		assert.Equal(t, []dataset.Value{dataset.Str("oslo"), dataset.Str("bergen"), dataset.Str("stockholm")}, ds.Table.Column("key_2"))
	})

	t.Run("nested", func(t *testing.T) {
		ds, err := reader.DefaultRegistry.ReadBytes("nested.json", []byte(`{"a": {"b": 1, "c": {"d": "x"}}}`), reader.Options{})
		require.NoError(t, err)
		assert.Equal(t, []dataset.Value{dataset.Str("a.b"), dataset.Str("a.c.d")}, ds.Table.Column("key"))
		assert.Equal(t, []dataset.Value{dataset.Str("1"), dataset.Str("x")}, ds.Table.Column("value"))
	})
}

func TestJSONInvalid(t *testing.T) {
	for _, doc := range []string{`{"a": `, `[1, 2] 3`, `"text"`} {
		_, err := reader.DefaultRegistry.ReadBytes("bad.json", []byte(doc), reader.Options{})
		assert.Error(t, err, doc)
	}
}
