package export_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/c360studio/ddicdi/cdi"
	"github.com/c360studio/ddicdi/dataset"
)

// sampleGraph is a three-row survey with an identifier and a labeled gender
// variable whose code 9 is a missing value.
func sampleGraph(t *testing.T) []cdi.Node {
	t.Helper()
	meta := dataset.NewMetadata("id", "gender")
	meta.ColumnLabels["gender"] = "Gender <self-reported>"
	meta.DeclaredTypes["id"] = "int64"
	meta.DeclaredTypes["gender"] = "int64"
	meta.MeasurementLevels["gender"] = dataset.LevelNominal
	meta.ValueLabels["gender"] = []dataset.ValueLabel{
		{Value: dataset.Int(1), Label: "Male"},
		{Value: dataset.Int(2), Label: "Female"},
		{Value: dataset.Int(9), Label: "Refused"},
	}
	meta.MissingRanges["gender"] = dataset.Ranges{dataset.PointRange(dataset.Int(9))}
	meta.IdentifierVars = []string{"id"}
	meta.RowCount = 3

	table := dataset.NewTable()
	require.NoError(t, table.Set("id", []dataset.Value{dataset.Int(1), dataset.Int(2), dataset.Int(3)}))
	require.NoError(t, table.Set("gender", []dataset.Value{dataset.Int(1), dataset.Int(9), dataset.Null()}))

	g, err := cdi.Generate(table, meta, cdi.Options{Filename: "survey.sav"})
	require.NoError(t, err)
	return g.Nodes
}

// valueNode is a single-field node for exercising literal encodings.
type valueNode struct {
	value any
}

func (valueNode) NodeID() string   { return "#instanceValue-0-x" }
func (valueNode) NodeType() string { return "InstanceValue" }
func (n valueNode) Fields() []cdi.Field {
	return []cdi.Field{{Kind: cdi.FieldLiteral, Name: "content", Value: n.value}}
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}
