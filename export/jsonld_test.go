package export_test

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/ddicdi/cdi"
	"github.com/c360studio/ddicdi/dataset"
	"github.com/c360studio/ddicdi/export"
	vocab "github.com/c360studio/ddicdi/vocabulary/cdi"
)

func TestJSONLDEnvelope(t *testing.T) {
	out, err := export.NewJSONLDWriter().Marshal(sampleGraph(t))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(string(out),
		"{\n    \"@context\": [\n        \""+vocab.JSONLDContext+"\",\n        {\n            \"skos\": \""+vocab.SKOS+"\"\n        }\n    ],\n    \"@graph\": [\n"))

	var doc struct {
		Context []any            `json:"@context"`
		Graph   []map[string]any `json:"@graph"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Len(t, doc.Context, 2)
	assert.Equal(t, "#physicalDataSetStructure", doc.Graph[0]["@id"])

	byID := make(map[string]map[string]any, len(doc.Graph))
	for _, n := range doc.Graph {
		byID[n["@id"].(string)] = n
	}
	assert.Equal(t, float64(1), byID["#instanceValue-0-gender"]["content"])
	assert.Nil(t, byID["#instanceValue-2-gender"]["content"])
	assert.Contains(t, byID["#instanceValue-2-gender"], "content")
	assert.Equal(t, "#sentinelValueDomain-gender", byID["#instanceValue-1-gender"]["hasValueFrom_ValueDomain"])
	assert.Equal(t, "skos:ConceptScheme", byID["#substantiveConceptScheme-gender"]["@type"])
	assert.Equal(t, []any{"#gender-concept-1", "#gender-concept-2"}, byID["#substantiveConceptScheme-gender"]["skos:hasTopConcept"])
	assert.Equal(t, []any{"#logicalRecord"}, byID["#dataStore"]["has_LogicalRecord"])
	assert.Equal(t, "#wideDataSet", byID["#logicalRecord"]["organizes"])
	assert.Equal(t, "Gender <self-reported>", byID["#instanceVariable-gender"]["displayLabel"])
}

func TestJSONLDKeyOrder(t *testing.T) {
	out, err := export.NewJSONLDWriter().Marshal(sampleGraph(t))
	require.NoError(t, err)
	s := string(out)

	start := strings.Index(s, `"@id": "#instanceVariable-gender"`)
	require.NotEqual(t, -1, start)
	block := s[start:]
	block = block[:strings.Index(block, "}")]
	keys := []string{`"@id"`, `"@type"`, `"name"`, `"displayLabel"`, `"hasIntendedDataType"`, `"has_PhysicalSegmentLayout"`}
	last := -1
	for _, k := range keys {
		i := strings.Index(block, k)
		require.Greater(t, i, last, "key %s out of order", k)
		last = i
	}
	assert.Contains(t, s, "Gender <self-reported>")
	assert.NotContains(t, s, `\u003c`)
}

func TestJSONLDDeterministic(t *testing.T) {
	a, err := export.NewJSONLDWriter().Marshal(sampleGraph(t))
	require.NoError(t, err)
	b, err := export.NewJSONLDWriter().Marshal(sampleGraph(t))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestJSONLDLiterals(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"int", dataset.Int(-9), `"content": -9`},
		{"float", dataset.Float(2.5), `"content": 2.5`},
		{"nan", dataset.Float(math.NaN()), `"content": null`},
		{"null", dataset.Null(), `"content": null`},
		{"string", dataset.Str("a&b"), `"content": "a&b"`},
		{"date", dataset.Time(mustTime(t, "2024-05-01T00:00:00Z")), `"content": "2024-05-01"`},
		{"datetime", dataset.Time(mustTime(t, "2024-05-01T10:30:00Z")), `"content": "2024-05-01T10:30:00Z"`},
		{"bool", true, `"content": true`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := export.NewJSONLDWriter().Marshal([]cdi.Node{valueNode{tt.value}})
			require.NoError(t, err)
			assert.Contains(t, string(out), tt.want)
		})
	}
}

func TestJSONLDNotSerializable(t *testing.T) {
	for _, v := range []any{dataset.Float(math.Inf(1)), struct{}{}, 1.5} {
		_, err := export.NewJSONLDWriter().Marshal([]cdi.Node{valueNode{v}})
		require.Error(t, err)
		assert.ErrorIs(t, err, export.ErrNotSerializable)

		var nse *export.NotSerializableError
		require.True(t, errors.As(err, &nse))
		assert.Equal(t, "#instanceValue-0-x", nse.NodeID)
		assert.Equal(t, "content", nse.Field)
	}
}
