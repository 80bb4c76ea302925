package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelRangesSwitch(t *testing.T) {
	t.Run("user values used when no ranges anywhere", func(t *testing.T) {
		m := NewMetadata("a", "b")
		m.MissingUserValues["a"] = []Value{Int(-9), Int(-8)}

		assert.Equal(t, Ranges{PointRange(Int(-9)), PointRange(Int(-8))}, m.SentinelRanges("a"))
		assert.Equal(t, []string{"a"}, m.SentinelVars())
	})

	t.Run("any range disables user values dataset wide", func(t *testing.T) {
		m := NewMetadata("a", "b")
		m.MissingUserValues["a"] = []Value{Int(-9)}
		m.MissingRanges["b"] = Ranges{{Int(97), Int(99)}}

		assert.Empty(t, m.SentinelRanges("a"))
		assert.False(t, m.HasSentinels("a"))
		assert.True(t, m.HasSentinels("b"))
		assert.Equal(t, []string{"b"}, m.SentinelVars())
	})

	t.Run("empty range entries do not count", func(t *testing.T) {
		m := NewMetadata("a")
		m.MissingRanges["a"] = Ranges{}
		m.MissingUserValues["a"] = []Value{Str("x")}

		assert.True(t, m.HasSentinels("a"))
	})
}

func TestLevelDefault(t *testing.T) {
	m := NewMetadata("a", "b")
	m.MeasurementLevels["a"] = LevelScale
	assert.Equal(t, LevelScale, m.Level("a"))
	assert.Equal(t, LevelUnknown, m.Level("b"))
}

func TestComponents(t *testing.T) {
	tests := []struct {
		name                 string
		modify               func(*Metadata)
		ids, attrs, measures []string
	}{
		{
			name:     "defaults to all measures",
			modify:   func(m *Metadata) {},
			ids:      []string{},
			attrs:    []string{},
			measures: []string{"id", "score", "flag"},
		},
		{
			name: "remaining columns are measures",
			modify: func(m *Metadata) {
				m.IdentifierVars = []string{"id"}
				m.AttributeVars = []string{"flag"}
			},
			ids:      []string{"id"},
			attrs:    []string{"flag"},
			measures: []string{"score"},
		},
		{
			name: "column order and unknown names dropped",
			modify: func(m *Metadata) {
				m.MeasureVars = []string{"flag", "ghost", "score"}
			},
			ids:      []string{},
			attrs:    []string{},
			measures: []string{"score", "flag"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMetadata("id", "score", "flag")
			tt.modify(m)
			ids, attrs, measures := m.Components()
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, tt.attrs, attrs)
			assert.Equal(t, tt.measures, measures)
		})
	}
}

func TestApplyRoles(t *testing.T) {
	m := NewMetadata("id", "wave", "score", "note")
	err := m.ApplyRoles(map[string]string{
		"id":    "identifier",
		"wave":  "identifier, attribute",
		"note":  "contextual",
		"ghost": "measure",
	}, RoleMeasure)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "wave"}, m.IdentifierVars)
	assert.Equal(t, []string{"wave"}, m.AttributeVars)
	assert.Equal(t, []string{"score"}, m.MeasureVars)

	err = m.ApplyRoles(map[string]string{"id": "primary"}, "")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestCloneIsDeep(t *testing.T) {
	m := NewMetadata("a")
	m.ValueLabels["a"] = []ValueLabel{{Int(1), "one"}}
	c := m.Clone()
	c.ValueLabels["a"][0].Label = "changed"
	c.ColumnNames[0] = "z"

	assert.Equal(t, "one", m.ValueLabels["a"][0].Label)
	assert.Equal(t, "a", m.ColumnNames[0])
}

func TestVariableView(t *testing.T) {
	m := NewMetadata("gender", "age")
	m.ColumnLabels["gender"] = "Gender"
	m.Formats["gender"] = "F1.0"
	m.ValueLabels["gender"] = []ValueLabel{{Int(1), "Male"}, {Int(2), "Female"}}
	m.MissingUserValues["age"] = []Value{Int(-9)}
	m.IdentifierVars = []string{"gender"}

	view := m.VariableView()
	require.Len(t, view, 2)
	assert.Equal(t, "Gender", view[0].Label)
	assert.Equal(t, []Role{RoleIdentifier}, view[0].Roles)
	assert.Equal(t, "1=Male; 2=Female", FormatValueLabels(view[0].Values))
	assert.Equal(t, Ranges{PointRange(Int(-9))}, view[1].Missing)
	assert.Equal(t, []Role{RoleMeasure}, view[1].Roles)
}

func TestTable(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Set("a", []Value{Int(1), Int(2), Int(3)}))
	assert.Error(t, tbl.Set("b", []Value{Int(1)}))
	assert.Equal(t, 3, tbl.Len())

	head := tbl.Head(2)
	assert.Equal(t, 2, head.Len())
	assert.Equal(t, Int(2), head.Cell("a", 1))
	assert.True(t, head.Cell("a", 5).IsNull())
	assert.Same(t, tbl, tbl.Head(0))
}
