package dataset

import (
	"slices"
	"strings"
)

// VariableRow is one line of a variable view.
type VariableRow struct {
	Name    string           `json:"name"`
	Format  string           `json:"format"`
	Type    string           `json:"type"`
	Label   string           `json:"label"`
	Values  []ValueLabel     `json:"values,omitempty"`
	Missing Ranges           `json:"missing,omitempty"`
	Measure MeasurementLevel `json:"measure"`
	Roles   []Role           `json:"roles,omitempty"`
}

// VariableView summarises the metadata per variable in column order.
// Missing shows the effective sentinel ranges, so discrete user missing
// values appear as {v, v} ranges.
func (m *Metadata) VariableView() []VariableRow {
	ids, attrs, measures := m.Components()
	rows := make([]VariableRow, 0, len(m.ColumnNames))
	for _, name := range m.ColumnNames {
		row := VariableRow{
			Name:    name,
			Format:  m.Formats[name],
			Type:    m.DeclaredTypes[name],
			Label:   m.Label(name),
			Values:  m.ValueLabels[name],
			Missing: m.SentinelRanges(name),
			Measure: m.Level(name),
		}
		if slices.Contains(ids, name) {
			row.Roles = append(row.Roles, RoleIdentifier)
		}
		if slices.Contains(attrs, name) {
			row.Roles = append(row.Roles, RoleAttribute)
		}
		if slices.Contains(measures, name) {
			row.Roles = append(row.Roles, RoleMeasure)
		}
		rows = append(rows, row)
	}
	return rows
}

// FormatValueLabels renders value labels as "1=Male; 2=Female".
func FormatValueLabels(labels []ValueLabel) string {
	parts := make([]string, 0, len(labels))
	for _, vl := range labels {
		parts = append(parts, vl.Value.String()+"="+vl.Label)
	}
	return strings.Join(parts, "; ")
}
