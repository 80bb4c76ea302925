package dataset

import "slices"

// MeasurementLevel is the coarse level of measurement of a variable.
type MeasurementLevel string

const (
	LevelNominal MeasurementLevel = "nominal"
	LevelOrdinal MeasurementLevel = "ordinal"
	LevelScale   MeasurementLevel = "scale"
	LevelUnknown MeasurementLevel = "unknown"
)

// ValueLabel pairs a raw value with its label. Value labels keep the order
// in which the source declares them.
type ValueLabel struct {
	Value Value  `json:"value"`
	Label string `json:"label"`
}

// Metadata is the per-variable metadata bundle of a dataset.
type Metadata struct {
	// ColumnNames is the ordered list of variable names. Order drives
	// component ordering and positional indices.
	ColumnNames []string

	ColumnLabels map[string]string

	// DeclaredTypes holds the native type tag of each variable, e.g.
	// "int64", "float64", "string", "datetime".
	DeclaredTypes map[string]string

	// Formats holds the source display format of each variable, e.g. "F8.2".
	Formats map[string]string

	ValueLabels map[string][]ValueLabel

	// MissingRanges holds inclusive missing-value ranges per variable.
	MissingRanges map[string]Ranges

	// MissingUserValues holds discrete missing values per variable. It is
	// consulted only when MissingRanges is empty for the whole dataset.
	MissingUserValues map[string][]Value

	MeasurementLevels map[string]MeasurementLevel

	// Role lists. MeasureVars empty means every variable that is neither
	// an identifier nor an attribute is a measure.
	IdentifierVars []string
	MeasureVars    []string
	AttributeVars  []string

	// RowCount is the number of rows in the source, which may exceed the
	// number of rows loaded.
	RowCount int

	FileLabel    string
	FileEncoding string
	SourceFormat string
}

// NewMetadata returns Metadata over the given columns with every map
// allocated and every role list empty.
func NewMetadata(columns ...string) *Metadata {
	return &Metadata{
		ColumnNames:       slices.Clone(columns),
		ColumnLabels:      make(map[string]string),
		DeclaredTypes:     make(map[string]string),
		Formats:           make(map[string]string),
		ValueLabels:       make(map[string][]ValueLabel),
		MissingRanges:     make(map[string]Ranges),
		MissingUserValues: make(map[string][]Value),
		MeasurementLevels: make(map[string]MeasurementLevel),
		IdentifierVars:    []string{},
		MeasureVars:       []string{},
		AttributeVars:     []string{},
	}
}

// HasColumn reports whether name is one of the dataset's variables.
func (m *Metadata) HasColumn(name string) bool {
	return slices.Contains(m.ColumnNames, name)
}

// Label returns the label of a variable, or "" when it has none.
func (m *Metadata) Label(name string) string {
	return m.ColumnLabels[name]
}

// Level returns the measurement level of a variable, LevelUnknown when unset.
func (m *Metadata) Level(name string) MeasurementLevel {
	if l, ok := m.MeasurementLevels[name]; ok && l != "" {
		return l
	}
	return LevelUnknown
}

// HasValueLabels reports whether a variable has at least one value label.
func (m *Metadata) HasValueLabels(name string) bool {
	return len(m.ValueLabels[name]) > 0
}

// SentinelRanges returns the missing ranges used to classify sentinel values
// of a variable. When MissingRanges is empty for the whole dataset, discrete
// MissingUserValues are used instead as point ranges. The switch is dataset
// wide: a single variable with ranges disables user values for all others.
func (m *Metadata) SentinelRanges(name string) Ranges {
	if m.usesRanges() {
		return m.MissingRanges[name]
	}
	vals := m.MissingUserValues[name]
	if len(vals) == 0 {
		return nil
	}
	rs := make(Ranges, 0, len(vals))
	for _, v := range vals {
		rs = append(rs, PointRange(v))
	}
	return rs
}

// HasSentinels reports whether a variable carries sentinel definitions.
func (m *Metadata) HasSentinels(name string) bool {
	return len(m.SentinelRanges(name)) > 0
}

// SentinelVars returns the variables with sentinel definitions in column order.
func (m *Metadata) SentinelVars() []string {
	var out []string
	for _, name := range m.ColumnNames {
		if m.HasSentinels(name) {
			out = append(out, name)
		}
	}
	return out
}

func (m *Metadata) usesRanges() bool {
	for _, rs := range m.MissingRanges {
		if len(rs) > 0 {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of m.
func (m *Metadata) Clone() *Metadata {
	c := *m
	c.ColumnNames = slices.Clone(m.ColumnNames)
	c.ColumnLabels = cloneMap(m.ColumnLabels)
	c.DeclaredTypes = cloneMap(m.DeclaredTypes)
	c.Formats = cloneMap(m.Formats)
	c.MeasurementLevels = cloneMap(m.MeasurementLevels)
	c.ValueLabels = make(map[string][]ValueLabel, len(m.ValueLabels))
	for k, v := range m.ValueLabels {
		c.ValueLabels[k] = slices.Clone(v)
	}
	c.MissingRanges = make(map[string]Ranges, len(m.MissingRanges))
	for k, v := range m.MissingRanges {
		c.MissingRanges[k] = v.Clone()
	}
	c.MissingUserValues = make(map[string][]Value, len(m.MissingUserValues))
	for k, v := range m.MissingUserValues {
		c.MissingUserValues[k] = slices.Clone(v)
	}
	c.IdentifierVars = slices.Clone(m.IdentifierVars)
	c.MeasureVars = slices.Clone(m.MeasureVars)
	c.AttributeVars = slices.Clone(m.AttributeVars)
	return &c
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
