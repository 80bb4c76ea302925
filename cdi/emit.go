package cdi

import (
	"github.com/c360studio/ddicdi/dataset"
	vocab "github.com/c360studio/ddicdi/vocabulary/cdi"
)

// Span is a half-open range [Start, End) of global row indices.
type Span struct {
	Start, End int
}

// Len returns the number of rows in the span.
func (s Span) Len() int {
	if s.End < s.Start {
		return 0
	}
	return s.End - s.Start
}

var classificationLevels = map[dataset.MeasurementLevel]string{
	dataset.LevelNominal: "Nominal",
	dataset.LevelScale:   "Continuous",
	dataset.LevelOrdinal: "Ordinal",
	dataset.LevelUnknown: "Nominal",
}

// ClassificationLevel maps a measurement level to a DDI-CDI classification
// level. Unrecognised levels are Nominal.
func ClassificationLevel(l dataset.MeasurementLevel) string {
	if c, ok := classificationLevels[l]; ok {
		return c
	}
	return "Nominal"
}

var (
	refDataStore             = Ref{ID: IDDataStore, Type: vocab.ClassDataStore}
	refLogicalRecord         = Ref{ID: IDLogicalRecord, Type: vocab.ClassLogicalRecord}
	refWideDataSet           = Ref{ID: IDWideDataSet, Type: vocab.ClassWideDataSet}
	refWideDataStructure     = Ref{ID: IDWideDataStructure, Type: vocab.ClassWideDataStructure}
	refPrimaryKey            = Ref{ID: IDPrimaryKey, Type: vocab.ClassPrimaryKey}
	refPhysicalDataSet       = Ref{ID: IDPhysicalDataSet, Type: vocab.ClassPhysicalDataSet}
	refPhysicalRecordSegment = Ref{ID: IDPhysicalRecordSegment, Type: vocab.ClassPhysicalRecordSegment}
	refPhysicalSegmentLayout = Ref{ID: IDPhysicalSegmentLayout, Type: vocab.ClassPhysicalSegmentLayout}
)

func instanceVariableRef(name string) Ref {
	return Ref{ID: VarID(PrefixInstanceVariable, name), Type: vocab.ClassInstanceVariable}
}

func dataPointRef(row int, name string) Ref {
	return Ref{ID: RowID(PrefixDataPoint, row, name), Type: vocab.ClassDataPoint}
}

// EmitPhysicalDataSetStructure emits the physical data set structure.
func EmitPhysicalDataSetStructure(_ *dataset.Metadata) []Node {
	return []Node{PhysicalDataSetStructure{
		DataStructure:   refWideDataStructure,
		PhysicalDataSet: refPhysicalDataSet,
	}}
}

// EmitPhysicalDataSet emits the physical data set of the named file.
func EmitPhysicalDataSet(_ *dataset.Metadata, filename string) []Node {
	return []Node{PhysicalDataSet{
		PhysicalFileName: filename,
		DataSet:          refWideDataSet,
		DataStore:        refDataStore,
		RecordSegments:   []Ref{refPhysicalRecordSegment},
	}}
}

// EmitPhysicalRecordSegment emits the record segment with the position of
// every data point of the first rows rows, variable by variable.
func EmitPhysicalRecordSegment(meta *dataset.Metadata, rows int) []Node {
	positions := make([]Ref, 0, len(meta.ColumnNames)*max(rows, 0))
	for _, name := range meta.ColumnNames {
		for i := 0; i < rows; i++ {
			positions = append(positions, Ref{ID: RowID(PrefixDataPointPosition, i, name), Type: vocab.ClassDataPointPosition})
		}
	}
	return []Node{PhysicalRecordSegment{
		LogicalRecord:      refLogicalRecord,
		SegmentLayout:      refPhysicalSegmentLayout,
		DataPointPositions: positions,
	}}
}

// EmitPhysicalSegmentLayout emits the segment layout.
func EmitPhysicalSegmentLayout(meta *dataset.Metadata) []Node {
	layout := PhysicalSegmentLayout{LogicalRecord: refLogicalRecord}
	for _, name := range meta.ColumnNames {
		layout.ValueMappings = append(layout.ValueMappings,
			Ref{ID: VarID(PrefixValueMapping, name), Type: vocab.ClassValueMapping})
		layout.ValueMappingPositions = append(layout.ValueMappingPositions,
			Ref{ID: VarID(PrefixValueMappingPosition, name), Type: vocab.ClassValueMappingPosition})
	}
	return []Node{layout}
}

// EmitValueMappings emits one value mapping per variable formatting the data
// points of the first rows rows.
func EmitValueMappings(meta *dataset.Metadata, rows int) []Node {
	nodes := make([]Node, 0, len(meta.ColumnNames))
	for _, name := range meta.ColumnNames {
		points := make([]Ref, 0, max(rows, 0))
		for i := 0; i < rows; i++ {
			points = append(points, dataPointRef(i, name))
		}
		nodes = append(nodes, ValueMapping{ID: VarID(PrefixValueMapping, name), DataPoints: points})
	}
	return nodes
}

// EmitValueMappingPositions emits the column index of every variable.
func EmitValueMappingPositions(meta *dataset.Metadata) []Node {
	nodes := make([]Node, 0, len(meta.ColumnNames))
	for idx, name := range meta.ColumnNames {
		nodes = append(nodes, ValueMappingPosition{
			ID:           VarID(PrefixValueMappingPosition, name),
			Value:        idx,
			ValueMapping: Ref{ID: VarID(PrefixValueMapping, name), Type: vocab.ClassValueMapping},
		})
	}
	return nodes
}

// EmitDataPoints emits a data point per variable and row in span.
func EmitDataPoints(meta *dataset.Metadata, span Span) []Node {
	nodes := make([]Node, 0, len(meta.ColumnNames)*span.Len())
	for _, name := range meta.ColumnNames {
		for i := span.Start; i < span.End; i++ {
			nodes = append(nodes, DataPoint{ID: RowID(PrefixDataPoint, i, name), InstanceVariable: instanceVariableRef(name)})
		}
	}
	return nodes
}

// EmitDataPointPositions emits a data point position per variable and row
// in span.
func EmitDataPointPositions(meta *dataset.Metadata, span Span) []Node {
	nodes := make([]Node, 0, len(meta.ColumnNames)*span.Len())
	for _, name := range meta.ColumnNames {
		for i := span.Start; i < span.End; i++ {
			nodes = append(nodes, DataPointPosition{
				ID:        RowID(PrefixDataPointPosition, i, name),
				Value:     i,
				DataPoint: dataPointRef(i, name),
			})
		}
	}
	return nodes
}

// EmitInstanceValues emits the content of each cell in span together with
// the value domain chosen by the missing-value test.
func EmitInstanceValues(table *dataset.Table, plan *Plan, span Span) []Node {
	meta := plan.Metadata()
	nodes := make([]Node, 0, len(meta.ColumnNames)*span.Len())
	for _, name := range meta.ColumnNames {
		for i := span.Start; i < span.End; i++ {
			v := table.Cell(name, i)
			nodes = append(nodes, InstanceValue{
				ID:          RowID(PrefixInstanceValue, i, name),
				Content:     v,
				DataPoint:   dataPointRef(i, name),
				ValueDomain: plan.ValueDomain(name, v),
			})
		}
	}
	return nodes
}

// EmitDataStore emits the data store.
func EmitDataStore(meta *dataset.Metadata) []Node {
	return []Node{DataStore{RecordCount: meta.RowCount, LogicalRecords: []Ref{refLogicalRecord}}}
}

// EmitLogicalRecord emits the logical record.
func EmitLogicalRecord(meta *dataset.Metadata) []Node {
	vars := make([]Ref, 0, len(meta.ColumnNames))
	for _, name := range meta.ColumnNames {
		vars = append(vars, instanceVariableRef(name))
	}
	return []Node{LogicalRecord{DataSet: refWideDataSet, InstanceVariables: vars}}
}

// EmitWideDataSet emits the wide data set.
func EmitWideDataSet(_ *dataset.Metadata) []Node {
	return []Node{WideDataSet{Structure: refWideDataStructure}}
}

// EmitWideDataStructure emits the data structure with its components ordered
// identifiers, attributes, measures. The primary key edge is present only
// with identifiers.
func EmitWideDataStructure(meta *dataset.Metadata) []Node {
	ids, attrs, measures := meta.Components()
	s := WideDataStructure{Components: []Ref{}}
	for _, name := range ids {
		s.Components = append(s.Components, Ref{ID: VarID(PrefixIdentifierComponent, name), Type: vocab.ClassIdentifierComponent})
	}
	for _, name := range attrs {
		s.Components = append(s.Components, Ref{ID: VarID(PrefixAttributeComponent, name), Type: vocab.ClassAttributeComponent})
	}
	for _, name := range measures {
		s.Components = append(s.Components, Ref{ID: VarID(PrefixMeasureComponent, name), Type: vocab.ClassMeasureComponent})
	}
	if len(ids) > 0 {
		pk := refPrimaryKey
		s.PrimaryKey = &pk
	}
	return []Node{s}
}

func components(vars []string, prefix, class string) []Node {
	nodes := make([]Node, 0, len(vars))
	for _, name := range vars {
		nodes = append(nodes, Component{ID: VarID(prefix, name), Class: class, Variable: instanceVariableRef(name)})
	}
	return nodes
}

// EmitIdentifierComponents emits one component per identifier variable.
func EmitIdentifierComponents(meta *dataset.Metadata) []Node {
	ids, _, _ := meta.Components()
	return components(ids, PrefixIdentifierComponent, vocab.ClassIdentifierComponent)
}

// EmitAttributeComponents emits one component per attribute variable.
func EmitAttributeComponents(meta *dataset.Metadata) []Node {
	_, attrs, _ := meta.Components()
	return components(attrs, PrefixAttributeComponent, vocab.ClassAttributeComponent)
}

// EmitMeasureComponents emits one component per measure variable.
func EmitMeasureComponents(meta *dataset.Metadata) []Node {
	_, _, measures := meta.Components()
	return components(measures, PrefixMeasureComponent, vocab.ClassMeasureComponent)
}

// EmitPrimaryKey emits the primary key, or nothing without identifiers.
func EmitPrimaryKey(meta *dataset.Metadata) []Node {
	ids, _, _ := meta.Components()
	if len(ids) == 0 {
		return nil
	}
	pk := PrimaryKey{}
	for _, name := range ids {
		pk.Components = append(pk.Components, Ref{ID: VarID(PrefixPrimaryKeyComponent, name), Type: vocab.ClassPrimaryKeyComponent})
	}
	return []Node{pk}
}

// EmitPrimaryKeyComponents emits one key component per identifier.
func EmitPrimaryKeyComponents(meta *dataset.Metadata) []Node {
	ids, _, _ := meta.Components()
	nodes := make([]Node, 0, len(ids))
	for _, name := range ids {
		nodes = append(nodes, PrimaryKeyComponent{
			ID:        VarID(PrefixPrimaryKeyComponent, name),
			Component: Ref{ID: VarID(PrefixIdentifierComponent, name), Type: vocab.ClassIdentifierComponent},
		})
	}
	return nodes
}

// EmitInstanceVariables emits one instance variable per column.
func EmitInstanceVariables(plan *Plan) []Node {
	meta := plan.Metadata()
	nodes := make([]Node, 0, len(meta.ColumnNames))
	for _, name := range meta.ColumnNames {
		iv := InstanceVariable{
			ID:                  VarID(PrefixInstanceVariable, name),
			Name:                name,
			DisplayLabel:        meta.Label(name),
			DataType:            XSDType(meta.DeclaredTypes[name]),
			SegmentLayout:       refPhysicalSegmentLayout,
			ValueMapping:        Ref{ID: VarID(PrefixValueMapping, name), Type: vocab.ClassValueMapping},
			SubstantiveConcepts: Ref{ID: VarID(PrefixSubstantiveConceptualDomain, name), Type: vocab.ClassSubstantiveConceptualDomain},
			SubstantiveValues:   Ref{ID: VarID(PrefixSubstantiveValueDomain, name), Type: vocab.ClassSubstantiveValueDomain},
		}
		if plan.HasSentinel(name) {
			iv.SentinelConcepts = &Ref{ID: VarID(PrefixSentinelConceptualDomain, name), Type: vocab.ClassSentinelConceptualDomain}
			iv.SentinelValues = &Ref{ID: VarID(PrefixSentinelValueDomain, name), Type: vocab.ClassSentinelValueDomain}
		}
		nodes = append(nodes, iv)
	}
	return nodes
}

func schemeRef(prefix, name string) *Ref {
	return &Ref{ID: VarID(prefix, name), Type: vocab.ClassConceptScheme}
}

func descriptionRef(prefix, name string) Ref {
	return Ref{ID: VarID(prefix, name), Type: vocab.ClassValueAndConceptDescription}
}

// EmitSubstantiveConceptualDomains emits one substantive conceptual domain
// per column.
func EmitSubstantiveConceptualDomains(plan *Plan) []Node {
	meta := plan.Metadata()
	nodes := make([]Node, 0, len(meta.ColumnNames))
	for _, name := range meta.ColumnNames {
		d := ConceptualDomain{
			ID:          VarID(PrefixSubstantiveConceptualDomain, name),
			Class:       vocab.ClassSubstantiveConceptualDomain,
			Description: descriptionRef(PrefixSubstantiveValueAndConceptDescription, name),
		}
		if plan.HasSubstantiveScheme(name) {
			d.Scheme = schemeRef(PrefixSubstantiveConceptScheme, name)
		}
		nodes = append(nodes, d)
	}
	return nodes
}

// EmitSentinelConceptualDomains emits a sentinel conceptual domain per
// variable with sentinel definitions.
func EmitSentinelConceptualDomains(plan *Plan) []Node {
	var nodes []Node
	for _, name := range plan.Metadata().ColumnNames {
		if !plan.HasSentinel(name) {
			continue
		}
		d := ConceptualDomain{
			ID:          VarID(PrefixSentinelConceptualDomain, name),
			Class:       vocab.ClassSentinelConceptualDomain,
			Description: descriptionRef(PrefixSentinelValueAndConceptDescription, name),
		}
		if plan.HasSentinelScheme(name) {
			d.Scheme = schemeRef(PrefixSentinelConceptScheme, name)
		}
		nodes = append(nodes, d)
	}
	return nodes
}

// EmitSubstantiveValueDomains emits one substantive value domain per column.
func EmitSubstantiveValueDomains(plan *Plan) []Node {
	meta := plan.Metadata()
	nodes := make([]Node, 0, len(meta.ColumnNames))
	for _, name := range meta.ColumnNames {
		d := ValueDomain{
			ID:          VarID(PrefixSubstantiveValueDomain, name),
			Class:       vocab.ClassSubstantiveValueDomain,
			Description: descriptionRef(PrefixSubstantiveValueAndConceptDescription, name),
		}
		if plan.HasSubstantiveScheme(name) {
			d.Enumeration = schemeRef(PrefixSubstantiveConceptScheme, name)
		}
		nodes = append(nodes, d)
	}
	return nodes
}

// EmitSentinelValueDomains emits a sentinel value domain per variable with
// sentinel definitions.
func EmitSentinelValueDomains(plan *Plan) []Node {
	var nodes []Node
	for _, name := range plan.Metadata().ColumnNames {
		if !plan.HasSentinel(name) {
			continue
		}
		d := ValueDomain{
			ID:          VarID(PrefixSentinelValueDomain, name),
			Class:       vocab.ClassSentinelValueDomain,
			Description: descriptionRef(PrefixSentinelValueAndConceptDescription, name),
		}
		if plan.HasSentinelScheme(name) {
			d.Enumeration = schemeRef(PrefixSentinelConceptScheme, name)
		}
		nodes = append(nodes, d)
	}
	return nodes
}

// EmitValueAndConceptDescriptions emits, per column, the substantive
// description and, for variables with sentinel definitions, the sentinel
// description holding the range text and bounds.
func EmitValueAndConceptDescriptions(plan *Plan) []Node {
	meta := plan.Metadata()
	var nodes []Node
	for _, name := range meta.ColumnNames {
		nodes = append(nodes, ValueAndConceptDescription{
			ID:                  VarID(PrefixSubstantiveValueAndConceptDescription, name),
			ClassificationLevel: ClassificationLevel(meta.Level(name)),
		})
		if !plan.HasSentinel(name) {
			continue
		}
		rs := plan.sentinels[name]
		lo, hi := rs.Bounds()
		nodes = append(nodes, ValueAndConceptDescription{
			ID:          VarID(PrefixSentinelValueAndConceptDescription, name),
			Description: rs.String(),
			Minimum:     &lo,
			Maximum:     &hi,
		})
	}
	return nodes
}

// EmitSubstantiveConceptSchemes emits a concept scheme per labeled variable
// over its labeled values that are not sentinel values. Schemes without top
// concepts are omitted.
func EmitSubstantiveConceptSchemes(plan *Plan) []Node {
	var nodes []Node
	for _, name := range plan.Metadata().ColumnNames {
		if !plan.HasSubstantiveScheme(name) {
			continue
		}
		nodes = append(nodes, ConceptScheme{
			ID:          VarID(PrefixSubstantiveConceptScheme, name),
			TopConcepts: plan.substantiveTops[name],
		})
	}
	return nodes
}

// EmitSentinelConceptSchemes emits a concept scheme per variable over its
// labeled sentinel values. Schemes without top concepts are omitted.
func EmitSentinelConceptSchemes(plan *Plan) []Node {
	var nodes []Node
	for _, name := range plan.Metadata().ColumnNames {
		if !plan.HasSentinelScheme(name) {
			continue
		}
		nodes = append(nodes, ConceptScheme{
			ID:          VarID(PrefixSentinelConceptScheme, name),
			TopConcepts: plan.sentinelTops[name],
		})
	}
	return nodes
}

// EmitConcepts emits a concept per labeled value in declaration order.
func EmitConcepts(meta *dataset.Metadata) []Node {
	var nodes []Node
	for _, name := range meta.ColumnNames {
		seen := make(map[string]bool)
		for _, vl := range meta.ValueLabels[name] {
			id := ConceptID(name, vl.Value)
			if seen[id] {
				continue
			}
			seen[id] = true
			nodes = append(nodes, Concept{ID: id, PrefLabel: vl.Label, Notation: vl.Value})
		}
	}
	return nodes
}
