package cdi

import (
	"github.com/c360studio/ddicdi/dataset"
	vocab "github.com/c360studio/ddicdi/vocabulary/cdi"
)

// PhysicalDataSetStructure links the physical and logical structures.
type PhysicalDataSetStructure struct {
	DataStructure   Ref
	PhysicalDataSet Ref
}

func (PhysicalDataSetStructure) NodeID() string   { return IDPhysicalDataSetStructure }
func (PhysicalDataSetStructure) NodeType() string { return vocab.ClassPhysicalDataSetStructure }
func (n PhysicalDataSetStructure) Fields() []Field {
	return []Field{
		one("correspondsTo_DataStructure", "PhysicalDataSetStructure_correspondsTo_DataStructure", n.DataStructure),
		one("structures", "PhysicalDataSetStructure_structures_PhysicalDataSet", n.PhysicalDataSet),
	}
}

// PhysicalDataSet describes the source file.
type PhysicalDataSet struct {
	PhysicalFileName string
	DataSet          Ref
	DataStore        Ref
	RecordSegments   []Ref
}

func (PhysicalDataSet) NodeID() string   { return IDPhysicalDataSet }
func (PhysicalDataSet) NodeType() string { return vocab.ClassPhysicalDataSet }
func (n PhysicalDataSet) Fields() []Field {
	return []Field{
		literal("allowsDuplicates", "", false),
		literal("physicalFileName", "", n.PhysicalFileName),
		one("correspondsTo_DataSet", "PhysicalDataSet_correspondsTo_DataSet", n.DataSet),
		one("formats", "PhysicalDataSet_formats_DataStore", n.DataStore),
		many("has_PhysicalRecordSegment", "PhysicalDataSet_has_PhysicalRecordSegment", n.RecordSegments),
	}
}

// PhysicalRecordSegment holds the positions of every data point.
type PhysicalRecordSegment struct {
	LogicalRecord      Ref
	SegmentLayout      Ref
	DataPointPositions []Ref
}

func (PhysicalRecordSegment) NodeID() string   { return IDPhysicalRecordSegment }
func (PhysicalRecordSegment) NodeType() string { return vocab.ClassPhysicalRecordSegment }
func (n PhysicalRecordSegment) Fields() []Field {
	return []Field{
		literal("allowsDuplicates", "", false),
		one("mapsTo", "PhysicalRecordSegment_mapsTo_LogicalRecord", n.LogicalRecord),
		one("has_PhysicalSegmentLayout", "PhysicalRecordSegment_has_PhysicalSegmentLayout", n.SegmentLayout),
		many("has_DataPointPosition", "PhysicalRecordSegment_has_DataPointPosition", n.DataPointPositions),
	}
}

// PhysicalSegmentLayout lists the value mappings of every variable.
type PhysicalSegmentLayout struct {
	LogicalRecord         Ref
	IsDelimited           bool
	IsFixedWidth          bool
	Delimiter             string
	ValueMappings         []Ref
	ValueMappingPositions []Ref
}

func (PhysicalSegmentLayout) NodeID() string   { return IDPhysicalSegmentLayout }
func (PhysicalSegmentLayout) NodeType() string { return vocab.ClassPhysicalSegmentLayout }
func (n PhysicalSegmentLayout) Fields() []Field {
	return []Field{
		literal("allowsDuplicates", "", false),
		one("formats", "PhysicalSegmentLayout_formats_LogicalRecord", n.LogicalRecord),
		literal("isDelimited", "", n.IsDelimited),
		literal("isFixedWidth", "", n.IsFixedWidth),
		literal("delimiter", "", n.Delimiter),
		many("has_ValueMapping", "PhysicalSegmentLayout_has_ValueMapping", n.ValueMappings),
		many("has_ValueMappingPosition", "PhysicalSegmentLayout_has_ValueMappingPosition", n.ValueMappingPositions),
	}
}

// ValueMapping formats the data points of one variable.
type ValueMapping struct {
	ID         string
	DataPoints []Ref
}

func (n ValueMapping) NodeID() string { return n.ID }
func (ValueMapping) NodeType() string { return vocab.ClassValueMapping }
func (n ValueMapping) Fields() []Field {
	return []Field{
		literal("defaultValue", "", ""),
		many("formats", "ValueMapping_formats_DataPoint", n.DataPoints),
	}
}

// ValueMappingPosition is the column index of a variable.
type ValueMappingPosition struct {
	ID           string
	Value        int
	ValueMapping Ref
}

func (n ValueMappingPosition) NodeID() string { return n.ID }
func (ValueMappingPosition) NodeType() string { return vocab.ClassValueMappingPosition }
func (n ValueMappingPosition) Fields() []Field {
	return []Field{
		literal("value", "", n.Value),
		one("indexes", "ValueMappingPosition_indexes_ValueMapping", n.ValueMapping),
	}
}

// DataPoint is one cell of the table.
type DataPoint struct {
	ID               string
	InstanceVariable Ref
}

func (n DataPoint) NodeID() string { return n.ID }
func (DataPoint) NodeType() string { return vocab.ClassDataPoint }
func (n DataPoint) Fields() []Field {
	return []Field{
		one("isDescribedBy", "DataPoint_isDescribedBy_InstanceVariable", n.InstanceVariable),
	}
}

// DataPointPosition is the row index of a data point.
type DataPointPosition struct {
	ID        string
	Value     int
	DataPoint Ref
}

func (n DataPointPosition) NodeID() string { return n.ID }
func (DataPointPosition) NodeType() string { return vocab.ClassDataPointPosition }
func (n DataPointPosition) Fields() []Field {
	return []Field{
		literal("value", "", n.Value),
		one("indexes", "DataPointPosition_indexes_DataPoint", n.DataPoint),
	}
}

// InstanceValue is the content of one cell and the value domain it is
// drawn from.
type InstanceValue struct {
	ID          string
	Content     dataset.Value
	DataPoint   Ref
	ValueDomain Ref
}

func (n InstanceValue) NodeID() string { return n.ID }
func (InstanceValue) NodeType() string { return vocab.ClassInstanceValue }
func (n InstanceValue) Fields() []Field {
	return []Field{
		text("content", TextNested, n.Content),
		one("isStoredIn", "InstanceValue_isStoredIn_DataPoint", n.DataPoint),
		one("hasValueFrom_ValueDomain", "InstanceValue_hasValueFrom_ValueDomain", n.ValueDomain),
	}
}

// DataStore is the store holding the logical record.
type DataStore struct {
	RecordCount    int
	LogicalRecords []Ref
}

func (DataStore) NodeID() string   { return IDDataStore }
func (DataStore) NodeType() string { return vocab.ClassDataStore }
func (n DataStore) Fields() []Field {
	return []Field{
		literal("allowsDuplicates", "", false),
		literal("recordCount", "", n.RecordCount),
		many("has_LogicalRecord", "DataStore_has_LogicalRecord", n.LogicalRecords),
	}
}

// LogicalRecord organizes the data set and owns the instance variables.
type LogicalRecord struct {
	DataSet           Ref
	InstanceVariables []Ref
}

func (LogicalRecord) NodeID() string   { return IDLogicalRecord }
func (LogicalRecord) NodeType() string { return vocab.ClassLogicalRecord }
func (n LogicalRecord) Fields() []Field {
	return []Field{
		one("organizes", "LogicalRecord_organizes_DataSet", n.DataSet),
		many("has_InstanceVariable", "LogicalRecord_has_InstanceVariable", n.InstanceVariables),
	}
}

// WideDataSet is the logical data set.
type WideDataSet struct {
	Structure Ref
}

func (WideDataSet) NodeID() string   { return IDWideDataSet }
func (WideDataSet) NodeType() string { return vocab.ClassWideDataSet }
func (n WideDataSet) Fields() []Field {
	return []Field{
		one("isStructuredBy", "DataSet_isStructuredBy_DataStructure", n.Structure),
	}
}

// WideDataStructure lists components as identifiers, attributes, measures.
// PrimaryKey is nil without identifiers.
type WideDataStructure struct {
	Components []Ref
	PrimaryKey *Ref
}

func (WideDataStructure) NodeID() string   { return IDWideDataStructure }
func (WideDataStructure) NodeType() string { return vocab.ClassWideDataStructure }
func (n WideDataStructure) Fields() []Field {
	fs := []Field{
		many("has_DataStructureComponent", "DataStructure_has_DataStructureComponent", n.Components),
	}
	if n.PrimaryKey != nil {
		fs = append(fs, one("has_PrimaryKey", "DataStructure_has_PrimaryKey", *n.PrimaryKey))
	}
	return fs
}

// Component is an identifier, attribute or measure component. Class holds
// the node type.
type Component struct {
	ID       string
	Class    string
	Variable Ref
}

func (n Component) NodeID() string   { return n.ID }
func (n Component) NodeType() string { return n.Class }
func (n Component) Fields() []Field {
	return []Field{
		one("isDefinedBy_RepresentedVariable", "DataStructureComponent_isDefinedBy_RepresentedVariable", n.Variable),
	}
}

// PrimaryKey is composed of one component per identifier.
type PrimaryKey struct {
	Components []Ref
}

func (PrimaryKey) NodeID() string   { return IDPrimaryKey }
func (PrimaryKey) NodeType() string { return vocab.ClassPrimaryKey }
func (n PrimaryKey) Fields() []Field {
	return []Field{
		many("isComposedOf", "PrimaryKey_isComposedOf_PrimaryKeyComponent", n.Components),
	}
}

// PrimaryKeyComponent points at an identifier component.
type PrimaryKeyComponent struct {
	ID        string
	Component Ref
}

func (n PrimaryKeyComponent) NodeID() string { return n.ID }
func (PrimaryKeyComponent) NodeType() string { return vocab.ClassPrimaryKeyComponent }
func (n PrimaryKeyComponent) Fields() []Field {
	return []Field{
		one("correspondsTo_DataStructureComponent", "PrimaryKeyComponent_correspondsTo_DataStructureComponent", n.Component),
	}
}

// InstanceVariable describes one column. Sentinel references are nil when
// the variable has no missing-value definitions.
type InstanceVariable struct {
	ID                  string
	Name                string
	DisplayLabel        string
	DataType            string
	SegmentLayout       Ref
	ValueMapping        Ref
	SubstantiveConcepts Ref
	SentinelConcepts    *Ref
	SubstantiveValues   Ref
	SentinelValues      *Ref
}

func (n InstanceVariable) NodeID() string { return n.ID }
func (InstanceVariable) NodeType() string { return vocab.ClassInstanceVariable }
func (n InstanceVariable) Fields() []Field {
	fs := []Field{text("name", TextNested, n.Name)}
	if n.DisplayLabel != "" {
		fs = append(fs, text("displayLabel", TextLangString, n.DisplayLabel))
	}
	dt := text("hasIntendedDataType", TextNested, n.DataType)
	dt.IRI = true
	dt.Child = "name"
	fs = append(fs,
		dt,
		one("has_PhysicalSegmentLayout", "InstanceVariable_has_PhysicalSegmentLayout", n.SegmentLayout),
		one("has_ValueMapping", "InstanceVariable_has_ValueMapping", n.ValueMapping),
		one("takesSubstantiveConceptsFrom", "RepresentedVariable_takesSubstantiveConceptsFrom_SubstantiveConceptualDomain", n.SubstantiveConcepts),
	)
	if n.SentinelConcepts != nil {
		fs = append(fs, one("takesSentinelConceptsFrom", "RepresentedVariable_takesSentinelConceptsFrom_SentinelConceptualDomain", *n.SentinelConcepts))
	}
	fs = append(fs, one("takesSubstantiveValuesFrom", "RepresentedVariable_takesSubstantiveValuesFrom_SubstantiveValueDomain", n.SubstantiveValues))
	if n.SentinelValues != nil {
		fs = append(fs, one("takesSentinelValuesFrom", "RepresentedVariable_takesSentinelValuesFrom_SentinelValueDomain", *n.SentinelValues))
	}
	return fs
}

// ConceptualDomain is the substantive or sentinel conceptual domain of a
// variable. Scheme is nil when no concept scheme is emitted for it.
type ConceptualDomain struct {
	ID          string
	Class       string
	Description Ref
	Scheme      *Ref
}

func (n ConceptualDomain) NodeID() string   { return n.ID }
func (n ConceptualDomain) NodeType() string { return n.Class }
func (n ConceptualDomain) Fields() []Field {
	fs := []Field{
		one("isDescribedBy", "ConceptualDomain_isDescribedBy_ValueAndConceptDescription", n.Description),
	}
	if n.Scheme != nil {
		fs = append(fs, one("takesConceptsFrom", "ConceptualDomain_takesConceptsFrom_ConceptSystem", *n.Scheme))
	}
	return fs
}

// ValueDomain is the substantive or sentinel value domain of a variable.
// Enumeration is nil when no concept scheme is emitted for it.
type ValueDomain struct {
	ID          string
	Class       string
	Enumeration *Ref
	Description Ref
}

func (n ValueDomain) NodeID() string   { return n.ID }
func (n ValueDomain) NodeType() string { return n.Class }
func (n ValueDomain) Fields() []Field {
	var fs []Field
	if n.Enumeration != nil {
		fs = append(fs, one("takesValuesFrom_EnumerationDomain", n.Class+"_takesValuesFrom_EnumerationDomain", *n.Enumeration))
	}
	return append(fs, one("isDescribedBy", n.Class+"_isDescribedBy_ValueAndConceptDescription", n.Description))
}

// ValueAndConceptDescription carries the classification level of the
// substantive domain, or the description and bounds of the sentinel domain.
type ValueAndConceptDescription struct {
	ID                  string
	ClassificationLevel string
	Description         string
	Minimum             *dataset.Value
	Maximum             *dataset.Value
}

func (n ValueAndConceptDescription) NodeID() string { return n.ID }
func (ValueAndConceptDescription) NodeType() string { return vocab.ClassValueAndConceptDescription }
func (n ValueAndConceptDescription) Fields() []Field {
	var fs []Field
	if n.ClassificationLevel != "" {
		fs = append(fs, literal("classificationLevel", "", n.ClassificationLevel))
	}
	if n.Description != "" {
		fs = append(fs, text("description", TextLangString, n.Description))
	}
	if n.Minimum != nil {
		fs = append(fs, literal("minimumValueInclusive", "", *n.Minimum))
	}
	if n.Maximum != nil {
		fs = append(fs, literal("maximumValueInclusive", "", *n.Maximum))
	}
	return fs
}

// ConceptScheme is a SKOS concept scheme over labeled values.
type ConceptScheme struct {
	ID          string
	TopConcepts []Ref
}

func (n ConceptScheme) NodeID() string { return n.ID }
func (ConceptScheme) NodeType() string { return vocab.ClassConceptScheme }
func (n ConceptScheme) Fields() []Field {
	return []Field{many(vocab.PropHasTopConcept, "", n.TopConcepts)}
}

// Concept is a SKOS concept for one labeled value.
type Concept struct {
	ID        string
	PrefLabel string
	Notation  dataset.Value
}

func (n Concept) NodeID() string { return n.ID }
func (Concept) NodeType() string { return vocab.ClassConcept }
func (n Concept) Fields() []Field {
	return []Field{
		literal(vocab.PropPrefLabel, "", n.PrefLabel),
		literal(vocab.PropNotation, "", n.Notation.String()),
	}
}
