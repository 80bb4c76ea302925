package cdi

import (
	"strconv"

	"github.com/c360studio/ddicdi/dataset"
)

// Identifiers of singleton nodes.
const (
	IDDataStore                = "#dataStore"
	IDLogicalRecord            = "#logicalRecord"
	IDWideDataSet              = "#wideDataSet"
	IDWideDataStructure        = "#wideDataStructure"
	IDPrimaryKey               = "#primaryKey"
	IDPhysicalDataSetStructure = "#physicalDataSetStructure"
	IDPhysicalDataSet          = "#physicalDataSet"
	IDPhysicalRecordSegment    = "#physicalRecordSegment"
	IDPhysicalSegmentLayout    = "#physicalSegmentLayout"
)

// Prefixes of per-variable and per-row identifiers.
const (
	PrefixInstanceVariable                      = "instanceVariable"
	PrefixIdentifierComponent                   = "identifierComponent"
	PrefixAttributeComponent                    = "attributeComponent"
	PrefixMeasureComponent                      = "measureComponent"
	PrefixPrimaryKeyComponent                   = "primaryKeyComponent"
	PrefixSubstantiveConceptualDomain           = "substantiveConceptualDomain"
	PrefixSentinelConceptualDomain              = "sentinelConceptualDomain"
	PrefixSubstantiveValueDomain                = "substantiveValueDomain"
	PrefixSentinelValueDomain                   = "sentinelValueDomain"
	PrefixSubstantiveValueAndConceptDescription = "substantiveValueAndConceptDescription"
	PrefixSentinelValueAndConceptDescription    = "sentinelValueAndConceptDescription"
	PrefixSubstantiveConceptScheme              = "substantiveConceptScheme"
	PrefixSentinelConceptScheme                 = "sentinelConceptScheme"
	PrefixValueMapping                          = "valueMapping"
	PrefixValueMappingPosition                  = "valueMappingPosition"
	PrefixDataPoint                             = "dataPoint"
	PrefixDataPointPosition                     = "dataPointPosition"
	PrefixInstanceValue                         = "instanceValue"
)

// VarID returns "#<prefix>-<variable>".
func VarID(prefix, variable string) string {
	return "#" + prefix + "-" + variable
}

// RowID returns "#<prefix>-<row>-<variable>".
func RowID(prefix string, row int, variable string) string {
	return "#" + prefix + "-" + strconv.Itoa(row) + "-" + variable
}

// ConceptID returns "#<variable>-concept-<value>".
func ConceptID(variable string, v dataset.Value) string {
	return "#" + variable + "-concept-" + v.String()
}
