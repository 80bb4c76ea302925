package cdi

import "strings"

// Namespace is the DDI-CDI 1.0 RDF namespace.
const Namespace = "http://ddialliance.org/Specification/DDI-CDI/1.0/RDF/"

// XMLNamespace is the DDI-CDI 1.0 XML Schema namespace.
const XMLNamespace = "http://ddialliance.org/Specification/DDI-CDI/1.0/XMLSchema/"

// XMLSchemaLocation is the xsi:schemaLocation value written on the XML root.
const XMLSchemaLocation = XMLNamespace + " https://ddi-cdi-resources.bitbucket.io/2024-03-12/encoding/xml-schema/ddi-cdi.xsd"

// JSONLDContext is the published DDI-CDI JSON-LD context document.
const JSONLDContext = "https://ddi-cdi.github.io/ddi-cdi_v1.0-post/encoding/json-ld/ddi-cdi.jsonld"

// Standard namespaces bound by the RDF writers.
const (
	RDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS = "http://www.w3.org/2000/01/rdf-schema#"
	SKOS = "http://www.w3.org/2004/02/skos/core#"
	XSD  = "http://www.w3.org/2001/XMLSchema#"
	XSI  = "http://www.w3.org/2001/XMLSchema-instance"
)

// RDFType is the rdf:type predicate.
const RDFType = RDF + "type"

// DefaultBaseURI is substituted for fragment and file-scheme identifiers
// when no base URI is configured.
const DefaultBaseURI = "http://example.org/ddi/"

// DefaultAgency is the registration authority written into XML identifiers.
const DefaultAgency = "int.esseric"

// Class names emitted as @type values.
const (
	ClassDataStore                   = "DataStore"
	ClassLogicalRecord               = "LogicalRecord"
	ClassWideDataSet                 = "WideDataSet"
	ClassWideDataStructure           = "WideDataStructure"
	ClassIdentifierComponent         = "IdentifierComponent"
	ClassAttributeComponent          = "AttributeComponent"
	ClassMeasureComponent            = "MeasureComponent"
	ClassPrimaryKey                  = "PrimaryKey"
	ClassPrimaryKeyComponent         = "PrimaryKeyComponent"
	ClassInstanceVariable            = "InstanceVariable"
	ClassSubstantiveConceptualDomain = "SubstantiveConceptualDomain"
	ClassSentinelConceptualDomain    = "SentinelConceptualDomain"
	ClassSubstantiveValueDomain      = "SubstantiveValueDomain"
	ClassSentinelValueDomain         = "SentinelValueDomain"
	ClassValueAndConceptDescription  = "ValueAndConceptDescription"
	ClassPhysicalDataSetStructure    = "PhysicalDataSetStructure"
	ClassPhysicalDataSet             = "PhysicalDataSet"
	ClassPhysicalRecordSegment       = "PhysicalRecordSegment"
	ClassPhysicalSegmentLayout       = "PhysicalSegmentLayout"
	ClassValueMapping                = "ValueMapping"
	ClassValueMappingPosition        = "ValueMappingPosition"
	ClassDataPoint                   = "DataPoint"
	ClassDataPointPosition           = "DataPointPosition"
	ClassInstanceValue               = "InstanceValue"

	// ClassConceptScheme and ClassConcept are SKOS terms in compact form.
	ClassConceptScheme = "skos:ConceptScheme"
	ClassConcept       = "skos:Concept"
)

// SKOS properties in compact form.
const (
	PropHasTopConcept = "skos:hasTopConcept"
	PropPrefLabel     = "skos:prefLabel"
	PropNotation      = "skos:notation"
)

// Expand resolves a compact term to an absolute IRI. "skos:" terms resolve
// against SKOS, "xsd:" against XSD, and bare names against Namespace.
func Expand(term string) string {
	switch {
	case strings.HasPrefix(term, "skos:"):
		return SKOS + strings.TrimPrefix(term, "skos:")
	case strings.HasPrefix(term, "xsd:"):
		return XSD + strings.TrimPrefix(term, "xsd:")
	case strings.HasPrefix(term, "rdf:"):
		return RDF + strings.TrimPrefix(term, "rdf:")
	case strings.HasPrefix(term, "http://"), strings.HasPrefix(term, "https://"):
		return term
	default:
		return Namespace + term
	}
}

// LocalName strips a compact prefix, returning the bare term name.
func LocalName(term string) string {
	if i := strings.IndexByte(term, ':'); i >= 0 && !strings.Contains(term, "//") {
		return term[i+1:]
	}
	return term
}
