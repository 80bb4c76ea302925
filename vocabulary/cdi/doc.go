// Package cdi provides namespace and class IRIs for the DDI-CDI vocabulary.
//
// The converter emits node types by their DDI-CDI local name (for example
// "InstanceVariable") and SKOS terms by their compact "skos:" name. The
// constants here resolve those names to absolute IRIs for the RDF writers
// and carry the fixed JSON-LD context and XML schema location.
package cdi
