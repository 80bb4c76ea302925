// Package dataset holds the in-memory form of a loaded statistical dataset:
// a column-oriented table of typed cell values and the per-variable metadata
// bundle (labels, declared types, value labels, missing-value definitions,
// measurement levels and structural roles) that drives graph generation.
//
// Metadata is owned by the caller. The graph emitter only reads it.
package dataset
