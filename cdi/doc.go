// Package cdi maps dataset metadata to a DDI-CDI node graph.
//
// Each node kind has one emitter function that takes the metadata bundle (and
// for per-row kinds the table and a row span) and returns the nodes in a
// deterministic order. Emitters never fail for absent value labels, missing
// values or role lists: the corresponding nodes and the edges pointing at
// them are left out, so every reference in an emitted graph resolves to a
// node of the same graph.
//
// Generate assembles the full graph in canonical order, applying the row cap
// or chunked processing of all rows.
package cdi
