package cdi

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/c360studio/ddicdi/dataset"
)

const (
	// DefaultRowLimit caps the rows turned into data points unless all rows
	// are requested.
	DefaultRowLimit = 5

	// DefaultChunkSize is the number of rows emitted per batch when all rows
	// are processed.
	DefaultChunkSize = 1000
)

// ErrInvalidInput is returned when Generate is called without a table or
// metadata, or when the table lacks a declared column.
var ErrInvalidInput = errors.New("invalid generator input")

// Options controls graph generation.
type Options struct {
	// Filename is written as the physical file name.
	Filename string

	// RowLimit caps the rows turned into data points. Zero means
	// DefaultRowLimit.
	RowLimit int

	// ProcessAllRows emits data points for every row in chunks of
	// ChunkSize, ignoring RowLimit.
	ProcessAllRows bool

	// ChunkSize is the batch size for ProcessAllRows. Zero means
	// DefaultChunkSize.
	ChunkSize int

	Logger *slog.Logger
}

// Graph is an emitted node graph in canonical order.
type Graph struct {
	Nodes []Node

	// Rows is the number of rows turned into data points.
	Rows int

	// Chunks is the number of row batches emitted.
	Chunks int
}

// Generate builds the complete graph for a table and its metadata.
//
// Row indices in identifiers are global row indices of the table. Under the
// row cap the first RowLimit rows are emitted, so indices run from zero.
// With ProcessAllRows the per-row nodes are produced chunk by chunk, each
// chunk carrying its own offset.
func Generate(table *dataset.Table, meta *dataset.Metadata, opts Options) (*Graph, error) {
	if table == nil || meta == nil {
		return nil, fmt.Errorf("generate: %w: table and metadata are required", ErrInvalidInput)
	}
	if table.Len() > 0 {
		for _, name := range meta.ColumnNames {
			if table.Column(name) == nil {
				return nil, fmt.Errorf("generate: %w: column %s not in table", ErrInvalidInput, name)
			}
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rows := table.Len()
	if !opts.ProcessAllRows {
		limit := opts.RowLimit
		if limit <= 0 {
			limit = DefaultRowLimit
		}
		rows = min(rows, limit)
	}
	chunk := rows
	if opts.ProcessAllRows {
		chunk = opts.ChunkSize
		if chunk <= 0 {
			chunk = DefaultChunkSize
		}
	}

	plan := NewPlan(meta, logger)
	g := &Graph{Rows: rows}

	add := func(nodes []Node) { g.Nodes = append(g.Nodes, nodes...) }

	add(EmitPhysicalDataSetStructure(meta))
	add(EmitPhysicalDataSet(meta, opts.Filename))
	add(EmitPhysicalRecordSegment(meta, rows))
	add(EmitPhysicalSegmentLayout(meta))
	add(EmitValueMappings(meta, rows))
	add(EmitValueMappingPositions(meta))

	var points, positions, values []Node
	for start := 0; start < rows; start += chunk {
		span := Span{Start: start, End: min(start+chunk, rows)}
		points = append(points, EmitDataPoints(meta, span)...)
		positions = append(positions, EmitDataPointPositions(meta, span)...)
		values = append(values, EmitInstanceValues(table, plan, span)...)
		g.Chunks++
		logger.Debug("emitted row chunk",
			slog.Int("start", span.Start),
			slog.Int("end", span.End))
	}
	add(points)
	add(positions)
	add(values)

	add(EmitDataStore(meta))
	add(EmitLogicalRecord(meta))
	add(EmitWideDataSet(meta))
	add(EmitWideDataStructure(meta))
	add(EmitMeasureComponents(meta))
	add(EmitInstanceVariables(plan))
	add(EmitSubstantiveConceptualDomains(plan))
	add(EmitSentinelConceptualDomains(plan))
	add(EmitSubstantiveValueDomains(plan))
	add(EmitSentinelValueDomains(plan))
	add(EmitValueAndConceptDescriptions(plan))
	add(EmitSubstantiveConceptSchemes(plan))
	add(EmitSentinelConceptSchemes(plan))
	add(EmitConcepts(meta))

	ids, attrs, _ := meta.Components()
	if len(ids) > 0 {
		add(EmitIdentifierComponents(meta))
		add(EmitPrimaryKey(meta))
		add(EmitPrimaryKeyComponents(meta))
	}
	if len(attrs) > 0 {
		add(EmitAttributeComponents(meta))
	}

	logger.Debug("generated graph",
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("rows", g.Rows),
		slog.Int("chunks", g.Chunks))
	return g, nil
}

// Count returns the number of nodes of a type.
func (g *Graph) Count(nodeType string) int {
	n := 0
	for _, node := range g.Nodes {
		if node.NodeType() == nodeType {
			n++
		}
	}
	return n
}

