// Package convert runs the full pipeline from a data file to serialized
// DDI-CDI: read, assign roles, generate the node graph, serialize.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	errs "github.com/c360studio/semstreams/errors"
	"github.com/google/uuid"

	"github.com/c360studio/ddicdi/cdi"
	"github.com/c360studio/ddicdi/dataset"
	"github.com/c360studio/ddicdi/export"
	"github.com/c360studio/ddicdi/metrics"
	"github.com/c360studio/ddicdi/reader"
)

// Options configures a Converter.
type Options struct {
	// Format is the output format. Empty means JSON-LD.
	Format export.Format

	// OutDir is where ConvertFile writes. Empty writes next to the input.
	OutDir string

	BaseURI string
	Agency  string

	// RowLimit caps the rows turned into data points. Zero means
	// cdi.DefaultRowLimit.
	RowLimit       int
	ProcessAllRows bool
	ChunkSize      int

	// Read holds the reader options. Its RowLimit is derived from RowLimit
	// and ProcessAllRows.
	Read reader.Options

	// Roles maps variable names to comma separated role lists. When empty
	// every variable takes DefaultRole, or the format default when
	// DefaultRole is empty: identifier for JSON, measure otherwise.
	Roles       map[string]string
	DefaultRole dataset.Role

	Now      func() time.Time
	Logger   *slog.Logger
	Metrics  *metrics.Registry
	Registry *reader.Registry
}

// Result is the outcome of one conversion.
type Result struct {
	RunID string

	// Input is the path converted.
	Input string

	// Output is the path written by ConvertFile. Empty for Convert.
	Output string

	Format   export.Format
	Data     []byte
	Dataset  *dataset.Dataset
	Graph    *cdi.Graph
	Duration time.Duration
}

// Converter converts data files to DDI-CDI.
type Converter struct {
	opts     Options
	exporter *export.Exporter
	registry *reader.Registry
	logger   *slog.Logger
}

// New creates a converter.
func New(opts Options) *Converter {
	if opts.Format == "" {
		opts.Format = export.FormatJSONLD
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Registry
	if registry == nil {
		registry = reader.DefaultRegistry
	}
	return &Converter{
		opts: opts,
		exporter: export.NewExporter(export.Options{
			BaseURI: opts.BaseURI,
			Agency:  opts.Agency,
			Now:     opts.Now,
		}),
		registry: registry,
		logger:   logger,
	}
}

// Format returns the output format of the converter.
func (c *Converter) Format() export.Format {
	return c.opts.Format
}

// Supports reports whether path has a readable input format.
func (c *Converter) Supports(path string) bool {
	return c.registry.Supports(path)
}

// Convert reads path and returns the serialized graph without writing it.
func (c *Converter) Convert(ctx context.Context, path string) (*Result, error) {
	runID := uuid.NewString()
	logger := c.logger.With(slog.String("run_id", runID), slog.String("input", path))
	start := c.opts.Now()

	res, err := c.convert(ctx, logger, path)
	if res == nil {
		res = &Result{Input: path, Format: c.opts.Format}
	}
	res.RunID = runID
	res.Duration = c.opts.Now().Sub(start)
	c.record(res, err)
	if err != nil {
		logger.Error("conversion failed",
			slog.String("class", errs.Classify(err).String()),
			slog.Any("error", err))
		return nil, err
	}
	logger.Info("converted",
		slog.String("format", string(res.Format)),
		slog.Int("nodes", len(res.Graph.Nodes)),
		slog.Int("rows", res.Graph.Rows),
		slog.Int("bytes", len(res.Data)),
		slog.Duration("duration", res.Duration))
	return res, nil
}

func (c *Converter) convert(ctx context.Context, logger *slog.Logger, path string) (*Result, error) {
	ds, err := c.read(ctx, logger, path)
	if err != nil {
		return nil, err
	}
	res := &Result{Input: path, Format: c.opts.Format, Dataset: ds}
	graph, data, err := c.serialize(ctx, logger, ds)
	res.Graph, res.Data = graph, data
	return res, err
}

// Read loads path and assigns variable roles without generating a graph.
func (c *Converter) Read(ctx context.Context, path string) (*dataset.Dataset, error) {
	return c.read(ctx, c.logger, path)
}

func (c *Converter) read(ctx context.Context, logger *slog.Logger, path string) (*dataset.Dataset, error) {
	readOpts := c.opts.Read
	readOpts.Logger = logger
	readOpts.RowLimit = 0
	if !c.opts.ProcessAllRows {
		readOpts.RowLimit = c.rowLimit()
	}
	ds, err := c.registry.Read(path, readOpts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.assignRoles(logger, ds); err != nil {
		return nil, fmt.Errorf("assign roles %s: %w", path, err)
	}
	return ds, nil
}

// ConvertDataset generates and serializes a dataset already in memory.
// Roles are taken from its metadata as they are.
func (c *Converter) ConvertDataset(ctx context.Context, ds *dataset.Dataset) (*cdi.Graph, []byte, error) {
	return c.serialize(ctx, c.logger, ds)
}

func (c *Converter) serialize(ctx context.Context, logger *slog.Logger, ds *dataset.Dataset) (*cdi.Graph, []byte, error) {
	graph, err := cdi.Generate(ds.Table, ds.Metadata, cdi.Options{
		Filename:       ds.Filename,
		RowLimit:       c.opts.RowLimit,
		ProcessAllRows: c.opts.ProcessAllRows,
		ChunkSize:      c.opts.ChunkSize,
		Logger:         logger,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return graph, nil, err
	}
	data, err := c.exporter.Marshal(graph.Nodes, c.opts.Format)
	if err != nil {
		return graph, nil, fmt.Errorf("serialize %s: %w", ds.Filename, err)
	}
	return graph, data, nil
}

// ConvertFile converts path and writes the output to OutputPath(path).
func (c *Converter) ConvertFile(ctx context.Context, path string) (*Result, error) {
	res, err := c.Convert(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := c.OutputPath(path)
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(out, res.Data, 0644); err != nil {
		return nil, fmt.Errorf("write output %s: %w", out, err)
	}
	res.Output = out
	c.logger.Debug("output written",
		slog.String("run_id", res.RunID),
		slog.String("output", out))
	return res, nil
}

// OutputPath returns where ConvertFile writes the conversion of input.
func (c *Converter) OutputPath(input string) string {
	dir := c.opts.OutDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, export.OutputName(input, c.opts.Format))
}

func (c *Converter) rowLimit() int {
	if c.opts.RowLimit > 0 {
		return c.opts.RowLimit
	}
	return cdi.DefaultRowLimit
}

func (c *Converter) assignRoles(logger *slog.Logger, ds *dataset.Dataset) error {
	meta := ds.Metadata
	if len(c.opts.Roles) == 0 {
		role := c.opts.DefaultRole
		if role == "" {
			role = dataset.RoleMeasure
			if meta.SourceFormat == "json" {
				role = dataset.RoleIdentifier
			}
		}
		return meta.ApplyRoles(nil, role)
	}
	for name := range c.opts.Roles {
		if !slices.Contains(meta.ColumnNames, name) {
			logger.Warn("role assigned to unknown variable", slog.String("variable", name))
		}
	}
	return meta.ApplyRoles(c.opts.Roles, c.opts.DefaultRole)
}

func (c *Converter) record(res *Result, err error) {
	if c.opts.Metrics == nil {
		return
	}
	conv := metrics.Conversion{
		InputFormat:  "unknown",
		OutputFormat: string(res.Format),
		Duration:     res.Duration,
		Bytes:        len(res.Data),
		Err:          err,
	}
	if rd, lerr := c.registry.Lookup(res.Input); lerr == nil {
		conv.InputFormat = rd.Name()
	}
	if res.Graph != nil {
		conv.Rows = res.Graph.Rows
		conv.NodeTypes = make(map[string]int)
		for _, n := range res.Graph.Nodes {
			conv.NodeTypes[n.NodeType()]++
		}
	}
	if err == nil {
		conv.Finished = c.opts.Now()
	}
	c.opts.Metrics.RecordConversion(conv)
}
