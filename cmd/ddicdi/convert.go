package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/c360studio/ddicdi/convert"
	"github.com/c360studio/ddicdi/dataset"
	"github.com/c360studio/ddicdi/export"
	"github.com/c360studio/ddicdi/reader"
)

// convertFlags are the flags shared by convert, inspect and watch.
type convertFlags struct {
	format        string
	outDir        string
	baseURI       string
	agency        string
	maxRows       int
	allRows       bool
	chunkSize     int
	roles         []string
	defaultRole   string
	encodings     []string
	delimiter     string
	decomposeKeys bool
}

func (f *convertFlags) register(cmd *cobra.Command, output bool) {
	flags := cmd.Flags()
	if output {
		flags.StringVarP(&f.format, "format", "f", "", "Output format (jsonld, xml, turtle, ntriples)")
		flags.StringVarP(&f.outDir, "out", "o", "", "Output directory (default: next to each input)")
		flags.StringVar(&f.baseURI, "base-uri", "", "Base URI for Turtle and N-Triples identifiers")
		flags.StringVar(&f.agency, "agency", "", "Registration authority for XML identifiers")
		flags.IntVar(&f.maxRows, "max-rows", 0, "Rows turned into data points (default 5)")
		flags.BoolVar(&f.allRows, "all-rows", false, "Process every row in chunks")
		flags.IntVar(&f.chunkSize, "chunk-size", 0, "Rows per chunk with --all-rows (default 1000)")
	}
	flags.StringArrayVar(&f.roles, "roles", nil, "Variable roles as var=role[,role]; repeat or separate with ';'")
	flags.StringVar(&f.defaultRole, "default-role", "", "Role of variables without an assignment (identifier, measure, attribute)")
	flags.StringSliceVar(&f.encodings, "encoding", nil, "Candidate text encoding, tried in order (repeatable)")
	flags.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter (default: sniffed; 'tab' for tab)")
	flags.BoolVar(&f.decomposeKeys, "decompose-keys", false, "Split flat JSON map keys into key_1..key_n columns")
}

// apply overrides the configuration with the flags set on cmd and
// validates the result.
func (a *app) apply(cmd *cobra.Command, f *convertFlags) error {
	cfg := a.cfg
	changed := cmd.Flags().Changed

	if changed("format") {
		cfg.Output.Format = strings.ToLower(f.format)
	}
	if changed("out") {
		cfg.Output.Dir = f.outDir
	}
	if changed("base-uri") {
		cfg.Output.BaseURI = f.baseURI
	}
	if changed("agency") {
		cfg.Output.Agency = f.agency
	}
	if changed("max-rows") {
		cfg.Rows.MaxRows = f.maxRows
	}
	if changed("all-rows") {
		cfg.Rows.ProcessAll = f.allRows
	}
	if changed("chunk-size") {
		cfg.Rows.ChunkSize = f.chunkSize
	}
	if changed("roles") {
		roles, err := parseRoles(f.roles)
		if err != nil {
			return err
		}
		cfg.Input.Roles = roles
	}
	if changed("default-role") {
		cfg.Input.DefaultRole = strings.ToLower(f.defaultRole)
	}
	if changed("encoding") {
		cfg.Input.Encodings = f.encodings
	}
	if changed("delimiter") {
		cfg.Input.CSVDelimiter = parseDelimiter(f.delimiter)
	}
	if changed("decompose-keys") {
		cfg.Input.DecomposeKeys = f.decomposeKeys
	}

	if _, err := export.ParseFormat(cfg.Output.Format); err != nil {
		return err
	}
	return cfg.Validate()
}

// converter builds a converter from the validated configuration.
func (a *app) converter() (*convert.Converter, error) {
	cfg := a.cfg
	format, err := export.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	var role dataset.Role
	if cfg.Input.DefaultRole != "" {
		if role, err = dataset.ParseRole(cfg.Input.DefaultRole); err != nil {
			return nil, err
		}
	}
	var delim rune
	if cfg.Input.CSVDelimiter != "" {
		delim, _ = utf8.DecodeRuneInString(cfg.Input.CSVDelimiter)
	}

	return convert.New(convert.Options{
		Format:         format,
		OutDir:         cfg.Output.Dir,
		BaseURI:        cfg.Output.BaseURI,
		Agency:         cfg.Output.Agency,
		RowLimit:       cfg.Rows.MaxRows,
		ProcessAllRows: cfg.Rows.ProcessAll,
		ChunkSize:      cfg.Rows.ChunkSize,
		Read: reader.Options{
			Encodings:     cfg.Input.Encodings,
			Delimiter:     delim,
			DecomposeKeys: cfg.Input.DecomposeKeys,
		},
		Roles:       cfg.Input.Roles,
		DefaultRole: role,
		Logger:      a.logger,
		Metrics:     a.metrics,
	}), nil
}

// parseRoles parses "var=role[,role]" entries. An entry may hold several
// assignments separated by ';'.
func parseRoles(entries []string) (map[string]string, error) {
	roles := make(map[string]string)
	for _, entry := range entries {
		for _, part := range strings.Split(entry, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, spec, ok := strings.Cut(part, "=")
			name = strings.TrimSpace(name)
			if !ok || name == "" {
				return nil, fmt.Errorf("invalid role assignment %q: want var=role", part)
			}
			roles[name] = strings.TrimSpace(spec)
		}
	}
	return roles, nil
}

func parseDelimiter(s string) string {
	switch strings.ToLower(s) {
	case "tab", `\t`:
		return "\t"
	}
	return s
}

func (a *app) convertCmd() *cobra.Command {
	var (
		flags  convertFlags
		stdout bool
	)

	cmd := &cobra.Command{
		Use:   "convert [flags] <file|dir|glob>...",
		Short: "Convert data files to DDI-CDI",
		Long: `Convert reads each input and writes <name>_DDICDI<ext> next to it, or into
--out. Directories are searched recursively and glob patterns may use **.

By default only the first 5 rows become data points; use --max-rows or
--all-rows to include more.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.apply(cmd, &flags); err != nil {
				return err
			}
			defer a.writeMetrics()

			c, err := a.converter()
			if err != nil {
				return err
			}
			inputs, err := c.ResolveInputs(args)
			if err != nil {
				return err
			}
			if stdout && len(inputs) > 1 {
				return fmt.Errorf("--stdout takes a single input, got %d", len(inputs))
			}

			ctx := cmd.Context()
			var errs []error
			for _, path := range inputs {
				if stdout {
					res, err := c.Convert(ctx, path)
					if err != nil {
						return err
					}
					_, err = cmd.OutOrStdout().Write(res.Data)
					return err
				}
				res, err := c.ConvertFile(ctx, path)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d nodes, %d rows)\n",
					path, res.Output, len(res.Graph.Nodes), res.Graph.Rows)
			}
			if len(errs) > 0 {
				a.logger.Warn("some conversions failed",
					slog.Int("failed", len(errs)),
					slog.Int("total", len(inputs)))
				return errors.Join(errs...)
			}
			return nil
		},
	}

	flags.register(cmd, true)
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Write the output to stdout instead of a file")
	return cmd
}
