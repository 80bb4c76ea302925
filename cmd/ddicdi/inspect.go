package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/c360studio/ddicdi/dataset"
	"github.com/c360studio/ddicdi/export"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// datasetSummary is the JSON form of inspect.
type datasetSummary struct {
	File      string                `json:"file"`
	Format    string                `json:"format"`
	Encoding  string                `json:"encoding,omitempty"`
	Label     string                `json:"label,omitempty"`
	Rows      int                   `json:"rows"`
	Variables []dataset.VariableRow `json:"variables"`
	Preview   [][]string            `json:"preview,omitempty"`
}

func (a *app) inspectCmd() *cobra.Command {
	var (
		flags   convertFlags
		asJSON  bool
		maxCell int
		preview int
	)

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show the variable view of a data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.apply(cmd, &flags); err != nil {
				return err
			}
			c, err := a.converter()
			if err != nil {
				return err
			}
			ds, err := c.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			summary := datasetSummary{
				File:      ds.Filename,
				Format:    ds.Metadata.SourceFormat,
				Encoding:  ds.Metadata.FileEncoding,
				Label:     ds.Metadata.FileLabel,
				Rows:      ds.RowCount(),
				Variables: ds.Metadata.VariableView(),
			}
			if preview > 0 {
				summary.Preview = previewRows(ds, preview)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			renderSummary(cmd.OutOrStdout(), summary, maxCell)
			return nil
		},
	}

	flags.register(cmd, false)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the variable view as JSON")
	cmd.Flags().IntVar(&maxCell, "width", 40, "Truncate table cells to this many characters (0 = no limit)")
	cmd.Flags().IntVar(&preview, "rows", 0, "Also show the first N data rows")
	return cmd
}

func renderSummary(w io.Writer, s datasetSummary, maxCell int) {
	fmt.Fprintf(w, "%s (%s", s.File, s.Format)
	if s.Encoding != "" {
		fmt.Fprintf(w, ", %s", s.Encoding)
	}
	fmt.Fprintf(w, "): %d rows, %d variables\n", s.Rows, len(s.Variables))
	if s.Label != "" {
		fmt.Fprintln(w, s.Label)
	}

	rows := make([][]string, 0, len(s.Variables))
	for _, v := range s.Variables {
		roles := make([]string, 0, len(v.Roles))
		for _, r := range v.Roles {
			roles = append(roles, string(r))
		}
		rows = append(rows, []string{
			v.Name,
			v.Type,
			v.Format,
			string(v.Measure),
			strings.Join(roles, ","),
			truncate(v.Label, maxCell),
			truncate(dataset.FormatValueLabels(v.Values), maxCell),
			truncate(formatRanges(v.Missing), maxCell),
		})
	}

	fmt.Fprintln(w, newTable("NAME", "TYPE", "FORMAT", "MEASURE", "ROLES", "LABEL", "VALUES", "MISSING").
		Rows(rows...).
		Render())

	if len(s.Preview) == 0 {
		return
	}
	names := make([]string, len(s.Variables))
	for i, v := range s.Variables {
		names[i] = v.Name
	}
	cells := make([][]string, len(s.Preview))
	for i, row := range s.Preview {
		cells[i] = make([]string, len(row))
		for j, c := range row {
			cells[i][j] = truncate(c, maxCell)
		}
	}
	fmt.Fprintln(w, newTable(names...).Rows(cells...).Render())
}

// previewRows renders the first n rows of ds in column order.
func previewRows(ds *dataset.Dataset, n int) [][]string {
	head := ds.Table.Head(n)
	rows := make([][]string, head.Len())
	for i := range rows {
		row := make([]string, len(ds.Metadata.ColumnNames))
		for j, name := range ds.Metadata.ColumnNames {
			row[j] = head.Cell(name, i).String()
		}
		rows[i] = row
	}
	return rows
}

// formatRanges renders missing ranges as "9; -9..-1".
func formatRanges(ranges dataset.Ranges) string {
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		lo, hi := r.Lo.String(), r.Hi.String()
		if lo == hi {
			parts = append(parts, lo)
			continue
		}
		parts = append(parts, lo+".."+hi)
	}
	return strings.Join(parts, "; ")
}

func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (a *app) formatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List the supported output formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := export.Formats()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(formats)
			}
			rows := make([][]string, 0, len(formats))
			for _, f := range formats {
				rows = append(rows, []string{
					string(f.Name),
					f.Extension,
					f.MIMEType,
					strconv.FormatBool(f.RequiresConversion),
					f.Description,
				})
			}
			t := newTable("NAME", "EXTENSION", "MIME TYPE", "RDF", "DESCRIPTION").Rows(rows...)
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the formats as JSON")
	return cmd
}
