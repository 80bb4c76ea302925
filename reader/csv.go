package reader

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/c360studio/ddicdi/dataset"
)

// delimiterCandidates are the separators sniffed in order of preference.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// sniffLines is the number of leading lines inspected when sniffing.
const sniffLines = 10

// CSVReader reads delimited text files with a header row.
type CSVReader struct{}

// NewCSVReader creates a CSV reader.
func NewCSVReader() *CSVReader { return &CSVReader{} }

// Name implements Reader.
func (*CSVReader) Name() string { return "csv" }

// Extensions implements Reader.
func (*CSVReader) Extensions() []string { return []string{".csv", ".tsv"} }

// Read implements Reader.
func (c *CSVReader) Read(filename string, content []byte, opts Options) (*dataset.Dataset, error) {
	text, enc, err := decodeText(filename, content, opts)
	if err != nil {
		return nil, err
	}

	delim := opts.Delimiter
	if delim == 0 {
		if strings.EqualFold(filepath.Ext(filename), ".tsv") {
			delim = '\t'
		} else {
			delim = sniffDelimiter(text)
		}
	}
	opts.logger().Debug("csv dialect", slog.String("file", filename), slog.String("delimiter", string(delim)))

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		meta := dataset.NewMetadata()
		meta.FileEncoding = enc
		return &dataset.Dataset{Table: dataset.NewTable(), Metadata: meta}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	names := uniqueNames(header)

	cells := make(map[string][]string, len(names))
	rows := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", rows+1, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" && len(names) > 1 {
			continue
		}
		rows++
		if opts.RowLimit > 0 && rows > opts.RowLimit {
			continue
		}
		for i, name := range names {
			cell := ""
			if i < len(rec) {
				cell = rec[i]
			}
			cells[name] = append(cells[name], cell)
		}
	}

	meta := dataset.NewMetadata(names...)
	meta.RowCount = rows
	meta.FileEncoding = enc
	table, err := columnTable(names, cells, meta)
	if err != nil {
		return nil, err
	}
	return &dataset.Dataset{Table: table, Metadata: meta}, nil
}

// sniffDelimiter picks the candidate that occurs the same non-zero number of
// times on each leading line, preferring the most frequent.
func sniffDelimiter(text string) rune {
	lines := strings.SplitN(text, "\n", sniffLines+1)
	if len(lines) > sniffLines {
		lines = lines[:sniffLines]
	}
	best, bestCount := ',', 0
	for _, d := range delimiterCandidates {
		count, consistent := -1, true
		for _, line := range lines {
			line = strings.TrimRight(line, "\r")
			if line == "" {
				continue
			}
			n := countOutsideQuotes(line, d)
			if count == -1 {
				count = n
			} else if n != count {
				consistent = false
				break
			}
		}
		if consistent && count > bestCount {
			best, bestCount = d, count
		}
	}
	return best
}

func countOutsideQuotes(line string, d rune) int {
	n, quoted := 0, false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == d && !quoted:
			n++
		}
	}
	return n
}

// uniqueNames trims header cells and renames blanks and duplicates. A
// generated name never collides with another header cell.
func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		out[i] = name
		taken[name] = true
	}
	used := make(map[string]bool, len(header))
	for i, name := range out {
		if used[name] {
			candidate := name
			for n := 2; taken[candidate] || used[candidate]; n++ {
				candidate = fmt.Sprintf("%s_%d", name, n)
			}
			name = candidate
			out[i] = name
		}
		used[name] = true
	}
	return out
}
