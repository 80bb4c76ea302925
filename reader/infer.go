package reader

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/c360studio/ddicdi/dataset"
)

// nullTokens are the cell texts read as missing in text formats.
var nullTokens = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "None", "#N/A"}

// dateLike matches the cells sniffed as dates before a full dateparse pass.
var dateLike = regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}([ T]\d{1,2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?)?$|^\d{1,2}[/.]\d{1,2}[/.]\d{2,4}( \d{1,2}:\d{2}(:\d{2})?)?$`)

// Declared type tags assigned by inference.
const (
	typeInt      = "int64"
	typeFloat    = "float64"
	typeDatetime = "datetime"
	typeString   = "string"
)

// dateSample is the number of non-null cells that must look like dates.
const dateSample = 20

func isNullToken(s string) bool {
	return slices.Contains(nullTokens, strings.TrimSpace(s))
}

// inferColumn converts a text column to typed cells. It tries integer,
// float and datetime in turn, falling back to strings.
func inferColumn(cells []string) ([]dataset.Value, string) {
	if col, ok := parseColumn(cells, parseInt); ok {
		return col, typeInt
	}
	if col, ok := parseColumn(cells, parseFloat); ok {
		return normalizeFloats(col)
	}
	if looksLikeDates(cells) {
		if col, ok := parseColumn(cells, parseDate); ok {
			return col, typeDatetime
		}
	}
	col := make([]dataset.Value, len(cells))
	for i, s := range cells {
		if isNullToken(s) {
			col[i] = dataset.Null()
			continue
		}
		col[i] = dataset.Str(s)
	}
	return col, typeString
}

// normalizeFloats stores an all-integral float column as ints and returns
// the column's type tag.
func normalizeFloats(col []dataset.Value) ([]dataset.Value, string) {
	col = dataset.NormalizeColumn(col)
	for _, v := range col {
		if v.Kind() == dataset.KindFloat {
			return col, typeFloat
		}
	}
	return col, typeInt
}

// levelFor returns the measurement level inferred for a type tag.
func levelFor(typ string) dataset.MeasurementLevel {
	if typ == typeString {
		return dataset.LevelNominal
	}
	return dataset.LevelScale
}

// parseColumn applies parse to every non-null cell. A column of nulls only
// does not parse.
func parseColumn(cells []string, parse func(string) (dataset.Value, bool)) ([]dataset.Value, bool) {
	col := make([]dataset.Value, len(cells))
	seen := false
	for i, s := range cells {
		if isNullToken(s) {
			col[i] = dataset.Null()
			continue
		}
		v, ok := parse(strings.TrimSpace(s))
		if !ok {
			return nil, false
		}
		col[i] = v
		seen = true
	}
	return col, seen
}

func parseInt(s string) (dataset.Value, bool) {
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return dataset.Value{}, false
	}
	return dataset.Int(i), true
}

func parseFloat(s string) (dataset.Value, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return dataset.Value{}, false
	}
	return dataset.Float(f), true
}

func parseDate(s string) (dataset.Value, bool) {
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return dataset.Value{}, false
	}
	return dataset.Time(t.UTC()), true
}

func looksLikeDates(cells []string) bool {
	n := 0
	for _, s := range cells {
		if isNullToken(s) {
			continue
		}
		if !dateLike.MatchString(strings.TrimSpace(s)) {
			return false
		}
		if n++; n >= dateSample {
			break
		}
	}
	return n > 0
}

// columnTable infers every column and fills the table and metadata.
func columnTable(names []string, cells map[string][]string, meta *dataset.Metadata) (*dataset.Table, error) {
	table := dataset.NewTable()
	for _, name := range names {
		col, typ := inferColumn(cells[name])
		if err := table.Set(name, col); err != nil {
			return nil, err
		}
		if _, ok := meta.DeclaredTypes[name]; !ok {
			meta.DeclaredTypes[name] = typ
		}
		if _, ok := meta.MeasurementLevels[name]; !ok {
			meta.MeasurementLevels[name] = levelFor(typ)
		}
	}
	return table, nil
}
