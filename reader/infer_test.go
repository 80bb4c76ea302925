package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/ddicdi/dataset"
)

func TestInferColumn(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		typ   string
	}{
		{"integers", []string{"1", " 2", "-3", ""}, typeInt},
		{"floats", []string{"1", "2.5", "NaN"}, typeFloat},
		{"dates", []string{"2020-01-01", "2020-02-29 10:00:00", "N/A"}, typeDatetime},
		{"slash dates", []string{"12/31/2020", "01/02/2021"}, typeDatetime},
		{"strings", []string{"1", "two"}, typeString},
		{"all null", []string{"NA", "", "None"}, typeString},
		{"infinity is text", []string{"1", "inf"}, typeString},
		{"not a date", []string{"2020-13-45"}, typeString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col, typ := inferColumn(tt.cells)
			assert.Equal(t, tt.typ, typ)
			require.Len(t, col, len(tt.cells))
		})
	}
}

func TestNullTokens(t *testing.T) {
	for _, tok := range nullTokens {
		assert.True(t, isNullToken(tok), tok)
		assert.True(t, isNullToken(" "+tok+" "), tok)
	}
	assert.False(t, isNullToken("0"))
	assert.False(t, isNullToken("none"))

	col, _ := inferColumn([]string{"#N/A", "x"})
	assert.Equal(t, []dataset.Value{dataset.Null(), dataset.Str("x")}, col)
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, dataset.LevelNominal, levelFor(typeString))
	assert.Equal(t, dataset.LevelScale, levelFor(typeInt))
	assert.Equal(t, dataset.LevelScale, levelFor(typeDatetime))
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		text string
		want rune
	}{
		{"a,b,c\n1,2,3\n", ','},
		{"a;b\n1;2\n", ';'},
		{"a\tb\n1\t2\n", '\t'},
		{"a|b|c\n1|2|3\n", '|'},
		{"a;b\n\"1;x\";2\n", ';'},
		{"single\n1\n", ','},
		{"a,b;c\n1,2;3\n", ','},
	}
	for _, tt := range tests {
		assert.Equal(t, string(tt.want), string(sniffDelimiter(tt.text)), tt.text)
	}
}
