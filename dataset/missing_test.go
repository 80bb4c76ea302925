package dataset

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMissingRangeMatch(t *testing.T) {
	tests := []struct {
		name       string
		r          MissingRange
		v          Value
		match      bool
		comparable bool
	}{
		{"numeric inside", MissingRange{Int(-9), Int(-1)}, Int(-5), true, true},
		{"numeric bound inclusive", MissingRange{Int(-9), Int(-9)}, Int(-9), true, true},
		{"numeric outside", MissingRange{Int(-9), Int(-1)}, Int(0), false, true},
		{"float bounds int value", MissingRange{Float(97), Float(99)}, Int(98), true, true},
		{"numeric string bound", MissingRange{Str("9"), Str("9")}, Int(9), true, true},
		{"numeric string value", MissingRange{Int(9), Int(9)}, Str("9"), true, true},
		{"string bound exact", MissingRange{Str("NA"), Str("NA")}, Str("NA"), true, true},
		{"string bound miss", MissingRange{Str("NA"), Str("DK")}, Str("x"), false, true},
		{"string hi bound", MissingRange{Str("NA"), Str("DK")}, Str("DK"), true, true},
		{"text against numeric bounds", MissingRange{Int(1), Int(5)}, Str("abc"), false, true},
		{"number against text bounds", MissingRange{Str("NA"), Str("NA")}, Int(3), false, false},
		{"time against numeric", MissingRange{Int(1), Int(5)}, Time(time.Unix(0, 0)), false, false},
		{"null never matches", MissingRange{Int(1), Int(5)}, Null(), false, true},
		{"nan never matches", MissingRange{Int(1), Int(5)}, Float(math.NaN()), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, c := tt.r.Match(tt.v)
			assert.Equal(t, tt.match, m, "match")
			assert.Equal(t, tt.comparable, c, "comparable")
		})
	}
}

func TestRangesClassify(t *testing.T) {
	rs := Ranges{{Str("NA"), Str("NA")}, {Int(-9), Int(-9)}}

	s, ok := rs.Classify(Int(-9))
	assert.True(t, s)
	assert.True(t, ok)

	s, ok = rs.Classify(Int(4))
	assert.False(t, s)
	assert.False(t, ok, "the text range cannot be compared with a number")

	assert.True(t, rs.Contains(Str("NA")))
}

func TestRangesBounds(t *testing.T) {
	lo, hi := Ranges{{Int(-1), Int(-1)}, {Int(-9), Int(-7)}, {Float(97), Float(99)}}.Bounds()
	assert.Equal(t, Int(-9), lo)
	assert.Equal(t, Float(99), hi)

	lo, hi = Ranges{{Str("b"), Str("b")}, {Str("a"), Str("a")}}.Bounds()
	assert.Equal(t, Str("a"), lo)
	assert.Equal(t, Str("b"), hi)

	lo, hi = Ranges(nil).Bounds()
	assert.True(t, lo.IsNull())
	assert.True(t, hi.IsNull())
}

func TestRangesString(t *testing.T) {
	assert.Equal(t, "[{lo: -9, hi: -9}, {lo: 97, hi: 99}]", Ranges{{Int(-9), Int(-9)}, {Int(97), Int(99)}}.String())
}
