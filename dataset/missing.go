package dataset

import (
	"slices"
	"strings"
)

// MissingRange is an inclusive {Lo, Hi} bound denoting sentinel values.
// A discrete missing value is a range whose bounds are equal.
type MissingRange struct {
	Lo Value `json:"lo"`
	Hi Value `json:"hi"`
}

// PointRange returns the range {v, v}.
func PointRange(v Value) MissingRange {
	return MissingRange{Lo: v, Hi: v}
}

// Match reports whether v falls inside r. Bounds that both coerce to numbers
// are compared numerically against a numeric v. Otherwise v matches when its
// text equals either bound. comparable is false when v and the bounds could
// not be brought to a common type; such a pair never matches.
func (r MissingRange) Match(v Value) (match, comparable bool) {
	if v.IsNA() {
		return false, true
	}
	lo, loOK := r.Lo.Numeric()
	hi, hiOK := r.Hi.Numeric()
	if loOK && hiOK {
		if n, ok := v.Numeric(); ok {
			return lo <= n && n <= hi, true
		}
		return r.matchText(v), v.kind == KindString
	}
	if r.Lo.kind != KindString && r.Hi.kind != KindString {
		return false, false
	}
	if v.kind != KindString {
		m := r.matchText(v)
		return m, m
	}
	return r.matchText(v), true
}

func (r MissingRange) matchText(v Value) bool {
	s := v.String()
	return s == r.Lo.String() || s == r.Hi.String()
}

// Ranges is the ordered list of missing ranges of one variable.
type Ranges []MissingRange

// Classify reports whether v is a sentinel value under any range. ok is
// false when no range matched and at least one range could not be compared
// with v.
func (rs Ranges) Classify(v Value) (sentinel, ok bool) {
	ok = true
	for _, r := range rs {
		m, c := r.Match(v)
		if m {
			return true, true
		}
		if !c {
			ok = false
		}
	}
	return false, ok
}

// Contains reports whether v is a sentinel value under any range.
func (rs Ranges) Contains(v Value) bool {
	m, _ := rs.Classify(v)
	return m
}

// Bounds returns the smallest lower bound and the largest upper bound. Bounds
// are compared numerically when all of them coerce to numbers and as text
// otherwise.
func (rs Ranges) Bounds() (lo, hi Value) {
	if len(rs) == 0 {
		return Null(), Null()
	}
	lo, hi = rs[0].Lo, rs[0].Hi
	numeric := true
	for _, r := range rs {
		_, a := r.Lo.Numeric()
		_, b := r.Hi.Numeric()
		numeric = numeric && a && b
	}
	less := func(a, b Value) bool {
		if numeric {
			x, _ := a.Numeric()
			y, _ := b.Numeric()
			return x < y
		}
		return a.String() < b.String()
	}
	for _, r := range rs[1:] {
		if less(r.Lo, lo) {
			lo = r.Lo
		}
		if less(hi, r.Hi) {
			hi = r.Hi
		}
	}
	return lo, hi
}

// String renders the ranges as "[{lo: v, hi: v}, ...]".
func (rs Ranges) String() string {
	parts := make([]string, 0, len(rs))
	for _, r := range rs {
		parts = append(parts, "{lo: "+r.Lo.String()+", hi: "+r.Hi.String()+"}")
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Clone returns a copy of rs.
func (rs Ranges) Clone() Ranges {
	return slices.Clone(rs)
}
