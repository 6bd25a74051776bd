package model

// Point is one element of a computed series: either Defined with a Value,
// or not — a leading warm-up point is Absent, never a zero-filled value
// (§4.1 failure semantics, invariant 1 in §8).
type Point struct {
	Defined bool
	Value   float64
}

// Defined constructs a defined Point.
func Defined(v float64) Point { return Point{Defined: true, Value: v} }

// Absent is the zero value: Point{} with Defined=false.
var Absent = Point{}

// Series is an indicator's output aligned 1:1 to the input bar indices.
type Series []Point

// NewAbsentSeries returns a Series of n Absent points, ready to be filled in
// from some warm-up index onward.
func NewAbsentSeries(n int) Series {
	return make(Series, n)
}

// At returns the value at i and whether it is defined; out-of-range indices
// report not-defined.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s) {
		return 0, false
	}
	return s[i].Value, s[i].Defined
}

// Values returns the defined trailing values only, in order, discarding
// their original indices.
func (s Series) Values() []float64 {
	out := make([]float64, 0, len(s))
	for _, p := range s {
		if p.Defined {
			out = append(out, p.Value)
		}
	}
	return out
}

// FirstDefined returns the index of the first defined point, or -1 if none.
func (s Series) FirstDefined() int {
	for i, p := range s {
		if p.Defined {
			return i
		}
	}
	return -1
}
