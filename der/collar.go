package der

import "math"

// ApplyCollar pads every segment by c seconds on both sides, clamping the
// start at zero. Overlaps created by the padding are kept as-is.
func ApplyCollar(segs []Segment, c float64) []Segment {
	if c <= 0 || math.IsNaN(c) {
		return segs
	}
	out := make([]Segment, len(segs))
	for i, s := range segs {
		s.Start = math.Max(0, s.Start-c)
		s.End += c
		out[i] = s
	}
	return out
}
