// Package der scores a hypothesis speaker timeline against a reference
// timeline and reports the diarization error rate split into missed speech,
// false alarm and speaker error.
//
// The pipeline is: collar, boundaries and sweep, overlap table, greedy
// speaker mapping, per-interval classification, aggregation. Every call is a
// pure function of its inputs and safe to run concurrently.
package der

// Options tune a scoring run. The zero value scores without a collar and
// breaks mapping ties by first observation.
type Options struct {
	Collar   float64
	TieBreak TieBreak
}

// Compute scores sys against ref with the given collar in seconds.
func Compute(ref, sys []Segment, collar float64) Result {
	return ComputeWith(ref, sys, Options{Collar: collar})
}

func ComputeWith(ref, sys []Segment, opts Options) Result {
	ref = ApplyCollar(ref, opts.Collar)
	sys = ApplyCollar(sys, opts.Collar)

	intervals, scored := Sweep(ref, sys)
	mapping := MapSpeakers(Accumulate(intervals), opts.TieBreak)
	for i := range intervals {
		intervals[i].Type = Classify(intervals[i], mapping)
	}

	return Result{
		Intervals: intervals,
		Metrics:   Aggregate(intervals, scored),
		Mapping:   mapping,
	}
}
