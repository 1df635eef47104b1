package der

import (
	"container/heap"
	"math"
	"sort"
)

// Boundaries returns every finite segment start and end from both timelines,
// sorted ascending with duplicates removed.
func Boundaries(ref, sys []Segment) []float64 {
	pts := make([]float64, 0, 2*(len(ref)+len(sys)))
	add := func(v float64) {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			pts = append(pts, v)
		}
	}
	for _, s := range ref {
		add(s.Start)
		add(s.End)
	}
	for _, s := range sys {
		add(s.Start)
		add(s.End)
	}
	sort.Float64s(pts)

	out := pts[:0]
	for i, v := range pts {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// Sweep partitions the timeline into atomic intervals and fills in which
// reference and system speakers are active in each one. A segment is active
// on [Start, End). The returned scored time is the total duration of
// intervals with at least one reference speaker. Type is left unset.
func Sweep(ref, sys []Segment) ([]ErrorInterval, float64) {
	bounds := Boundaries(ref, sys)
	if len(bounds) < 2 {
		return []ErrorInterval{}, 0
	}

	refs, syss := newTracker(ref), newTracker(sys)
	intervals := make([]ErrorInterval, 0, len(bounds)-1)
	scored := 0.0
	for i := 0; i+1 < len(bounds); i++ {
		iv := ErrorInterval{
			Start:       bounds[i],
			End:         bounds[i+1],
			RefSpeakers: refs.advance(bounds[i]),
			SysSpeakers: syss.advance(bounds[i]),
		}
		if len(iv.RefSpeakers) > 0 {
			scored += iv.Duration()
		}
		intervals = append(intervals, iv)
	}
	return intervals, scored
}

// tracker keeps the active speaker multiset for one timeline while the sweep
// moves forward. Segments enter in start order and leave in end order.
type tracker struct {
	segs   []Segment
	next   int
	ending endHeap
	count  map[string]int
}

func newTracker(segs []Segment) *tracker {
	sorted := make([]Segment, 0, len(segs))
	for _, s := range segs {
		// NaN compares false against everything, so it could never be active.
		if math.IsNaN(s.Start) || math.IsNaN(s.End) {
			continue
		}
		sorted = append(sorted, s)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return &tracker{segs: sorted, count: map[string]int{}}
}

// advance moves the sweep to t, which must not decrease between calls, and
// returns the sorted speakers active at t.
func (tr *tracker) advance(t float64) []string {
	for tr.next < len(tr.segs) && tr.segs[tr.next].Start <= t {
		s := tr.segs[tr.next]
		tr.next++
		heap.Push(&tr.ending, activeSeg{end: s.End, speaker: s.SpeakerID})
		tr.count[s.SpeakerID]++
	}
	for tr.ending.Len() > 0 && tr.ending[0].end <= t {
		a := heap.Pop(&tr.ending).(activeSeg)
		tr.count[a.speaker]--
		if tr.count[a.speaker] == 0 {
			delete(tr.count, a.speaker)
		}
	}

	speakers := make([]string, 0, len(tr.count))
	for spk := range tr.count {
		speakers = append(speakers, spk)
	}
	sort.Strings(speakers)
	return speakers
}

type activeSeg struct {
	end     float64
	speaker string
}

// endHeap is a min-heap of active segments keyed by end time.
type endHeap []activeSeg

func (h endHeap) Len() int { return len(h) }
func (h endHeap) Less(i, j int) bool { return h[i].end < h[j].end }
func (h endHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *endHeap) Push(x any) { *h = append(*h, x.(activeSeg)) }
func (h *endHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
