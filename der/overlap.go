package der

// Overlap is the total co-active time of one reference/system speaker pair.
type Overlap struct {
	Ref      string  `json:"ref"`
	Sys      string  `json:"sys"`
	Duration float64 `json:"duration"`
}

type pairKey struct{ ref, sys string }

// OverlapTable accumulates co-active time per (reference, system) pair and
// remembers the order in which pairs were first observed.
type OverlapTable struct {
	index map[pairKey]int
	pairs []Overlap
}

func NewOverlapTable() *OverlapTable {
	return &OverlapTable{index: map[pairKey]int{}}
}

// Add credits d seconds to the pair. Non-positive durations are ignored.
func (t *OverlapTable) Add(ref, sys string, d float64) {
	if !(d > 0) {
		return
	}
	k := pairKey{ref, sys}
	i, ok := t.index[k]
	if !ok {
		i = len(t.pairs)
		t.index[k] = i
		t.pairs = append(t.pairs, Overlap{Ref: ref, Sys: sys})
	}
	t.pairs[i].Duration += d
}

func (t *OverlapTable) Get(ref, sys string) float64 {
	if i, ok := t.index[pairKey{ref, sys}]; ok {
		return t.pairs[i].Duration
	}
	return 0
}

func (t *OverlapTable) Len() int { return len(t.pairs) }

// Triples returns a copy of all pairs in first-observation order.
func (t *OverlapTable) Triples() []Overlap {
	out := make([]Overlap, len(t.pairs))
	copy(out, t.pairs)
	return out
}

// Accumulate builds the overlap table from swept intervals.
func Accumulate(intervals []ErrorInterval) *OverlapTable {
	t := NewOverlapTable()
	for _, iv := range intervals {
		if len(iv.RefSpeakers) == 0 || len(iv.SysSpeakers) == 0 {
			continue
		}
		d := iv.Duration()
		for _, r := range iv.RefSpeakers {
			for _, s := range iv.SysSpeakers {
				t.Add(r, s, d)
			}
		}
	}
	return t
}
