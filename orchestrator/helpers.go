package orchestrator

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/maastricht-university/edmo-der/der"
)

// speakerStats returns merged speaking time per speaker (a speaker's own
// overlapping turns count once) and the time during which two or more
// distinct speakers talk at once.
func speakerStats(segs []der.Segment) (map[string]float64, float64) {
	share := map[string]float64{}
	type edge struct {
		t     float64
		delta int
		spk   string
	}
	var edges []edge
	for _, s := range segs {
		if math.IsNaN(s.Start) || math.IsNaN(s.End) || math.IsInf(s.Start, 0) || math.IsInf(s.End, 0) || s.End <= s.Start {
			continue
		}
		edges = append(edges, edge{t: s.Start, delta: +1, spk: s.SpeakerID}, edge{t: s.End, delta: -1, spk: s.SpeakerID})
	}
	if len(edges) == 0 {
		return share, 0
	}
	// ends before starts so touching turns are not an overlap
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].t != edges[j].t {
			return edges[i].t < edges[j].t
		}
		return edges[i].delta < edges[j].delta
	})

	active := map[string]int{}
	last := edges[0].t
	overlap := 0.0
	for _, e := range edges {
		if span := e.t - last; span > 0 {
			if len(active) > 1 {
				overlap += span
			}
			for spk := range active {
				share[spk] += span
			}
		}
		active[e.spk] += e.delta
		if active[e.spk] == 0 {
			delete(active, e.spk)
		}
		last = e.t
	}
	return share, overlap
}

// Totals pools the metrics of several reports, see der.Totals.
func Totals(reports []*Report) der.Metrics {
	ms := make([]der.Metrics, 0, len(reports))
	for _, r := range reports {
		ms = append(ms, r.Metrics)
	}
	return der.Totals(ms...)
}

// Single wraps one report as a batch so it can be persisted the same way.
func Single(r *Report) *BatchReport {
	return &BatchReport{
		ID:          uuid.NewString(),
		GeneratedAt: time.Now(),
		Collar:      r.Collar,
		Reports:     []*Report{r},
		Totals:      r.Metrics,
	}
}
