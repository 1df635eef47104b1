package der

import (
	"fmt"
	"sort"
	"strings"
)

// TieBreak decides the order of pairs with equal overlap.
type TieBreak int

const (
	// TieBreakInsertion keeps the order in which pairs were first observed.
	TieBreakInsertion TieBreak = iota
	// TieBreakSpeakerID orders by reference id, then system id.
	TieBreakSpeakerID
)

func (tb TieBreak) String() string {
	switch tb {
	case TieBreakSpeakerID:
		return "speaker_id"
	default:
		return "insertion"
	}
}

func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "insertion":
		return TieBreakInsertion, nil
	case "speaker_id", "speaker-id":
		return TieBreakSpeakerID, nil
	default:
		return TieBreakInsertion, fmt.Errorf("invalid tie break: %q", s)
	}
}

// MapSpeakers assigns system speakers to reference speakers greedily, longest
// overlap first. Each speaker on either side is claimed at most once, so the
// result is injective. Speakers without positive overlap stay unmapped.
//
// This is not an optimal bipartite assignment and can disagree with scorers
// that use the Hungarian algorithm. Changing it changes the numbers.
func MapSpeakers(t *OverlapTable, tb TieBreak) map[string]string {
	triples := t.Triples()
	sort.SliceStable(triples, func(i, j int) bool {
		a, b := triples[i], triples[j]
		if a.Duration != b.Duration {
			return a.Duration > b.Duration
		}
		if tb == TieBreakSpeakerID {
			if a.Ref != b.Ref {
				return a.Ref < b.Ref
			}
			return a.Sys < b.Sys
		}
		return false
	})

	mapping := make(map[string]string)
	claimed := make(map[string]bool)
	for _, o := range triples {
		if !(o.Duration > 0) || claimed[o.Ref] {
			continue
		}
		if _, taken := mapping[o.Sys]; taken {
			continue
		}
		mapping[o.Sys] = o.Ref
		claimed[o.Ref] = true
	}
	return mapping
}
