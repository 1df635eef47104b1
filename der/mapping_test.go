package der

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverlapTable(t *testing.T) {
	tbl := NewOverlapTable()
	tbl.Add("A", "1", 2)
	tbl.Add("B", "1", 1)
	tbl.Add("A", "1", 3)
	tbl.Add("C", "2", 0)

	assert.Equal(t, 2, tbl.Len())
	assert.InDelta(t, 5, tbl.Get("A", "1"), 1e-9)
	assert.Zero(t, tbl.Get("C", "2"))
	assert.Equal(t, []Overlap{{"A", "1", 5}, {"B", "1", 1}}, tbl.Triples())
}

func TestAccumulate(t *testing.T) {
	intervals := []ErrorInterval{
		{Start: 0, End: 2, RefSpeakers: []string{"A", "B"}, SysSpeakers: []string{"1"}},
		{Start: 2, End: 3, RefSpeakers: []string{"A"}, SysSpeakers: []string{}},
		{Start: 3, End: 6, RefSpeakers: []string{"B"}, SysSpeakers: []string{"1", "2"}},
	}
	tbl := Accumulate(intervals)
	assert.InDelta(t, 2, tbl.Get("A", "1"), 1e-9)
	assert.InDelta(t, 5, tbl.Get("B", "1"), 1e-9)
	assert.InDelta(t, 3, tbl.Get("B", "2"), 1e-9)
	assert.Equal(t, 3, tbl.Len())
}

func TestMapSpeakersGreedy(t *testing.T) {
	tbl := NewOverlapTable()
	tbl.Add("A", "1", 6)
	tbl.Add("A", "2", 5)
	tbl.Add("B", "1", 5)
	tbl.Add("B", "3", 1)

	// Optimal assignment would pick 2->A, 1->B (10). Greedy takes 1->A first.
	m := MapSpeakers(tbl, TieBreakInsertion)
	assert.Equal(t, map[string]string{"1": "A", "3": "B"}, m)
}

func TestMapSpeakersInjective(t *testing.T) {
	tbl := NewOverlapTable()
	tbl.Add("A", "1", 4)
	tbl.Add("A", "2", 4)
	tbl.Add("A", "3", 4)

	m := MapSpeakers(tbl, TieBreakInsertion)
	assert.Equal(t, map[string]string{"1": "A"}, m)
}

func TestMapSpeakersTieBreak(t *testing.T) {
	tbl := NewOverlapTable()
	tbl.Add("B", "2", 3)
	tbl.Add("A", "2", 3)

	assert.Equal(t, map[string]string{"2": "B"}, MapSpeakers(tbl, TieBreakInsertion))
	assert.Equal(t, map[string]string{"2": "A"}, MapSpeakers(tbl, TieBreakSpeakerID))
}

func TestParseTieBreak(t *testing.T) {
	tests := []struct {
		in      string
		want    TieBreak
		wantErr bool
	}{
		{"", TieBreakInsertion, false},
		{"insertion", TieBreakInsertion, false},
		{"Speaker_ID", TieBreakSpeakerID, false},
		{"speaker-id", TieBreakSpeakerID, false},
		{"hungarian", TieBreakInsertion, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTieBreak(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func mustParse(t *testing.T, s string) TieBreak {
	t.Helper()
	tb, err := ParseTieBreak(s)
	require.NoError(t, err)
	return tb
}

func TestClassify(t *testing.T) {
	mapping := map[string]string{"1": "A", "2": "B"}
	tests := []struct {
		name     string
		ref, sys []string
		want     ErrorType
	}{
		{"silence", nil, nil, OK},
		{"missed", []string{"A"}, nil, MS},
		{"false alarm", nil, []string{"1"}, FA},
		{"correct", []string{"A"}, []string{"1"}, OK},
		{"wrong speaker", []string{"A"}, []string{"2"}, SER},
		{"unmapped speaker", []string{"A"}, []string{"9"}, SER},
		{"one of several correct", []string{"A", "C"}, []string{"2", "1"}, OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv := ErrorInterval{Start: 0, End: 1, RefSpeakers: tt.ref, SysSpeakers: tt.sys}
			assert.Equal(t, tt.want, Classify(iv, mapping))
		})
	}
}

func TestAggregate(t *testing.T) {
	intervals := []ErrorInterval{
		{Start: 0, End: 4, Type: OK},
		{Start: 4, End: 5, Type: MS},
		{Start: 5, End: 7, Type: SER},
		{Start: 7, End: 10, Type: FA},
	}
	m := Aggregate(intervals, 7)
	assert.InDelta(t, 100.0/7, m.MS, 1e-9)
	assert.InDelta(t, 300.0/7, m.FA, 1e-9)
	assert.InDelta(t, 200.0/7, m.SER, 1e-9)
	assert.InDelta(t, m.MS+m.FA+m.SER, m.DER, 1e-12)

	assert.Equal(t, Metrics{FalseAlarmTime: 3, MissedTime: 1, SpeakerErrorTime: 2}, Aggregate(intervals, 0))
}

func TestTotals(t *testing.T) {
	a := Metrics{Scored: 10, MissedTime: 1}
	b := Metrics{Scored: 30, FalseAlarmTime: 3, SpeakerErrorTime: 4}

	tot := Totals(a, b)
	assert.InDelta(t, 40, tot.Scored, 1e-9)
	assert.InDelta(t, 2.5, tot.MS, 1e-9)
	assert.InDelta(t, 7.5, tot.FA, 1e-9)
	assert.InDelta(t, 10, tot.SER, 1e-9)
	assert.InDelta(t, 20, tot.DER, 1e-9)

	assert.Equal(t, Metrics{}, Totals())
}
