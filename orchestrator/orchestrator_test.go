package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	cfg "github.com/maastricht-university/edmo-der/config"
	"github.com/maastricht-university/edmo-der/der"
	"github.com/maastricht-university/edmo-der/logging"
)

func testConfig() *cfg.Root {
	c := &cfg.Root{}
	c.Scoring.TieBreak = "insertion"
	c.Services.TimeoutSeconds = 5
	c.Batch.Workers = 2
	return c
}

func newTestPipeline(t *testing.T, c *cfg.Root) *Pipeline {
	t.Helper()
	p, err := NewPipeline(c, logging.Discard())
	require.NoError(t, err)
	return p
}

// failedFiles reads der_scored_files_total{status="failed"} from the default registry.
func failedFiles(t *testing.T) float64 {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "der_scored_files_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "status" && l.GetValue() == "failed" {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const (
	refRTTM = "SPEAKER rec 1 0.000 5.000 <NA> <NA> A <NA>\nSPEAKER rec 1 5.000 5.000 <NA> <NA> B <NA>\n"
	sysRTTM = "SPEAKER rec 1 0.000 5.000 <NA> <NA> s1 <NA>\nSPEAKER rec 1 5.000 3.000 <NA> <NA> s2 <NA>\n"
)

func TestSpeakerStats(t *testing.T) {
	segs := []der.Segment{
		{SpeakerID: "A", Start: 0, End: 4},
		{SpeakerID: "A", Start: 2, End: 6}, // self overlap counts once
		{SpeakerID: "B", Start: 5, End: 8},
		{SpeakerID: "C", Start: 8, End: 9}, // touches B, no overlap
		{SpeakerID: "D", Start: 3, End: 3},
	}
	share, overlap := speakerStats(segs)
	assert.InDelta(t, 6, share["A"], 1e-9)
	assert.InDelta(t, 3, share["B"], 1e-9)
	assert.InDelta(t, 1, share["C"], 1e-9)
	assert.NotContains(t, share, "D")
	assert.InDelta(t, 1, overlap, 1e-9)

	share, overlap = speakerStats(nil)
	assert.Empty(t, share)
	assert.Zero(t, overlap)
}

func TestScoreFiles(t *testing.T) {
	dir := t.TempDir()
	p := newTestPipeline(t, testConfig())

	r, err := p.ScoreFiles(context.Background(), Pair{
		Name:      "rec",
		Reference: writeFile(t, dir, "ref.rttm", refRTTM),
		System:    writeFile(t, dir, "sys.rttm", sysRTTM),
	})
	require.NoError(t, err)
	assert.InDelta(t, 10, r.Metrics.Scored, 1e-9)
	assert.InDelta(t, 20, r.Metrics.MS, 1e-9)
	assert.InDelta(t, 20, r.Metrics.DER, 1e-9)
	assert.Equal(t, map[string]string{"s1": "A", "s2": "B"}, r.Mapping)
	assert.InDelta(t, 5, r.RefSpeakerTime["B"], 1e-9)
	assert.InDelta(t, 3, r.SysSpeakerTime["s2"], 1e-9)
	assert.Equal(t, "insertion", r.TieBreak)
	assert.NotEmpty(t, r.Intervals)
}

func TestScoreFilesMissingSystem(t *testing.T) {
	dir := t.TempDir()
	p := newTestPipeline(t, testConfig())
	before := failedFiles(t)
	_, err := p.ScoreFiles(context.Background(), Pair{
		Reference: writeFile(t, dir, "ref.rttm", refRTTM),
		System:    filepath.Join(dir, "missing.rttm"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "system")
	assert.Equal(t, before+1, failedFiles(t))
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "ref.rttm", refRTTM)
	sys := writeFile(t, dir, "sys.rttm", sysRTTM)
	p := newTestPipeline(t, testConfig())

	collar := 0.0
	before := failedFiles(t)
	br, err := p.RunBatch(context.Background(), Manifest{
		Collar: &collar,
		Pairs: []Pair{
			{Name: "a", Reference: ref, System: sys},
			{Name: "broken", Reference: ref, System: filepath.Join(dir, "nope.rttm")},
			{Name: "perfect", Reference: ref, System: ref},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, br.ID)
	require.Len(t, br.Reports, 2)
	assert.Equal(t, "a", br.Reports[0].Name)
	assert.Equal(t, "perfect", br.Reports[1].Name)
	require.Len(t, br.Failures, 1)
	assert.Equal(t, "broken", br.Failures[0].Name)
	assert.Equal(t, before+1, failedFiles(t), "each failed pair counted once")

	// 2s missed out of 20s scored
	assert.InDelta(t, 20, br.Totals.Scored, 1e-9)
	assert.InDelta(t, 10, br.Totals.DER, 1e-9)
}

func TestRunBatchErrors(t *testing.T) {
	p := newTestPipeline(t, testConfig())

	_, err := p.RunBatch(context.Background(), Manifest{})
	assert.ErrorIs(t, err, ErrNoPairs)

	dir := t.TempDir()
	_, err = p.RunBatch(context.Background(), Manifest{Pairs: []Pair{
		{Name: "x", Reference: filepath.Join(dir, "r"), System: filepath.Join(dir, "s")},
	}})
	assert.ErrorIs(t, err, ErrAllFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ref := writeFile(t, dir, "ref.rttm", refRTTM)
	_, err = p.RunBatch(ctx, Manifest{Pairs: []Pair{{Name: "y", Reference: ref, System: ref}}})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "batch.yaml", `
collar: 0.25
pairs:
  - reference: refs/meeting1.rttm
    system: /abs/sys1.rttm
  - name: second
    reference: refs/meeting2.rttm
    system: sys/meeting2.rttm
`)
	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.NotNil(t, m.Collar)
	assert.Equal(t, 0.25, *m.Collar)
	require.Len(t, m.Pairs, 2)
	assert.Equal(t, "meeting1", m.Pairs[0].Name)
	assert.Equal(t, filepath.Join(dir, "refs", "meeting1.rttm"), m.Pairs[0].Reference)
	assert.Equal(t, "/abs/sys1.rttm", m.Pairs[0].System)
	assert.Equal(t, "second", m.Pairs[1].Name)
	assert.Equal(t, filepath.Join(dir, "sys", "meeting2.rttm"), m.Pairs[1].System)
}

func TestLoadManifestInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"empty", "pairs: []\n"},
		{"unknown field", "pairz: []\n"},
		{"negative collar", "collar: -1\npairs:\n  - reference: a\n    system: b\n"},
		{"missing system", "pairs:\n  - reference: a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadManifest(writeFile(t, dir, "m.yaml", tt.body))
			assert.Error(t, err)
		})
	}
}

func TestScoreAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"segments":[{"start":0,"end":5,"speaker":"SPEAKER_0"},{"start":5,"end":10,"speaker":"SPEAKER_1"}]}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := testConfig()
	c.Services.Diarization.URL = srv.URL
	p := newTestPipeline(t, c)

	r, err := p.ScoreAudio(context.Background(), "rec",
		writeFile(t, dir, "ref.rttm", refRTTM), writeFile(t, dir, "rec.wav", "RIFF"))
	require.NoError(t, err)
	assert.Zero(t, r.Metrics.DER)
	assert.Equal(t, map[string]string{"SPEAKER_0": "A", "SPEAKER_1": "B"}, r.Mapping)
}

func TestScoreAudioWithoutService(t *testing.T) {
	dir := t.TempDir()
	p := newTestPipeline(t, testConfig())
	before := failedFiles(t)
	_, err := p.ScoreAudio(context.Background(), "rec",
		writeFile(t, dir, "ref.rttm", refRTTM), writeFile(t, dir, "rec.wav", "RIFF"))
	assert.ErrorIs(t, err, ErrNoDiarizer)
	assert.Equal(t, before+1, failedFiles(t))
}

func TestPublish(t *testing.T) {
	var names []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Name == "bad" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		names = append(names, req.Name)
		_, _ = w.Write([]byte(`{"status":"ok","path":"x.png"}`))
	}))
	defer srv.Close()

	p := newTestPipeline(t, testConfig())
	reports := []*Report{{Name: "a"}, {Name: "bad"}, {Name: "b"}}
	assert.Zero(t, p.Publish(context.Background(), "sid", "out", reports), "no url configured")

	c := testConfig()
	c.Services.Visualization.URL = srv.URL
	p = newTestPipeline(t, c)
	assert.Equal(t, 2, p.Publish(context.Background(), "sid", "out", reports))
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestPersist(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	ref := []der.Segment{{SpeakerID: "A", Start: 0, End: 4}}
	br := &BatchReport{ID: "batch-1", Reports: []*Report{
		p.Score("dir/one", ref, ref),
		p.Score("dir/one", ref, nil),
	}}

	root := t.TempDir()
	sid, dir, err := Persist(root, br)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, sid), dir)
	assert.Regexp(t, `^session_\d{8}-\d{6}_[0-9a-f-]{8}$`, sid)

	body, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)
	var bundle PersistBundle
	require.NoError(t, json.Unmarshal(body, &bundle))
	assert.Equal(t, "batch-1", bundle.BatchID)
	require.Len(t, bundle.Summary.Reports, 2)
	assert.Nil(t, bundle.Summary.Reports[0].Intervals)
	assert.NotNil(t, br.Reports[0].Intervals, "persist must not strip the caller's report")

	assert.FileExists(t, filepath.Join(dir, "dir_one.intervals.json"))
	assert.FileExists(t, filepath.Join(dir, "dir_one_1.intervals.json"))
	assert.Equal(t, map[string]string{
		"dir_one":   "dir_one.intervals.json",
		"dir_one_1": "dir_one_1.intervals.json",
	}, bundle.IntervalFiles)
	assert.Equal(t, "dir_one.intervals.json", bundle.Summary.Reports[0].IntervalsFile)
	assert.Equal(t, "dir_one_1.intervals.json", bundle.Summary.Reports[1].IntervalsFile)
	assert.Empty(t, br.Reports[1].IntervalsFile)

	var ivs []der.ErrorInterval
	body, err = os.ReadFile(filepath.Join(dir, "dir_one_1.intervals.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &ivs))
	require.Len(t, ivs, 1)
	assert.Equal(t, der.MS, ivs[0].Type)
}

func TestPersistSameSecond(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	ref := []der.Segment{{SpeakerID: "A", Start: 0, End: 4}}
	root := t.TempDir()

	sid1, dir1, err := Persist(root, Single(p.Score("rec", ref, ref)))
	require.NoError(t, err)
	sid2, dir2, err := Persist(root, Single(p.Score("rec", ref, nil)))
	require.NoError(t, err)
	assert.NotEqual(t, sid1, sid2)
	assert.FileExists(t, filepath.Join(dir1, "summary.json"))
	assert.FileExists(t, filepath.Join(dir2, "summary.json"))
}

func TestPersistNameCollidesWithSuffix(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	ref := []der.Segment{{SpeakerID: "A", Start: 0, End: 4}}
	br := &BatchReport{ID: "batch-2", Reports: []*Report{
		p.Score("x", ref, ref),
		p.Score("x", ref, ref),
		p.Score("x_1", ref, ref),
	}}
	_, dir, err := Persist(t.TempDir(), br)
	require.NoError(t, err)

	body, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)
	var bundle PersistBundle
	require.NoError(t, json.Unmarshal(body, &bundle))
	assert.Len(t, bundle.IntervalFiles, 3)
	for _, r := range bundle.Summary.Reports {
		assert.FileExists(t, filepath.Join(dir, r.IntervalsFile))
	}
}

func TestWriteReport(t *testing.T) {
	p := newTestPipeline(t, testConfig())
	r := p.Score("rec",
		[]der.Segment{{SpeakerID: "A", Start: 0, End: 10}},
		[]der.Segment{{SpeakerID: "1", Start: 0, End: 8}})

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, FormatText, r, true))
	out := buf.String()
	assert.Contains(t, out, "DER")
	assert.Contains(t, out, " 20.00 %")
	assert.Contains(t, out, "1 -> A")
	assert.Contains(t, out, "8.000")

	buf.Reset()
	require.NoError(t, WriteReport(&buf, FormatJSON, r, false))
	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Nil(t, decoded.Intervals)
	assert.InDelta(t, 20, decoded.Metrics.MS, 1e-9)

	buf.Reset()
	require.NoError(t, WriteReport(&buf, FormatYAML, r, true))
	var y map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &y))
	assert.Contains(t, y, "intervals")
	assert.Equal(t, "rec", y["name"])
}

func TestWriteBatchText(t *testing.T) {
	br := &BatchReport{
		Reports:  []*Report{{Name: "a", Metrics: der.Metrics{Scored: 10, MS: 5, DER: 5}}},
		Failures: []Failure{{Name: "b", Error: "open b: no such file"}},
		Totals:   der.Metrics{Scored: 10, MS: 5, DER: 5},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteBatch(&buf, FormatText, br))
	assert.Contains(t, buf.String(), "TOTAL")
	assert.Contains(t, buf.String(), "failed b: open b: no such file")
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "JSON": FormatJSON, "yml": FormatYAML, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("csv")
	assert.Error(t, err)
}

func TestSingle(t *testing.T) {
	r := &Report{Name: "x", Collar: 0.5, Metrics: der.Metrics{Scored: 4, MS: 25, DER: 25, MissedTime: 1}}
	br := Single(r)
	assert.NotEmpty(t, br.ID)
	assert.Equal(t, 0.5, br.Collar)
	assert.Equal(t, []*Report{r}, br.Reports)
	assert.Equal(t, r.Metrics, br.Totals)
	assert.Equal(t, der.Totals(r.Metrics), Totals(br.Reports))
}
