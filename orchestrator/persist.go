package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

type PersistBundle struct {
	SessionID   string      `json:"session_id"`
	BatchID     string      `json:"batch_id"`
	GeneratedAt time.Time   `json:"generated_at"`
	Summary     BatchReport `json:"summary"`

	// file base -> intervals file, relative to the session dir. Bases are
	// pair names made unique with a _<n> suffix.
	IntervalFiles map[string]string `json:"interval_files"`
}

// mkSessionDir creates session_<ts>_<id8>. The id suffix keeps runs started
// in the same second apart.
func mkSessionDir(outputsRoot, id string) (string, string, error) {
	if len(id) < 8 {
		id = uuid.NewString()
	}
	sid := "session_" + time.Now().Format("20060102-150405") + "_" + fileSafe(id[:8])
	if err := os.MkdirAll(outputsRoot, 0o755); err != nil {
		return "", "", err
	}
	dir := filepath.Join(outputsRoot, sid)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", "", err
	}
	return sid, dir, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Persist writes one <pair>.intervals.json per report plus summary.json into
// a fresh session directory under outputsRoot.
func Persist(outputsRoot string, br *BatchReport) (sessionID, dir string, err error) {
	sid, outDir, err := mkSessionDir(outputsRoot, br.ID)
	if err != nil {
		return "", "", err
	}

	files := make(map[string]string, len(br.Reports))
	used := map[string]bool{}
	summary := *br
	summary.Reports = make([]*Report, 0, len(br.Reports))
	for i, r := range br.Reports {
		base := fileSafe(r.Name)
		for n := i; base == "" || used[base]; n++ {
			base = fmt.Sprintf("%s_%d", fileSafe(r.Name), n)
		}
		used[base] = true
		rel := base + ".intervals.json"
		if err = writeJSON(filepath.Join(outDir, rel), r.Intervals); err != nil {
			return "", "", err
		}
		files[base] = rel

		// keep intervals in their own files only
		lite := *r
		lite.Intervals = nil
		lite.IntervalsFile = rel
		summary.Reports = append(summary.Reports, &lite)
	}

	bundle := PersistBundle{
		SessionID:     sid,
		BatchID:       br.ID,
		GeneratedAt:   time.Now(),
		Summary:       summary,
		IntervalFiles: files,
	}
	if err = writeJSON(filepath.Join(outDir, "summary.json"), bundle); err != nil {
		return "", "", err
	}
	return sid, outDir, nil
}

func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, name)
}
