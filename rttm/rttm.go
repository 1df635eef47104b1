// Package rttm reads and writes speaker turns in the RTTM text format.
//
// Only SPEAKER lines are used:
//
//	SPEAKER <file-id> <channel> <start> <duration> <NA> <NA> <speaker-id> <NA>
//
// Anything else, including malformed SPEAKER lines, is skipped silently.
package rttm

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/maastricht-university/edmo-der/der"
)

// MinDuration is the shortest turn Write emits.
const MinDuration = 0.01

const (
	maxLine       = 1 << 20
	speakerField  = 7
	defaultFileID = "file"
	na            = "<NA>"
)

// Document is a parsed RTTM file. FileID is the first file id seen.
type Document struct {
	FileID   string
	Segments []der.Segment
}

// Parse reads SPEAKER lines into segments sorted by start.
func Parse(r io.Reader) ([]der.Segment, error) {
	doc, err := ParseDocument(r)
	if err != nil {
		return nil, err
	}
	return doc.Segments, nil
}

// ParseDocument is Parse that also keeps the file id. Lines longer than
// 1 MiB are skipped like any other malformed line; only read errors are
// returned.
func ParseDocument(r io.Reader) (*Document, error) {
	doc := &Document{Segments: []der.Segment{}}
	br := bufio.NewReader(r)
	for {
		raw, long, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read rttm: %w", err)
		}
		if long {
			continue
		}
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] != "SPEAKER" || len(fields) <= speakerField {
			continue
		}
		start, err := strconv.ParseFloat(fields[3], 64)
		if err != nil || math.IsNaN(start) || math.IsInf(start, 0) {
			continue
		}
		dur, err := strconv.ParseFloat(fields[4], 64)
		if err != nil || !(dur > 0) || math.IsInf(dur, 0) {
			continue
		}
		if doc.FileID == "" {
			doc.FileID = fields[1]
		}
		doc.Segments = append(doc.Segments, der.Segment{
			ID:        uuid.NewString(),
			SpeakerID: fields[speakerField],
			Start:     start,
			End:       start + dur,
		})
	}
	sort.SliceStable(doc.Segments, func(i, j int) bool { return doc.Segments[i].Start < doc.Segments[j].Start })
	return doc, nil
}

// readLine returns the next line without its terminator. A line over
// maxLine is drained and reported as long with no content.
func readLine(br *bufio.Reader) (string, bool, error) {
	var (
		buf  []byte
		long bool
	)
	for {
		chunk, more, err := br.ReadLine()
		if err != nil {
			return "", false, err
		}
		if !long {
			if len(buf)+len(chunk) > maxLine {
				long, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !more {
			return string(buf), long, nil
		}
	}
}

func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := ParseDocument(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Write emits one SPEAKER line per segment, ordered by start. Times use
// three decimals and durations are floored at MinDuration.
func Write(w io.Writer, fileID string, segs []der.Segment) error {
	if fileID == "" {
		fileID = defaultFileID
	}
	sorted := make([]der.Segment, len(segs))
	copy(sorted, segs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	bw := bufio.NewWriter(w)
	for _, s := range sorted {
		dur := math.Max(s.End-s.Start, MinDuration)
		if _, err := fmt.Fprintf(bw, "SPEAKER %s 1 %.3f %.3f %s %s %s %s\n",
			token(fileID), s.Start, dur, na, na, token(s.SpeakerID), na); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func WriteFile(path, fileID string, segs []der.Segment) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, fileID, segs); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// token keeps a value on a single whitespace-free field.
func token(s string) string {
	if s == "" {
		return na
	}
	return strings.Join(strings.Fields(s), "_")
}
