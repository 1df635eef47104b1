package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/maastricht-university/edmo-der/der"
)

// --- Diarization (/diarize) ---
type DiarSeg struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}
type DiarizeResp struct {
	Segments    []DiarSeg `json:"segments"`
	NumSpeakers int       `json:"num_speakers,omitempty"`
}

// DerSegments converts the service output into scoring segments.
func (r *DiarizeResp) DerSegments() []der.Segment {
	out := make([]der.Segment, 0, len(r.Segments))
	for _, s := range r.Segments {
		out = append(out, der.Segment{ID: uuid.NewString(), SpeakerID: s.Speaker, Start: s.Start, End: s.End})
	}
	return out
}

func (h *HTTP) Diarize(ctx context.Context, url, audioPath string) (*DiarizeResp, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	fd, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	if _, err = io.Copy(fw, fd); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/diarize", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("diarize %s: %s", resp.Status, string(body))
	}

	var out DiarizeResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("diarize decode: %w", err)
	}
	return &out, nil
}
