package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/maastricht-university/edmo-der/der"
)

// --- Visualization (/generate-der-overlay) ---
type OverlayReq struct {
	SessionID string              `json:"session_id"`
	Name      string              `json:"name"`
	Intervals []der.ErrorInterval `json:"intervals"`
	Metrics   der.Metrics         `json:"metrics"`
	Mapping   map[string]string   `json:"mapping,omitempty"`
	OutputDir string              `json:"output_dir,omitempty"`
}
type OverlayResp struct {
	Status string `json:"status"`
	Path   string `json:"path"`
}

func (h *HTTP) Overlay(ctx context.Context, url string, req OverlayReq) (*OverlayResp, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("viz overlay encode: %w", err)
	}
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/generate-der-overlay", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	r.Header.Set("Content-Type", "application/json")
	resp, err := h.c.Do(r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("viz overlay %s: %s", resp.Status, string(body))
	}

	var out OverlayResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("viz overlay decode: %w", err)
	}
	return &out, nil
}
