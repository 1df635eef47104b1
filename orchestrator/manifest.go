package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadManifest reads a batch manifest. Relative file paths are resolved
// against the manifest's directory and unnamed pairs take the reference
// file's base name.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m Manifest
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	if len(m.Pairs) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoPairs)
	}
	if m.Collar != nil && *m.Collar < 0 {
		return nil, fmt.Errorf("%s: collar must be >= 0, got %v", path, *m.Collar)
	}

	base := filepath.Dir(path)
	for i := range m.Pairs {
		pr := &m.Pairs[i]
		if pr.Reference == "" || pr.System == "" {
			return nil, fmt.Errorf("%s: pair %d needs reference and system", path, i)
		}
		pr.Reference = resolve(base, pr.Reference)
		pr.System = resolve(base, pr.System)
		if pr.Name == "" {
			pr.Name = PairName(pr.Reference)
		}
	}
	return &m, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
