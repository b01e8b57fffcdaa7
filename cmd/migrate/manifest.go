package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Manifest is the host's discovery list: a set of glob patterns resolved
// relative to the manifest file's own directory. This is the CLI's only
// discovery mechanism (no directory walking, no doc_type sniffing) per
// the "includePaths glob-expansion-only" supplement: the kernel has no
// opinion about where documents live, so the reference driver needs an
// explicit, inspectable list rather than guessing.
type Manifest struct {
	DocType      string   `yaml:"docType"`
	IncludePaths []string `yaml:"includePaths"`
}

// loadManifest reads and glob-expands a manifest file, returning the
// resolved, de-duplicated, sorted list of document file paths.
func loadManifest(path string) (Manifest, []string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if m.DocType == "" {
		return Manifest{}, nil, fmt.Errorf("manifest %s: docType is required", path)
	}

	base := filepath.Dir(path)
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range m.IncludePaths {
		full := pattern
		if !filepath.IsAbs(full) {
			full = filepath.Join(base, pattern)
		}
		matches, err := filepath.Glob(full)
		if err != nil {
			return Manifest{}, nil, fmt.Errorf("manifest %s: bad glob %q: %w", path, pattern, err)
		}
		for _, f := range matches {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	sort.Strings(files)
	return m, files, nil
}
