package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "manifest.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	return path
}

func TestLoadManifestExpandsGlobsRelativeToManifestDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "docs"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.json", "b.json"} {
		if err := os.WriteFile(filepath.Join(dir, "docs", name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	manifestPath := writeManifest(t, dir, "docType: pkg_conf\nincludePaths:\n  - docs/*.json\n")

	m, paths, err := loadManifest(manifestPath)
	if err != nil {
		t.Fatalf("loadManifest: %v", err)
	}
	if m.DocType != "pkg_conf" {
		t.Fatalf("expected docType pkg_conf, got %q", m.DocType)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 matched files, got %d: %v", len(paths), paths)
	}
}

func TestLoadManifestRequiresDocType(t *testing.T) {
	dir := t.TempDir()
	manifestPath := writeManifest(t, dir, "includePaths:\n  - docs/*.json\n")

	if _, _, err := loadManifest(manifestPath); err == nil {
		t.Fatalf("expected error for missing docType")
	}
}

func TestLoadManifestDeduplicatesOverlappingPatterns(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	manifestPath := writeManifest(t, dir, "docType: pkg_conf\nincludePaths:\n  - \"*.json\"\n  - a.json\n")

	_, paths, err := loadManifest(manifestPath)
	if err != nil {
		t.Fatalf("loadManifest: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected deduplicated single match, got %v", paths)
	}
}
