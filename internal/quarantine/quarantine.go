// Package quarantine moves documents the kernel refuses to migrate into
// side storage with a structured diagnostic report (spec.md §4.7).
//
// Grounded on the backup-and-regenerate pattern in BeadsLog's
// cmd/bd/doctor/fix/jsonl_integrity.go: move the bad file aside, then
// write a diagnostic describing why, rather than deleting or silently
// overwriting it.
package quarantine

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gloudx/docmigrate/internal/document"
)

// Store moves quarantined source files and writes their diagnostic
// reports under a single directory. A nil or zero-value Store (empty Dir)
// is "disabled": Quarantine returns ErrDisabled and touches nothing.
type Store struct {
	Dir string
}

// ErrDisabled is returned by Quarantine when no quarantine directory is
// configured.
var ErrDisabled = fmt.Errorf("quarantine: disabled (no directory configured)")

// Quarantine moves sourcePath into the quarantine directory under a name
// embedding the first 8 hex characters of record.ContentHash, writes a
// JSON report beside it, and returns the report path. Returns ErrDisabled
// (without touching any file) if no directory is configured.
func (s *Store) Quarantine(sourcePath string, record document.QuarantineRecord) (string, error) {
	if s == nil || s.Dir == "" {
		return "", ErrDisabled
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("quarantine: creating dir: %w", err)
	}

	hashPrefix := record.ContentHash
	if len(hashPrefix) > 8 {
		hashPrefix = hashPrefix[:8]
	}
	quarantinedName := fmt.Sprintf("%s.%s%s", stripExt(filepath.Base(sourcePath)), hashPrefix, filepath.Ext(sourcePath))
	quarantinedPath := filepath.Join(s.Dir, quarantinedName)

	if err := moveFile(sourcePath, quarantinedPath); err != nil {
		return "", fmt.Errorf("quarantine: moving %s: %w", sourcePath, err)
	}

	reportPath := quarantinedPath + ".quarantine.json"
	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("quarantine: encoding report: %w", err)
	}
	if err := os.WriteFile(reportPath, raw, 0o644); err != nil {
		return "", fmt.Errorf("quarantine: writing report: %w", err)
	}

	return reportPath, nil
}

func stripExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}

// moveFile renames sourcePath to destPath, falling back to copy+remove
// when rename fails across filesystem boundaries (os.Rename's usual
// limitation). Overwriting an existing quarantined file is permitted.
func moveFile(sourcePath, destPath string) error {
	if err := os.Rename(sourcePath, destPath); err == nil {
		return nil
	}

	in, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(sourcePath)
}
