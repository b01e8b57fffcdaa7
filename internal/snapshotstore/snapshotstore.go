// Package snapshotstore implements content-hash-addressed, atomically
// written snapshot files on a filesystem directory.
//
// Grounded on the atomic-write idiom in BeadsLog's cmd/bd/migrate.go
// (backup-then-rename before any destructive write) and the
// snapshot/invariant capture style of internal/storage/sqlite/migrations.go,
// generalized from SQLite migration bookkeeping to content-addressed JSON
// files on disk.
package snapshotstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gloudx/docmigrate/internal/document"
)

// hashLen is the number of hex characters taken from the SHA-256 digest
// for a snapshot's short hash (spec.md §9: "MUST NOT be relied on for
// security", a collision-resistance tradeoff, not a cryptographic one).
const hashLen = 8

// Store writes and verifies snapshot files under a single directory.
type Store struct {
	dir string
}

// New returns a Store rooted at dir. The directory must already exist.
func New(dir string) *Store {
	return &Store{dir: dir}
}

func shortHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:hashLen]
}

// snapshotName builds the canonical name:
// <source_basename>.v<version>.<hash8>.snapshot.json
func snapshotName(sourceBasename string, version document.SchemaVersion, hash string) string {
	return fmt.Sprintf("%s.v%s.%s.snapshot.json", sourceBasename, version, hash)
}

// Create computes the content hash, derives the canonical name, and
// performs an atomic write (temp file + rename) into the store directory.
// Re-creating identical content at the same version is a no-op overwrite
// yielding the same name (content-addressing makes the race benign).
func (s *Store) Create(sourceBasename string, content []byte, version document.SchemaVersion) (string, error) {
	hash := shortHash(content)
	name := snapshotName(sourceBasename, version, hash)
	dest := filepath.Join(s.dir, name)

	if err := atomicWrite(dest, content); err != nil {
		return "", fmt.Errorf("snapshotstore: create %s: %w", name, err)
	}
	return name, nil
}

// atomicWrite writes content to a temp file in dest's directory, then
// renames it into place. On any error the destination is left untouched.
func atomicWrite(dest string, content []byte) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-snapshot-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, dest)
}

// parsedName is the decomposition of a canonical snapshot filename.
type parsedName struct {
	sourceBasename string
	version        document.SchemaVersion
	hash           string
}

// parseSnapshotName parses "<source_basename>.v<version>.<hash8>.snapshot.json".
// version itself may contain dots (e.g. "1.2.3"), so parsing works from the
// fixed suffix inward rather than a plain Split on ".".
func parseSnapshotName(name string) (parsedName, error) {
	const suffix = ".snapshot.json"
	if !strings.HasSuffix(name, suffix) {
		return parsedName{}, fmt.Errorf("missing %q suffix", suffix)
	}
	trimmed := strings.TrimSuffix(name, suffix)

	dot := strings.LastIndex(trimmed, ".")
	if dot < 0 {
		return parsedName{}, fmt.Errorf("missing hash component")
	}
	hash := trimmed[dot+1:]
	rest := trimmed[:dot]

	vdot := strings.LastIndex(rest, ".v")
	if vdot < 0 {
		return parsedName{}, fmt.Errorf("missing version component")
	}
	version := rest[vdot+2:]
	base := rest[:vdot]

	if base == "" || version == "" || hash == "" {
		return parsedName{}, fmt.Errorf("name has fewer components than expected")
	}
	if len(hash) != hashLen {
		return parsedName{}, fmt.Errorf("hash component has wrong length: %d", len(hash))
	}
	if _, err := (document.SchemaVersion(version)).Components(); err != nil {
		return parsedName{}, fmt.Errorf("version component is not numeric: %w", err)
	}
	return parsedName{sourceBasename: base, version: document.SchemaVersion(version), hash: hash}, nil
}

// ReadAndVerify reads a snapshot by its canonical name, recomputes its
// short hash, and fails with SnapshotIntegrityFailure if the embedded hash
// doesn't match or the name doesn't match the canonical pattern.
func (s *Store) ReadAndVerify(snapshotName string) ([]byte, error) {
	parsed, err := parseSnapshotName(snapshotName)
	if err != nil {
		return nil, &document.SnapshotIntegrityFailure{SnapshotName: snapshotName, Reason: err.Error()}
	}

	content, err := os.ReadFile(filepath.Join(s.dir, snapshotName))
	if err != nil {
		return nil, &document.SnapshotIntegrityFailure{SnapshotName: snapshotName, Reason: err.Error()}
	}

	actual := shortHash(content)
	if actual != parsed.hash {
		return nil, &document.SnapshotIntegrityFailure{
			SnapshotName: snapshotName,
			Reason:       fmt.Sprintf("content hash mismatch: filename says %s, computed %s", parsed.hash, actual),
		}
	}
	return content, nil
}

// GCResult reports what a garbage-collection pass did.
type GCResult struct {
	Deleted           []string
	Preserved         []string
	VerificationFails []string
}

// GC removes snapshots for sourceBasename whose embedded version is <=
// liveVersion. The critical pre-rollback snapshot (version > liveVersion)
// is always preserved. A snapshot that fails verification is never
// deleted; it is reported instead.
func (s *Store) GC(sourceBasename string, liveVersion document.SchemaVersion) (GCResult, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return GCResult{}, fmt.Errorf("snapshotstore: gc: read dir: %w", err)
	}

	var result GCResult
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		parsed, err := parseSnapshotName(name)
		if err != nil || parsed.sourceBasename != sourceBasename {
			continue
		}

		if _, err := s.ReadAndVerify(name); err != nil {
			result.VerificationFails = append(result.VerificationFails, name)
			continue
		}

		if parsed.version.Compare(liveVersion) <= 0 {
			if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
				return result, fmt.Errorf("snapshotstore: gc: remove %s: %w", name, err)
			}
			result.Deleted = append(result.Deleted, name)
		} else {
			result.Preserved = append(result.Preserved, name)
		}
	}
	return result, nil
}

// NamesFor lists the snapshot file names on disk belonging to
// sourceBasename, sorted by name (and therefore by version, since version
// sorts lexicographically wherever it also sorts numerically for
// same-width components).
func (s *Store) NamesFor(sourceBasename string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshotstore: listing %s: %w", s.dir, err)
	}
	var names []string
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		parsed, err := parseSnapshotName(ent.Name())
		if err != nil || parsed.sourceBasename != sourceBasename {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a snapshot file by name, used when applying a runner
// result's snapshots_to_delete. Missing files are not an error (already
// gone is the desired end state).
func (s *Store) Delete(snapshotName string) error {
	err := os.Remove(filepath.Join(s.dir, snapshotName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("snapshotstore: delete %s: %w", snapshotName, err)
	}
	return nil
}

// NameFor derives the canonical snapshot name a given (basename, version,
// content) triple would produce, without writing anything. Useful for
// callers that need to predict a name before Create.
func NameFor(sourceBasename string, version document.SchemaVersion, content []byte) string {
	return snapshotName(sourceBasename, version, shortHash(content))
}
