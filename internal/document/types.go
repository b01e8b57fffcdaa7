// Package document defines the core data model of the migration kernel:
// tagged document trees, metadata, snapshots, bundles, plans, and results.
package document

import (
	"time"

	"github.com/mitchellh/hashstructure/v2"
)

// Meta tags a document with its doc_type and schema_version.
type Meta struct {
	DocType       string        `json:"DocType"`
	SchemaVersion SchemaVersion `json:"SchemaVersion"`
}

// Tree is a recursive value over {null, bool, number, string, array, object}.
// It is represented the same way encoding/json decodes into interface{}:
// map[string]any for objects, []any for arrays, and the JSON scalar types.
type Tree = map[string]any

// VersionedDocument is an identified document tree tagged with its Meta.
type VersionedDocument struct {
	Identifier string
	Data       Tree
	Meta       Meta
}

// Snapshot is an immutable historical state at a prior version.
type Snapshot struct {
	Data Tree
	Meta Meta
	// Name is the on-disk snapshot file name once persisted; empty for
	// snapshots constructed in memory and not yet written.
	Name string
}

// Bundle is the current document plus its historical snapshots.
// Invariant: every snapshot.Meta.DocType == Current.Meta.DocType.
type Bundle struct {
	Current   VersionedDocument
	Snapshots []Snapshot
}

// LowestSnapshot returns the snapshot with the smallest schema version, and
// whether any snapshot exists.
func (b Bundle) LowestSnapshot() (Snapshot, bool) {
	return extremeSnapshot(b.Snapshots, true)
}

// HighestSnapshot returns the snapshot with the largest schema version, and
// whether any snapshot exists.
func (b Bundle) HighestSnapshot() (Snapshot, bool) {
	return extremeSnapshot(b.Snapshots, false)
}

// AnySnapshotNewerThanCurrent reports whether a snapshot exists at a
// strictly higher version than the bundle's current document.
func (b Bundle) AnySnapshotNewerThanCurrent() bool {
	for _, s := range b.Snapshots {
		if s.Meta.SchemaVersion.GreaterThan(b.Current.Meta.SchemaVersion) {
			return true
		}
	}
	return false
}

func extremeSnapshot(snaps []Snapshot, lowest bool) (Snapshot, bool) {
	if len(snaps) == 0 {
		return Snapshot{}, false
	}
	best := snaps[0]
	for _, s := range snaps[1:] {
		if lowest && s.Meta.SchemaVersion.LessThan(best.Meta.SchemaVersion) {
			best = s
		}
		if !lowest && s.Meta.SchemaVersion.GreaterThan(best.Meta.SchemaVersion) {
			best = s
		}
	}
	return best, true
}

// ShapeID identifies a registered application shape.
type ShapeID string

// Shape is an application-registered type identified by (doc_type, version).
// Field definitions beyond the identity are opaque to the kernel; the host
// supplies them for its own validation/serialization purposes.
type Shape struct {
	ID            ShapeID
	DocType       string
	SchemaVersion SchemaVersion
}

// ApplyFunc transforms a tree from shape A to shape B.
type ApplyFunc func(Tree) (Tree, error)

// MergePropertyFunc is a per-property semantic merge handler.
// It returns (value, drop, err); drop == true means the property is
// omitted from the merge result regardless of structural presence.
type MergePropertyFunc func(property string, base, mine, theirs any) (value any, drop bool, err error)

// MigrationStep is a pair of total functions between two shapes, plus an
// optional set of semantically-handled properties for three-way merging.
type MigrationStep struct {
	From ShapeID
	To   ShapeID

	Apply   ApplyFunc
	Reverse ApplyFunc

	// ClaimedProperties, if non-empty, declares the properties this step
	// merges semantically rather than structurally (see §4.4).
	ClaimedProperties []string
	MergeProperty     MergePropertyFunc
}

// StructuralHash returns a stable hash of a tree, used for tree-equality
// checks modulo map key ordering (property P3).
func StructuralHash(t Tree) (uint64, error) {
	return hashstructure.Hash(t, hashstructure.FormatV2, nil)
}

// TreesEqual reports whether two trees are structurally equal, ignoring
// map key order (which is never semantically significant per §3).
func TreesEqual(a, b Tree) bool {
	ha, errA := StructuralHash(a)
	hb, errB := StructuralHash(b)
	if errA != nil || errB != nil {
		return false
	}
	return ha == hb
}

// Now is a seam for deterministic testing of "generated_at_utc" timestamps.
var Now = func() time.Time { return time.Now().UTC() }
