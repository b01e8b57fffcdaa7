// Package planner classifies document bundles into migration actions
// against a target version. Pure and read-only, as spec.md §4.3 requires:
// it never mutates a bundle and never touches the filesystem.
//
// Grounded on the classification-table style of BeadsLog's
// cmd/bd/migrate.go handleInspect (read-only inspection deciding what a
// later destructive step would do), generalized to the kernel's five-way
// action enum instead of bd's ad hoc "needs migration" booleans.
package planner

import (
	"github.com/gloudx/docmigrate/internal/document"
	"github.com/gloudx/docmigrate/internal/registry"
)

// Direction distinguishes an upgrade run (target derived as the latest
// registered version) from a rollback run (target is explicit).
type Direction int

const (
	Upgrade Direction = iota
	Downgrade
)

// Plan classifies every bundle independently against targetVersion,
// producing a Plan whose action order equals input order.
func Plan(reg *registry.Registry, bundles []document.VersionedDocument, bundleSnapshots map[string][]document.Snapshot, direction Direction, targetVersion document.SchemaVersion) document.Plan {
	actions := make([]document.PlanAction, 0, len(bundles))
	for _, doc := range bundles {
		actions = append(actions, classify(reg, doc, bundleSnapshots[doc.Identifier], direction, targetVersion))
	}
	return document.Plan{
		Header: document.PlanHeader{
			TargetVersion:  targetVersion,
			GeneratedAtUTC: document.Now(),
		},
		Actions: actions,
	}
}

func classify(reg *registry.Registry, doc document.VersionedDocument, snapshots []document.Snapshot, direction Direction, target document.SchemaVersion) document.PlanAction {
	current := doc.Meta.SchemaVersion
	id := doc.Identifier

	if current.Equal(target) {
		return document.PlanAction{Identifier: id, Kind: document.ActionSkip, Details: "already at target version"}
	}

	if direction == Upgrade && current.GreaterThan(target) {
		return document.PlanAction{Identifier: id, Kind: document.ActionQuarantine, Details: "newer than target"}
	}
	if direction == Downgrade && current.LessThan(target) {
		return document.PlanAction{Identifier: id, Kind: document.ActionQuarantine, Details: "older than target"}
	}

	currentShape, err := reg.ShapeFor(doc.Meta.DocType, current)
	if err != nil {
		return document.PlanAction{Identifier: id, Kind: document.ActionQuarantine, Details: "no path: current version not registered"}
	}
	targetShape, err := reg.ShapeFor(doc.Meta.DocType, target)
	if err != nil {
		return document.PlanAction{Identifier: id, Kind: document.ActionQuarantine, Details: "no path: target version not registered"}
	}

	if direction == Upgrade {
		path, err := reg.FindPath(currentShape, targetShape)
		if err != nil {
			return document.PlanAction{Identifier: id, Kind: document.ActionQuarantine, Details: "no path"}
		}
		_ = path

		if hasSnapshotNewerThan(snapshots, current) {
			return document.PlanAction{Identifier: id, Kind: document.ActionThreeWayMerge, Details: "rollback history present"}
		}
		return document.PlanAction{Identifier: id, Kind: document.ActionStandardUpgrade, Details: ""}
	}

	// Downgrade: a reverse path exists iff the forward path target -> current exists.
	if _, err := reg.FindPath(targetShape, currentShape); err != nil {
		return document.PlanAction{Identifier: id, Kind: document.ActionQuarantine, Details: "no path"}
	}
	return document.PlanAction{Identifier: id, Kind: document.ActionStandardDowngrade, Details: ""}
}

func hasSnapshotNewerThan(snapshots []document.Snapshot, version document.SchemaVersion) bool {
	for _, s := range snapshots {
		if s.Meta.SchemaVersion.GreaterThan(version) {
			return true
		}
	}
	return false
}
