package planner

import (
	"testing"

	"github.com/gloudx/docmigrate/internal/document"
	"github.com/gloudx/docmigrate/internal/registry"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("registry setup: %v", err)
		}
	}
	must(r.RegisterShape(document.Shape{ID: "pkgconf-v1", DocType: "PkgConf", SchemaVersion: "1.0"}))
	must(r.RegisterShape(document.Shape{ID: "pkgconf-v2", DocType: "PkgConf", SchemaVersion: "2.0"}))
	must(r.RegisterStep(document.MigrationStep{From: "pkgconf-v1", To: "pkgconf-v2"}))
	return r
}

func TestPlanSkipWhenAtTarget(t *testing.T) {
	r := newTestRegistry(t)
	docs := []document.VersionedDocument{
		{Identifier: "a", Meta: document.Meta{DocType: "PkgConf", SchemaVersion: "2.0"}},
	}
	plan := Plan(r, docs, nil, Upgrade, "2.0")
	if len(plan.Actions) != 1 || plan.Actions[0].Kind != document.ActionSkip {
		t.Fatalf("expected SKIP, got %+v", plan.Actions)
	}
}

func TestPlanQuarantinesNewerThanTarget(t *testing.T) {
	r := registry.New()
	r.RegisterShape(document.Shape{ID: "v1", DocType: "PkgConf", SchemaVersion: "1.0"})
	r.RegisterShape(document.Shape{ID: "v2", DocType: "PkgConf", SchemaVersion: "2.0"})
	r.RegisterShape(document.Shape{ID: "v25", DocType: "PkgConf", SchemaVersion: "2.5"})

	docs := []document.VersionedDocument{
		{Identifier: "newer", Meta: document.Meta{DocType: "PkgConf", SchemaVersion: "2.5"}},
	}
	plan := Plan(r, docs, nil, Upgrade, "2.0")
	if plan.Actions[0].Kind != document.ActionQuarantine {
		t.Fatalf("expected QUARANTINE, got %+v", plan.Actions[0])
	}
}

func TestPlanStandardUpgradeWithoutRollbackHistory(t *testing.T) {
	r := newTestRegistry(t)
	docs := []document.VersionedDocument{
		{Identifier: "a", Meta: document.Meta{DocType: "PkgConf", SchemaVersion: "1.0"}},
	}
	plan := Plan(r, docs, nil, Upgrade, "2.0")
	if plan.Actions[0].Kind != document.ActionStandardUpgrade {
		t.Fatalf("expected STANDARD_UPGRADE, got %+v", plan.Actions[0])
	}
}

func TestPlanThreeWayMergeWhenNewerSnapshotExists(t *testing.T) {
	r := newTestRegistry(t)
	docs := []document.VersionedDocument{
		{Identifier: "a", Meta: document.Meta{DocType: "PkgConf", SchemaVersion: "1.0"}},
	}
	snaps := map[string][]document.Snapshot{
		"a": {{Meta: document.Meta{DocType: "PkgConf", SchemaVersion: "2.0"}}},
	}
	plan := Plan(r, docs, snaps, Upgrade, "2.0")
	if plan.Actions[0].Kind != document.ActionThreeWayMerge {
		t.Fatalf("expected THREE_WAY_MERGE, got %+v", plan.Actions[0])
	}
}

func TestPlanQuarantinesWhenNoPath(t *testing.T) {
	r := registry.New()
	r.RegisterShape(document.Shape{ID: "v1", DocType: "PkgConf", SchemaVersion: "1.0"})
	r.RegisterShape(document.Shape{ID: "v2", DocType: "PkgConf", SchemaVersion: "2.0"})
	// no step registered between them

	docs := []document.VersionedDocument{
		{Identifier: "a", Meta: document.Meta{DocType: "PkgConf", SchemaVersion: "1.0"}},
	}
	plan := Plan(r, docs, nil, Upgrade, "2.0")
	if plan.Actions[0].Kind != document.ActionQuarantine {
		t.Fatalf("expected QUARANTINE, got %+v", plan.Actions[0])
	}
}

func TestPlanStandardDowngradeWhenReversePathExists(t *testing.T) {
	r := newTestRegistry(t)
	docs := []document.VersionedDocument{
		{Identifier: "a", Meta: document.Meta{DocType: "PkgConf", SchemaVersion: "2.0"}},
	}
	plan := Plan(r, docs, nil, Downgrade, "1.0")
	if plan.Actions[0].Kind != document.ActionStandardDowngrade {
		t.Fatalf("expected STANDARD_DOWNGRADE, got %+v", plan.Actions[0])
	}
}

func TestPlanPreservesInputOrder(t *testing.T) {
	r := newTestRegistry(t)
	docs := []document.VersionedDocument{
		{Identifier: "z", Meta: document.Meta{DocType: "PkgConf", SchemaVersion: "2.0"}},
		{Identifier: "a", Meta: document.Meta{DocType: "PkgConf", SchemaVersion: "1.0"}},
	}
	plan := Plan(r, docs, nil, Upgrade, "2.0")
	if plan.Actions[0].Identifier != "z" || plan.Actions[1].Identifier != "a" {
		t.Fatalf("expected input order preserved, got %+v", plan.Actions)
	}
}

func TestPlanIsPureAcrossInvocations(t *testing.T) {
	r := newTestRegistry(t)
	docs := []document.VersionedDocument{
		{Identifier: "a", Meta: document.Meta{DocType: "PkgConf", SchemaVersion: "1.0"}},
	}
	plan1 := Plan(r, docs, nil, Upgrade, "2.0")
	plan2 := Plan(r, docs, nil, Upgrade, "2.0")
	if len(plan1.Actions) != len(plan2.Actions) || plan1.Actions[0].Kind != plan2.Actions[0].Kind {
		t.Fatalf("expected structurally equal plans across invocations")
	}
	if docs[0].Meta.SchemaVersion != "1.0" {
		t.Fatalf("planner mutated input bundle")
	}
}
