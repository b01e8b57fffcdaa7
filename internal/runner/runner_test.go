package runner

import (
	"testing"

	"github.com/gloudx/docmigrate/internal/document"
	"github.com/gloudx/docmigrate/internal/registry"
)

func pkgConfRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	if err := r.RegisterShape(document.Shape{ID: "v1", DocType: "PkgConf", SchemaVersion: "1.0"}); err != nil {
		t.Fatalf("RegisterShape: %v", err)
	}
	if err := r.RegisterShape(document.Shape{ID: "v2", DocType: "PkgConf", SchemaVersion: "2.0"}); err != nil {
		t.Fatalf("RegisterShape: %v", err)
	}

	apply := func(data document.Tree) (document.Tree, error) {
		out := document.CloneTree(data)
		out["execution_timeout"] = out["timeout"]
		delete(out, "timeout")

		plugins, _ := out["plugins"].([]any)
		pluginMap := make(map[string]any, len(plugins))
		for _, p := range plugins {
			name, _ := p.(string)
			pluginMap[name] = map[string]any{"enabled": true}
		}
		out["plugins"] = pluginMap
		out["reporting"] = map[string]any{"format": "json"}
		return out, nil
	}
	reverse := func(data document.Tree) (document.Tree, error) {
		out := document.CloneTree(data)
		out["timeout"] = out["execution_timeout"]
		delete(out, "execution_timeout")
		delete(out, "reporting")

		pluginMap, _ := out["plugins"].(map[string]any)
		var names []any
		for name := range pluginMap {
			names = append(names, name)
		}
		out["plugins"] = names
		return out, nil
	}
	if err := r.RegisterStep(document.MigrationStep{From: "v1", To: "v2", Apply: apply, Reverse: reverse}); err != nil {
		t.Fatalf("RegisterStep: %v", err)
	}
	return r
}

func TestRunSkipProducesUnchangedSuccess(t *testing.T) {
	bundles := map[string]Bundle{
		"a": {Current: document.VersionedDocument{Identifier: "a", Data: document.Tree{"x": float64(1)}, Meta: document.Meta{DocType: "PkgConf", SchemaVersion: "2.0"}}},
	}
	plan := document.Plan{
		Header:  document.PlanHeader{TargetVersion: "2.0"},
		Actions: []document.PlanAction{{Identifier: "a", Kind: document.ActionSkip}},
	}

	result, err := Run(registry.New(), bundles, plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Summary.Skipped != 1 || len(result.Successes) != 1 {
		t.Fatalf("unexpected summary: %+v", result.Summary)
	}
	if result.Successes[0].Result.Data["x"] != float64(1) {
		t.Fatalf("expected unchanged data")
	}
}

func TestRunStandardUpgrade(t *testing.T) {
	reg := pkgConfRegistry(t)
	bundles := map[string]Bundle{
		"a": {Current: document.VersionedDocument{
			Identifier: "a",
			Data:       document.Tree{"timeout": float64(30), "plugins": []any{"auth"}},
			Meta:       document.Meta{DocType: "PkgConf", SchemaVersion: "1.0"},
		}},
	}
	plan := document.Plan{
		Header:  document.PlanHeader{TargetVersion: "2.0"},
		Actions: []document.PlanAction{{Identifier: "a", Kind: document.ActionStandardUpgrade}},
	}

	result, err := Run(reg, bundles, plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Summary.Succeeded != 1 {
		t.Fatalf("expected 1 success, got %+v", result.Summary)
	}
	success := result.Successes[0]
	if success.Result.NewMeta.SchemaVersion != "2.0" {
		t.Fatalf("expected new meta at 2.0, got %+v", success.Result.NewMeta)
	}
	if success.Result.Data["execution_timeout"] != float64(30) {
		t.Fatalf("expected timeout renamed, got %+v", success.Result.Data)
	}
	if len(success.Result.SnapshotsToPersist) != 1 {
		t.Fatalf("expected one snapshot to persist, got %+v", success.Result.SnapshotsToPersist)
	}
	if success.Result.SnapshotsToPersist[0].Meta.SchemaVersion != "1.0" {
		t.Fatalf("expected pre-upgrade snapshot at 1.0")
	}
}

func TestRunStandardDowngrade(t *testing.T) {
	reg := pkgConfRegistry(t)
	bundles := map[string]Bundle{
		"a": {Current: document.VersionedDocument{
			Identifier: "a",
			Data: document.Tree{
				"execution_timeout": float64(30),
				"plugins":            map[string]any{"auth": map[string]any{"enabled": true}},
				"reporting":          map[string]any{"format": "json"},
			},
			Meta: document.Meta{DocType: "PkgConf", SchemaVersion: "2.0"},
		}},
	}
	plan := document.Plan{
		Header:  document.PlanHeader{TargetVersion: "1.0"},
		Actions: []document.PlanAction{{Identifier: "a", Kind: document.ActionStandardDowngrade}},
	}

	result, err := Run(reg, bundles, plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Summary.Succeeded != 1 {
		t.Fatalf("expected 1 success, got %+v", result.Summary)
	}
	if result.Successes[0].Result.Data["timeout"] != float64(30) {
		t.Fatalf("expected timeout restored, got %+v", result.Successes[0].Result.Data)
	}
}

func TestRunQuarantineEmitsPlannedFailure(t *testing.T) {
	bundles := map[string]Bundle{
		"a": {Current: document.VersionedDocument{Identifier: "a", Meta: document.Meta{DocType: "PkgConf", SchemaVersion: "9.9"}}},
	}
	plan := document.Plan{
		Actions: []document.PlanAction{{Identifier: "a", Kind: document.ActionQuarantine, Details: "newer than target"}},
	}
	result, err := Run(registry.New(), bundles, plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Summary.Failed != 1 || result.Failures[0].Record.Reason != document.ReasonPlannedQuarantine {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Failures[0].Record.Details != "newer than target" {
		t.Fatalf("expected details preserved, got %+v", result.Failures[0].Record)
	}
}

func TestRunDuplicateIdentifiersIsAnError(t *testing.T) {
	plan := document.Plan{
		Actions: []document.PlanAction{
			{Identifier: "a", Kind: document.ActionSkip},
			{Identifier: "a", Kind: document.ActionSkip},
		},
	}
	_, err := Run(registry.New(), map[string]Bundle{}, plan)
	if err == nil {
		t.Fatalf("expected error for duplicate identifiers")
	}
}

func TestRunOneFailureDoesNotAbortBatch(t *testing.T) {
	bundles := map[string]Bundle{
		"ok":  {Current: document.VersionedDocument{Identifier: "ok", Data: document.Tree{}, Meta: document.Meta{DocType: "PkgConf", SchemaVersion: "2.0"}}},
		"bad": {Current: document.VersionedDocument{Identifier: "bad", Meta: document.Meta{DocType: "PkgConf", SchemaVersion: "9.9"}}},
	}
	plan := document.Plan{
		Header: document.PlanHeader{TargetVersion: "2.0"},
		Actions: []document.PlanAction{
			{Identifier: "ok", Kind: document.ActionSkip},
			{Identifier: "bad", Kind: document.ActionQuarantine, Details: "newer than target"},
		},
	}
	result, err := Run(registry.New(), bundles, plan)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Summary.Succeeded != 1 || result.Summary.Failed != 1 || result.Summary.Processed != 2 {
		t.Fatalf("unexpected summary: %+v", result.Summary)
	}
}
