package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/pretty"

	"github.com/gloudx/docmigrate/internal/config"
	"github.com/gloudx/docmigrate/internal/document"
	"github.com/gloudx/docmigrate/internal/kernel"
	"github.com/gloudx/docmigrate/internal/quarantine"
	"github.com/gloudx/docmigrate/internal/registry"
	"github.com/gloudx/docmigrate/internal/runner"
	"github.com/gloudx/docmigrate/internal/ui"
)

// loadedDoc is one discovered file, decoded to a VersionedDocument.
type loadedDoc struct {
	path string
	doc  document.VersionedDocument
}

// loadDocuments reads every file path, decoding its wire form against
// docType as the fallback (for documents with no _meta member at all).
func loadDocuments(paths []string, docType string) ([]loadedDoc, error) {
	out := make([]loadedDoc, 0, len(paths))
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		data, meta, err := document.DecodeWire(raw, docType)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", p, err)
		}
		out = append(out, loadedDoc{
			path: p,
			doc: document.VersionedDocument{
				Identifier: p,
				Data:       data,
				Meta:       meta,
			},
		})
	}
	if log != nil {
		log.Debugf("loaded %d document(s) for doc_type %q", len(out), docType)
	}
	return out, nil
}

// snapshotsFor reads every snapshot on disk belonging to each document's
// basename and decodes it back into a document.Snapshot. A snapshot that
// fails integrity verification or decoding is left out of the bundle and
// is not reported anywhere.
func snapshotsFor(k *kernel.Kernel, docs []loadedDoc) (map[string][]document.Snapshot, error) {
	out := make(map[string][]document.Snapshot, len(docs))
	for _, d := range docs {
		basename := kernel.SnapshotBasenameFor(d.path)
		names, err := k.Snapshots.NamesFor(basename)
		if err != nil {
			return nil, err
		}
		var snaps []document.Snapshot
		for _, name := range names {
			raw, err := k.Snapshots.ReadAndVerify(name)
			if err != nil {
				continue // dropped from the bundle; no SnapshotIntegrityFailure is produced
			}
			data, meta, err := document.DecodeWire(raw, d.doc.Meta.DocType)
			if err != nil {
				continue
			}
			snaps = append(snaps, document.Snapshot{Data: data, Meta: meta, Name: name})
		}
		out[d.doc.Identifier] = snaps
	}
	return out, nil
}

func buildRunnerBundles(docs []loadedDoc, snapshotsByID map[string][]document.Snapshot) map[string]runner.Bundle {
	bundles := make(map[string]runner.Bundle, len(docs))
	for _, d := range docs {
		bundles[d.doc.Identifier] = runner.Bundle{
			Current:   d.doc,
			Snapshots: snapshotsByID[d.doc.Identifier],
		}
	}
	return bundles
}

func toVersionedDocuments(docs []loadedDoc) []document.VersionedDocument {
	out := make([]document.VersionedDocument, len(docs))
	for i, d := range docs {
		out[i] = d.doc
	}
	return out
}

func identifierToFilePath(docs []loadedDoc) map[string]string {
	m := make(map[string]string, len(docs))
	for _, d := range docs {
		m[d.doc.Identifier] = d.path
	}
	return m
}

func buildRegistry() (*registry.Registry, error) {
	reg := registry.New()
	if err := registerBuiltinShapes(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func buildKernel(reg *registry.Registry) (*kernel.Kernel, error) {
	snapDir := config.SnapshotDir()
	txnDir := config.TransactionDir()
	quarantineDir := config.QuarantineDir()

	for _, d := range []string{snapDir, txnDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", d, err)
		}
	}
	if quarantineDir != "" {
		if err := os.MkdirAll(quarantineDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating quarantine directory %s: %w", quarantineDir, err)
		}
	}
	return kernel.New(reg, snapDir, txnDir, quarantineDir), nil
}

// printPlan writes plan as pretty JSON when jsonOutput is set or stdout is
// not a terminal, or as a styled table otherwise.
func printPlan(plan document.Plan) {
	if jsonOutput || !ui.IsTerminal() {
		writeJSON(plan)
		return
	}
	fmt.Println(ui.RenderPlanTable(ui.GetWidth(), plan))
}

// printResult writes result as pretty JSON or a styled summary line, and
// returns the process exit code: 1 if any action failed, 0 otherwise
// (spec.md section 6's CLI contract).
func printResult(result document.MigrationResult) int {
	if jsonOutput || !ui.IsTerminal() {
		writeJSON(result)
	} else {
		fmt.Println(ui.RenderResultSummary(result))
	}
	if log != nil {
		if result.Summary.Failed > 0 {
			log.Warnf("run complete: %d succeeded, %d failed, %d skipped", result.Summary.Succeeded, result.Summary.Failed, result.Summary.Skipped)
		} else {
			log.Infof("run complete: %d succeeded, %d skipped", result.Summary.Succeeded, result.Summary.Skipped)
		}
	}
	if result.Summary.Failed > 0 {
		return 1
	}
	return 0
}

func writeJSON(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		fatalf("encoding output: %v", err)
	}
	os.Stdout.Write(pretty.Pretty(raw))
}

func writePlanFile(path string, plan document.Plan) error {
	raw, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

func readPlanFile(path string) (document.Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return document.Plan{}, fmt.Errorf("reading plan %s: %w", path, err)
	}
	var plan document.Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return document.Plan{}, fmt.Errorf("parsing plan %s: %w", path, err)
	}
	return plan, nil
}

func writeResultFile(path string, result document.MigrationResult) error {
	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return os.WriteFile(path, raw, 0o644)
}

func readResultFile(path string) (document.MigrationResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return document.MigrationResult{}, fmt.Errorf("reading result %s: %w", path, err)
	}
	var result document.MigrationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return document.MigrationResult{}, fmt.Errorf("parsing result %s: %w", path, err)
	}
	return result, nil
}

// persistSuccesses writes migrated documents back to their source paths
// and persists/deletes snapshots per each success's DataMigrationResult.
// Failures are routed to the quarantine store when one is configured.
func persistSuccesses(k *kernel.Kernel, docs []loadedDoc, result document.MigrationResult) error {
	pathByID := identifierToFilePath(docs)

	for _, s := range result.Successes {
		path, ok := pathByID[s.Identifier]
		if !ok {
			continue
		}
		raw, err := document.EncodeWire(s.Result.Data, s.Result.NewMeta)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", s.Identifier, err)
		}
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		if log != nil {
			log.Debugf("wrote %s at schema version %s", path, s.Result.NewMeta.SchemaVersion)
		}

		basename := kernel.SnapshotBasenameFor(path)
		for _, snap := range s.Result.SnapshotsToPersist {
			snapRaw, err := document.EncodeWire(snap.Data, snap.Meta)
			if err != nil {
				return fmt.Errorf("encoding snapshot for %s: %w", s.Identifier, err)
			}
			if _, err := k.Snapshots.Create(basename, snapRaw, snap.Meta.SchemaVersion); err != nil {
				return fmt.Errorf("persisting snapshot for %s: %w", s.Identifier, err)
			}
		}
		for _, meta := range s.Result.SnapshotsToDelete {
			names, err := k.Snapshots.NamesFor(basename)
			if err != nil {
				return err
			}
			marker := ".v" + string(meta.SchemaVersion) + "."
			for _, name := range names {
				if strings.Contains(name, marker) {
					if err := k.Snapshots.Delete(name); err != nil {
						return fmt.Errorf("deleting snapshot %s: %w", name, err)
					}
				}
			}
		}
	}

	for _, f := range result.Failures {
		path, ok := pathByID[f.Identifier]
		if !ok {
			continue
		}
		reportPath, err := k.QuarantineFailure(path, f)
		if err != nil {
			if err == quarantine.ErrDisabled {
				if log != nil {
					log.Warnf("%s failed (%s) but no quarantine directory is configured; left in place", f.Identifier, f.Record.Reason)
				}
				continue
			}
			return fmt.Errorf("quarantining %s: %w", f.Identifier, err)
		}
		if log != nil {
			log.Infof("quarantined %s (%s): %s", f.Identifier, f.Record.Reason, reportPath)
		}
	}
	return nil
}
