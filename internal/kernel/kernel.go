// Package kernel is the single facade the CLI (or any other host) calls:
// it wires the registry, snapshot store, planner, merger, runner,
// transaction journal, and quarantine store behind one constructed-with-
// dependencies object.
//
// Grounded on gloudx-ues/lexicon/lexicon_migrations.go's MigrationManager,
// which plays the same role over its registry + repository + config — a
// single façade the host constructs once and calls for every operation,
// rather than the host wiring C2-C8 itself on every call.
package kernel

import (
	"fmt"
	"path/filepath"

	"github.com/gloudx/docmigrate/internal/document"
	"github.com/gloudx/docmigrate/internal/journal"
	"github.com/gloudx/docmigrate/internal/planner"
	"github.com/gloudx/docmigrate/internal/quarantine"
	"github.com/gloudx/docmigrate/internal/registry"
	"github.com/gloudx/docmigrate/internal/runner"
	"github.com/gloudx/docmigrate/internal/snapshotstore"
)

// Kernel bundles the collaborators a host needs to drive a migration run.
// All fields are set once at construction (New) and never mutated
// thereafter, per spec.md §5 ("no singleton state persists between runs").
type Kernel struct {
	Registry   *registry.Registry
	Snapshots  *snapshotstore.Store
	Quarantine *quarantine.Store
	TxnDir     string
}

// New constructs a Kernel from its collaborators. snapshotDir and txnDir
// must already exist; quarantineDir may be empty to disable quarantine.
func New(reg *registry.Registry, snapshotDir, txnDir, quarantineDir string) *Kernel {
	return &Kernel{
		Registry:   reg,
		Snapshots:  snapshotstore.New(snapshotDir),
		Quarantine: &quarantine.Store{Dir: quarantineDir},
		TxnDir:     txnDir,
	}
}

// PlanUpgrade classifies docs against the latest registered version per
// doc_type (spec.md §4.3's "kernel derives target from
// registry.latest_version(doc_type)"). Documents of differing doc_types
// in one call are each measured against their own doc_type's latest.
func (k *Kernel) PlanUpgrade(docs []document.VersionedDocument, snapshotsByID map[string][]document.Snapshot) (document.Plan, error) {
	return k.planPerDocType(docs, snapshotsByID, planner.Upgrade, nil)
}

// PlanRollback classifies docs against an explicit target version.
func (k *Kernel) PlanRollback(docs []document.VersionedDocument, snapshotsByID map[string][]document.Snapshot, target document.SchemaVersion) (document.Plan, error) {
	return k.planPerDocType(docs, snapshotsByID, planner.Downgrade, &target)
}

func (k *Kernel) planPerDocType(docs []document.VersionedDocument, snapshotsByID map[string][]document.Snapshot, direction planner.Direction, explicitTarget *document.SchemaVersion) (document.Plan, error) {
	byDocType := make(map[string][]document.VersionedDocument)
	order := make([]string, 0)
	for _, d := range docs {
		if _, ok := byDocType[d.Meta.DocType]; !ok {
			order = append(order, d.Meta.DocType)
		}
		byDocType[d.Meta.DocType] = append(byDocType[d.Meta.DocType], d)
	}

	combined := document.Plan{Header: document.PlanHeader{GeneratedAtUTC: document.Now()}}
	for _, docType := range order {
		target := document.SchemaVersion("")
		if explicitTarget != nil {
			target = *explicitTarget
		} else {
			latest, ok := k.Registry.LatestVersion(docType)
			if !ok {
				return document.Plan{}, fmt.Errorf("kernel: no registered versions for doc_type %q", docType)
			}
			target = latest
		}

		sub := planner.Plan(k.Registry, byDocType[docType], snapshotsByID, direction, target)
		combined.Actions = append(combined.Actions, sub.Actions...)
		if combined.Header.TargetVersion == "" {
			combined.Header.TargetVersion = target
		}
	}

	// Preserve the caller's original input order rather than the
	// doc-type-grouped order used internally for per-doc_type targets.
	byID := make(map[string]document.PlanAction, len(combined.Actions))
	for _, a := range combined.Actions {
		byID[a.Identifier] = a
	}
	ordered := make([]document.PlanAction, 0, len(docs))
	for _, d := range docs {
		ordered = append(ordered, byID[d.Identifier])
	}
	combined.Actions = ordered
	return combined, nil
}

// Execute runs plan against bundles and, if persist is non-nil, calls it
// with the computed result to perform the actual destructive writes
// (source files, snapshots, quarantine) before reporting success. If
// resumable is true, the whole run is wrapped in a transaction journal
// (spec.md §4.6): backup phase before any write, then — critically —
// persist runs and must return before MarkCompleted/Commit do. Commit is
// the journal's declaration that every write in filePaths already
// happened; committing before persist has actually written anything would
// leave a crash between Commit and the real writes with no journal left
// to recover from (Commit itself deletes the backups and the journal file).
func (k *Kernel) Execute(plan document.Plan, bundles map[string]runner.Bundle, identifierToFilePath map[string]string, resumable bool, persist func(document.MigrationResult) error) (document.MigrationResult, error) {
	if !resumable {
		result, err := runner.Run(k.Registry, bundles, plan)
		if err != nil {
			return document.MigrationResult{}, err
		}
		if persist != nil {
			if err := persist(result); err != nil {
				return document.MigrationResult{}, err
			}
		}
		return result, nil
	}

	var filePaths []string
	for _, a := range plan.Actions {
		if a.Kind == document.ActionSkip {
			continue
		}
		if p, ok := identifierToFilePath[a.Identifier]; ok {
			filePaths = append(filePaths, p)
		}
	}

	txn, err := journal.Begin(k.TxnDir, filePaths)
	if err != nil {
		return document.MigrationResult{}, err
	}
	if err := txn.Backup(); err != nil {
		return document.MigrationResult{}, err
	}

	result, err := runner.Run(k.Registry, bundles, plan)
	if err != nil {
		return document.MigrationResult{}, err
	}

	if persist != nil {
		if err := persist(result); err != nil {
			return document.MigrationResult{}, err
		}
	}

	for _, p := range filePaths {
		if err := txn.MarkCompleted(p); err != nil {
			return document.MigrationResult{}, err
		}
	}
	if err := txn.Commit(); err != nil {
		return document.MigrationResult{}, err
	}
	return result, nil
}

// Resume restores a crashed transaction from k.TxnDir.
func (k *Kernel) Resume() (document.MigrationResult, error) {
	return journal.Resume(k.TxnDir)
}

// Retry builds a fresh plan containing exactly the failed identifiers
// from a previous MigrationResult, re-resolving target versions from the
// registry per doc_type rather than reusing a stale placeholder (spec.md
// §9's retry_failed decision).
func (k *Kernel) Retry(previous document.MigrationResult, docs []document.VersionedDocument, snapshotsByID map[string][]document.Snapshot) (document.Plan, error) {
	failedIDs := make(map[string]bool, len(previous.Failures))
	for _, f := range previous.Failures {
		failedIDs[f.Identifier] = true
	}

	var retryDocs []document.VersionedDocument
	for _, d := range docs {
		if failedIDs[d.Identifier] {
			retryDocs = append(retryDocs, d)
		}
	}
	return k.PlanUpgrade(retryDocs, snapshotsByID)
}

// GC runs garbage collection for one document's snapshots.
func (k *Kernel) GC(sourceBasename string, liveVersion document.SchemaVersion) (snapshotstore.GCResult, error) {
	return k.Snapshots.GC(sourceBasename, liveVersion)
}

// QuarantineFailure moves a failed document's source file aside and
// writes its diagnostic report.
func (k *Kernel) QuarantineFailure(sourcePath string, failure document.Failure) (string, error) {
	return k.Quarantine.Quarantine(sourcePath, failure.Record)
}

// SnapshotBasenameFor derives the basename the snapshot store should use
// for a given identifier (typically the file basename on disk).
func SnapshotBasenameFor(identifier string) string {
	return filepath.Base(identifier)
}
