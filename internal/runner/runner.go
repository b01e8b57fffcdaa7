// Package runner executes a Plan against a set of document bundles,
// consulting the registry for migration chains and the merger for
// re-upgrade merges. It does not touch the snapshot store: each result
// lists the snapshots to persist and delete, and the caller applies them.
//
// Grounded on BeadsLog's cmd/bd/migrate.go execution loop: resolve what
// needs doing, back up before any destructive write, run the
// transformation, and never let one item's failure abort the batch.
package runner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/gloudx/docmigrate/internal/document"
	"github.com/gloudx/docmigrate/internal/merge"
	"github.com/gloudx/docmigrate/internal/registry"
)

// Bundle is the runner's view of a document plus its known snapshots,
// keyed by identifier by the caller.
type Bundle struct {
	Current   document.VersionedDocument
	Snapshots []document.Snapshot
}

// Run executes plan against bundles (keyed by identifier) and produces a
// MigrationResult. Identifiers in the plan must be unique; duplicates are
// an error at submission, not a per-item failure.
func Run(reg *registry.Registry, bundles map[string]Bundle, plan document.Plan) (document.MigrationResult, error) {
	if err := checkUniqueIdentifiers(plan); err != nil {
		return document.MigrationResult{}, err
	}

	var successes []document.Success
	var failures []document.Failure
	skipped := 0

	for _, action := range plan.Actions {
		bundle, ok := bundles[action.Identifier]
		if !ok {
			failures = append(failures, document.Failure{
				Identifier: action.Identifier,
				Record: document.QuarantineRecord{
					Identifier:  action.Identifier,
					Reason:      document.ReasonExecutionFailure,
					Details:     "no bundle found for identifier",
					ContentHash: contentHash([]byte(action.Identifier)),
				},
			})
			continue
		}

		switch action.Kind {
		case document.ActionSkip:
			skipped++
			successes = append(successes, document.Success{
				Identifier: action.Identifier,
				Result: document.DataMigrationResult{
					Data:    bundle.Current.Data,
					NewMeta: bundle.Current.Meta,
				},
			})

		case document.ActionStandardUpgrade:
			result, err := runStandardUpgrade(reg, bundle, plan.Header.TargetVersion)
			appendOutcome(&successes, &failures, action.Identifier, bundle, result, err)

		case document.ActionStandardDowngrade:
			result, err := runStandardDowngrade(reg, bundle, plan.Header.TargetVersion)
			appendOutcome(&successes, &failures, action.Identifier, bundle, result, err)

		case document.ActionThreeWayMerge:
			result, err := runThreeWayMerge(reg, bundle, plan.Header.TargetVersion)
			appendOutcome(&successes, &failures, action.Identifier, bundle, result, err)

		case document.ActionQuarantine:
			failures = append(failures, document.Failure{
				Identifier:   action.Identifier,
				OriginalData: bundle.Current.Data,
				OriginalMeta: bundle.Current.Meta,
				Record: document.QuarantineRecord{
					Identifier:  action.Identifier,
					Reason:      document.ReasonPlannedQuarantine,
					Details:     action.Details,
					ContentHash: bundleContentHash(bundle),
				},
			})

		default:
			failures = append(failures, document.Failure{
				Identifier:   action.Identifier,
				OriginalData: bundle.Current.Data,
				OriginalMeta: bundle.Current.Meta,
				Record: document.QuarantineRecord{
					Identifier:  action.Identifier,
					Reason:      document.ReasonExecutionFailure,
					Details:     fmt.Sprintf("unknown action kind %q", action.Kind),
					ContentHash: bundleContentHash(bundle),
				},
			})
		}
	}

	return document.MigrationResult{
		Summary: document.ResultSummary{
			Status:    "Completed",
			Processed: len(plan.Actions),
			Succeeded: len(successes),
			Failed:    len(failures),
			Skipped:   skipped,
		},
		Successes: successes,
		Failures:  failures,
	}, nil
}

func checkUniqueIdentifiers(plan document.Plan) error {
	seen := make(map[string]bool, len(plan.Actions))
	for _, a := range plan.Actions {
		if seen[a.Identifier] {
			return fmt.Errorf("runner: duplicate identifier in plan: %s", a.Identifier)
		}
		seen[a.Identifier] = true
	}
	return nil
}

func appendOutcome(successes *[]document.Success, failures *[]document.Failure, id string, bundle Bundle, result *document.DataMigrationResult, err error) {
	if err != nil {
		*failures = append(*failures, toFailure(id, bundle, err))
		return
	}
	*successes = append(*successes, document.Success{Identifier: id, Result: *result})
}

func toFailure(id string, bundle Bundle, err error) document.Failure {
	reason := document.ReasonExecutionFailure
	var integrityErr *document.SnapshotIntegrityFailure
	if asIntegrityFailure(err, &integrityErr) {
		reason = document.ReasonSnapshotIntegrityFailure
	}
	return document.Failure{
		Identifier:   id,
		OriginalData: bundle.Current.Data,
		OriginalMeta: bundle.Current.Meta,
		Record: document.QuarantineRecord{
			Identifier:  id,
			Reason:      reason,
			Details:     err.Error(),
			ContentHash: bundleContentHash(bundle),
		},
	}
}

// contentHash returns the hex-encoded SHA-256 digest of raw, following
// snapshotstore's convention of a raw digest over encoded content rather
// than hashstructure's order-independent structural hash (quarantine
// filenames need a stable digest of the bytes actually being quarantined,
// not a structural-equality hash). quarantine.Store truncates this to its
// own hash-prefix length itself.
func contentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// bundleContentHash hashes a bundle's current document (its wire-encoded
// form, so the hash reflects the exact bytes a quarantined copy would
// contain). Falls back to hashing the identifier if encoding fails, which
// only happens for document trees containing values EncodeWire can't
// serialize.
func bundleContentHash(bundle Bundle) string {
	raw, err := document.EncodeWire(bundle.Current.Data, bundle.Current.Meta)
	if err != nil {
		return contentHash([]byte(bundle.Current.Identifier))
	}
	return contentHash(raw)
}

func asIntegrityFailure(err error, target **document.SnapshotIntegrityFailure) bool {
	for err != nil {
		if f, ok := err.(*document.SnapshotIntegrityFailure); ok {
			*target = f
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

func runStandardUpgrade(reg *registry.Registry, bundle Bundle, target document.SchemaVersion) (*document.DataMigrationResult, error) {
	currentShape, err := reg.ShapeFor(bundle.Current.Meta.DocType, bundle.Current.Meta.SchemaVersion)
	if err != nil {
		return nil, err
	}
	targetShape, err := reg.ShapeFor(bundle.Current.Meta.DocType, target)
	if err != nil {
		return nil, err
	}
	path, err := reg.FindPath(currentShape, targetShape)
	if err != nil {
		return nil, err
	}

	data := document.CloneTree(bundle.Current.Data)
	for _, step := range path {
		data, err = step.Apply(data)
		if err != nil {
			return nil, &document.ExecutionFailure{Identifier: bundle.Current.Identifier, Err: err}
		}
	}

	return &document.DataMigrationResult{
		Data:    data,
		NewMeta: document.Meta{DocType: bundle.Current.Meta.DocType, SchemaVersion: target},
		SnapshotsToPersist: []document.Snapshot{
			{Data: bundle.Current.Data, Meta: bundle.Current.Meta},
		},
	}, nil
}

func runStandardDowngrade(reg *registry.Registry, bundle Bundle, target document.SchemaVersion) (*document.DataMigrationResult, error) {
	currentShape, err := reg.ShapeFor(bundle.Current.Meta.DocType, bundle.Current.Meta.SchemaVersion)
	if err != nil {
		return nil, err
	}
	targetShape, err := reg.ShapeFor(bundle.Current.Meta.DocType, target)
	if err != nil {
		return nil, err
	}
	// Forward chain target -> current, then invert step-wise in reverse order.
	forward, err := reg.FindPath(targetShape, currentShape)
	if err != nil {
		return nil, err
	}

	data := document.CloneTree(bundle.Current.Data)
	for i := len(forward) - 1; i >= 0; i-- {
		step := forward[i]
		if step.Reverse == nil {
			return nil, &document.ExecutionFailure{
				Identifier: bundle.Current.Identifier,
				Err:        fmt.Errorf("step %s -> %s has no reverse function", step.From, step.To),
			}
		}
		var err error
		data, err = step.Reverse(data)
		if err != nil {
			return nil, &document.ExecutionFailure{Identifier: bundle.Current.Identifier, Err: err}
		}
	}

	return &document.DataMigrationResult{
		Data:    data,
		NewMeta: document.Meta{DocType: bundle.Current.Meta.DocType, SchemaVersion: target},
		SnapshotsToPersist: []document.Snapshot{
			{Data: bundle.Current.Data, Meta: bundle.Current.Meta},
		},
	}, nil
}

func runThreeWayMerge(reg *registry.Registry, bundle Bundle, target document.SchemaVersion) (*document.DataMigrationResult, error) {
	lowest, ok := bundle.lowestSnapshot()
	if !ok {
		return nil, &document.ExecutionFailure{Identifier: bundle.Current.Identifier, Err: fmt.Errorf("no base snapshot for merge")}
	}
	highest, ok := bundle.highestSnapshot()
	if !ok {
		return nil, &document.ExecutionFailure{Identifier: bundle.Current.Identifier, Err: fmt.Errorf("no theirs snapshot for merge")}
	}

	targetShape, err := reg.ShapeFor(bundle.Current.Meta.DocType, target)
	if err != nil {
		return nil, err
	}

	basePrime, lastStep, err := liftToTarget(reg, lowest.Data, lowest.Meta, targetShape)
	if err != nil {
		return nil, err
	}
	minePrime, mineLastStep, err := liftToTarget(reg, bundle.Current.Data, bundle.Current.Meta, targetShape)
	if err != nil {
		return nil, err
	}
	if mineLastStep.To != "" {
		lastStep = mineLastStep
	}

	result, err := merge.Merge3Way(basePrime, minePrime, highest.Data, lastStep)
	if err != nil {
		return nil, &document.ExecutionFailure{Identifier: bundle.Current.Identifier, Err: err}
	}

	return &document.DataMigrationResult{
		Data:    result.Merged,
		NewMeta: document.Meta{DocType: bundle.Current.Meta.DocType, SchemaVersion: target},
		SnapshotsToPersist: []document.Snapshot{
			{Data: bundle.Current.Data, Meta: bundle.Current.Meta},
		},
		SnapshotsToDelete: []document.Meta{lowest.Meta, highest.Meta},
	}, nil
}

// liftToTarget applies the forward migration chain from (data, meta) to
// targetShape, returning the resulting tree and the last step applied
// (whose ClaimedProperties/MergeProperty drive the merge's semantic pass).
// If data is already at targetShape, the zero MigrationStep is returned.
func liftToTarget(reg *registry.Registry, data document.Tree, meta document.Meta, targetShape document.ShapeID) (document.Tree, document.MigrationStep, error) {
	fromShape, err := reg.ShapeFor(meta.DocType, meta.SchemaVersion)
	if err != nil {
		return nil, document.MigrationStep{}, err
	}
	path, err := reg.FindPath(fromShape, targetShape)
	if err != nil {
		return nil, document.MigrationStep{}, err
	}

	lifted := document.CloneTree(data)
	var last document.MigrationStep
	for _, step := range path {
		lifted, err = step.Apply(lifted)
		if err != nil {
			return nil, document.MigrationStep{}, err
		}
		last = step
	}
	return lifted, last, nil
}

func (b Bundle) lowestSnapshot() (document.Snapshot, bool) {
	return (document.Bundle{Current: b.Current, Snapshots: b.Snapshots}).LowestSnapshot()
}

func (b Bundle) highestSnapshot() (document.Snapshot, bool) {
	return (document.Bundle{Current: b.Current, Snapshots: b.Snapshots}).HighestSnapshot()
}
