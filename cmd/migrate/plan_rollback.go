package main

import (
	"github.com/spf13/cobra"

	"github.com/gloudx/docmigrate/internal/document"
)

var (
	planRollbackTarget  string
	planRollbackOutFile string
)

var planRollbackCmd = &cobra.Command{
	Use:   "plan-rollback",
	Short: "Classify documents against an explicit target version for rollback",
	Long: `plan-rollback reads the manifest, decodes every matched document, and
produces a Plan classifying each into SKIP, STANDARD_DOWNGRADE, or
QUARANTINE against an explicitly supplied --target-version. It performs
no writes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if manifestPath == "" {
			fatalf("plan-rollback: --manifest is required")
		}
		if planRollbackTarget == "" {
			fatalf("plan-rollback: --target-version is required")
		}

		m, paths, err := loadManifest(manifestPath)
		if err != nil {
			return err
		}
		docs, err := loadDocuments(paths, m.DocType)
		if err != nil {
			return err
		}

		reg, err := buildRegistry()
		if err != nil {
			return err
		}
		k, err := buildKernel(reg)
		if err != nil {
			return err
		}

		snapshotsByID, err := snapshotsFor(k, docs)
		if err != nil {
			return err
		}

		plan, err := k.PlanRollback(toVersionedDocuments(docs), snapshotsByID, document.SchemaVersion(planRollbackTarget))
		if err != nil {
			return err
		}
		if log != nil {
			log.Infof("plan-rollback: classified %d document(s) against target %s", len(plan.Actions), planRollbackTarget)
		}

		if planRollbackOutFile != "" {
			if err := writePlanFile(planRollbackOutFile, plan); err != nil {
				return err
			}
		}
		printPlan(plan)
		return nil
	},
}

func init() {
	planRollbackCmd.Flags().StringVar(&planRollbackTarget, "target-version", "", "schema version to roll back to")
	planRollbackCmd.Flags().StringVar(&planRollbackOutFile, "out", "", "write the generated plan to this file as JSON")
	rootCmd.AddCommand(planRollbackCmd)
}
