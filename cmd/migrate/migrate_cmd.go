package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gloudx/docmigrate/internal/document"
)

var (
	migratePlanFile  string
	migrateResumable bool
	migrateOutFile   string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Execute a previously generated plan against its source documents",
	Long: `migrate loads a Plan (written by plan-upgrade or plan-rollback) and a
manifest, re-decodes the same documents, and runs the plan through the
kernel. Successful items are written back to their source files and
snapshotted; failed items are quarantined when a quarantine directory is
configured. With --resumable, the whole batch is wrapped in a
crash-recoverable transaction journal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if migratePlanFile == "" {
			fatalf("migrate: --plan is required")
		}
		if manifestPath == "" {
			fatalf("migrate: --manifest is required")
		}

		plan, err := readPlanFile(migratePlanFile)
		if err != nil {
			return err
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
		bundles := buildRunnerBundles(docs, snapshotsByID)
		idToPath := identifierToFilePath(docs)

		if log != nil {
			log.Infof("executing plan against %d action(s) (resumable=%v)", len(plan.Actions), migrateResumable)
		}
		result, err := k.Execute(plan, bundles, idToPath, migrateResumable, func(r document.MigrationResult) error {
			return persistSuccesses(k, docs, r)
		})
		if err != nil {
			return err
		}

		if migrateOutFile != "" {
			if err := writeResultFile(migrateOutFile, result); err != nil {
				return err
			}
		}

		code := printResult(result)
		if code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migratePlanFile, "plan", "", "path to a plan file produced by plan-upgrade/plan-rollback")
	migrateCmd.Flags().BoolVar(&migrateResumable, "resumable", false, "wrap execution in a crash-recoverable transaction journal")
	migrateCmd.Flags().StringVar(&migrateOutFile, "out", "", "write the migration result to this file as JSON")
	rootCmd.AddCommand(migrateCmd)
}
