package main

import (
	"github.com/spf13/cobra"
)

var (
	retryResultFile string
	retryOutFile    string
)

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Build a fresh plan covering only the failed identifiers from a previous run",
	Long: `retry reads a previous MigrationResult, re-resolves target versions
from the live registry for each previously-failed document (rather than
reusing whatever target the original plan used), and emits a new Plan
scoped to exactly those identifiers. The quarantined copies it produced
are not consulted: the source files must already have been restored or
fixed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if retryResultFile == "" {
			fatalf("retry: --result is required")
		}
		if manifestPath == "" {
			fatalf("retry: --manifest is required")
		}

		previous, err := readResultFile(retryResultFile)
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

		plan, err := k.Retry(previous, toVersionedDocuments(docs), snapshotsByID)
		if err != nil {
			return err
		}
		if log != nil {
			log.Infof("retry plan covers %d previously-failed identifier(s)", len(plan.Actions))
		}

		if retryOutFile != "" {
			if err := writePlanFile(retryOutFile, plan); err != nil {
				return err
			}
		}
		printPlan(plan)
		return nil
	},
}

func init() {
	retryCmd.Flags().StringVar(&retryResultFile, "result", "", "path to a MigrationResult file from a previous run")
	retryCmd.Flags().StringVar(&retryOutFile, "out", "", "write the generated plan to this file as JSON")
	rootCmd.AddCommand(retryCmd)
}
