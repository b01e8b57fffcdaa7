package main

import (
	"github.com/spf13/cobra"
)

var planUpgradeOutFile string

var planUpgradeCmd = &cobra.Command{
	Use:   "plan-upgrade",
	Short: "Classify documents against their doc_type's latest registered version",
	Long: `plan-upgrade reads the manifest, decodes every matched document, and
produces a Plan classifying each into SKIP, STANDARD_UPGRADE,
THREE_WAY_MERGE, or QUARANTINE. It performs no writes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if manifestPath == "" {
			fatalf("plan-upgrade: --manifest is required")
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

		bundleDocs := toVersionedDocuments(docs)
		snapshotsByID, err := snapshotsFor(k, docs)
		if err != nil {
			return err
		}

		plan, err := k.PlanUpgrade(bundleDocs, snapshotsByID)
		if err != nil {
			return err
		}
		if log != nil {
			log.Infof("plan-upgrade: classified %d document(s) against target %s", len(plan.Actions), plan.Header.TargetVersion)
		}

		if planUpgradeOutFile != "" {
			if err := writePlanFile(planUpgradeOutFile, plan); err != nil {
				return err
			}
		}
		printPlan(plan)
		return nil
	},
}

func init() {
	planUpgradeCmd.Flags().StringVar(&planUpgradeOutFile, "out", "", "write the generated plan to this file as JSON")
	rootCmd.AddCommand(planUpgradeCmd)
}
