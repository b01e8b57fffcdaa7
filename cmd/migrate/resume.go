package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gloudx/docmigrate/internal/config"
)

var resumeOutFile string

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Restore files from an interrupted migration's transaction journal",
	Long: `resume looks for an InProgress journal under the configured
transaction directory, restores every backed-up-or-later file to its
pre-migration state, marks the transaction RolledBack, and cleans up the
backup directory and journal file. It does not replan or re-execute; run
plan-upgrade/migrate again afterward if the migration should be retried.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := buildRegistry()
		if err != nil {
			return err
		}
		k, err := buildKernel(reg)
		if err != nil {
			return err
		}
		if log != nil {
			log.Infof("resuming interrupted transaction under %s", config.TransactionDir())
		}
		result, err := k.Resume()
		if err != nil {
			return err
		}

		if resumeOutFile != "" {
			if err := writeResultFile(resumeOutFile, result); err != nil {
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
	resumeCmd.Flags().StringVar(&resumeOutFile, "out", "", "write the rollback result to this file as JSON")
	rootCmd.AddCommand(resumeCmd)
}
