// Command migrate is the reference CLI driver for the docmigrate kernel
// (spec.md §6's "CLI surface (reference)"). It is deliberately thin glue:
// argument parsing, manifest-driven file discovery, and JSON
// serialization of Plan/MigrationResult live here; none of the migration
// semantics do.
//
// One *cobra.Command per subcommand file, mirroring cmd/bd's layout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gloudx/docmigrate/internal/config"
	"github.com/gloudx/docmigrate/internal/logging"
)

var (
	jsonOutput   bool
	manifestPath string
	log          *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Versioned document migration kernel CLI",
	Long: `migrate drives the docmigrate kernel: plan and execute upgrades,
rollbacks, retries, and garbage collection over a collection of
versioned JSON documents.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if manifestPath != "" {
			config.Set("manifest", manifestPath)
		}

		level := logging.Level(config.GetString("log-level"))
		logger, err := logging.New(logging.Config{
			Level:    level,
			ToFile:   config.GetBool("log-to-file"),
			FilePath: config.GetString("log-file"),
		})
		if err != nil {
			return err
		}
		log = logger
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest", "", "path to the discovery manifest file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	if log != nil {
		log.Errorf(format, args...)
	} else {
		fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	}
	os.Exit(1)
}
