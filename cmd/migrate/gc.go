package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/gloudx/docmigrate/internal/kernel"
	"github.com/gloudx/docmigrate/internal/snapshotstore"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete obsolete snapshots for every document in the manifest",
	Long: `gc reads the manifest, decodes each document's current schema
version, and removes that document's snapshots at or below the live
version. The snapshot immediately above the live version (the one a
future rollback would need) is always preserved, and a snapshot that
fails integrity verification is never deleted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if manifestPath == "" {
			fatalf("gc: --manifest is required")
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

		results := make(map[string]snapshotstore.GCResult, len(docs))
		for _, d := range docs {
			basename := kernel.SnapshotBasenameFor(d.path)
			res, err := k.GC(basename, d.doc.Meta.SchemaVersion)
			if err != nil {
				return fmt.Errorf("gc %s: %w", d.path, err)
			}
			results[d.path] = res
			if log != nil {
				log.Infof("gc %s: deleted=%d preserved=%d verification_fails=%d", d.path, len(res.Deleted), len(res.Preserved), len(res.VerificationFails))
			}
		}

		if jsonOutput {
			raw, err := json.Marshal(results)
			if err != nil {
				return err
			}
			os.Stdout.Write(pretty.Pretty(raw))
			return nil
		}

		for path, res := range results {
			fmt.Printf("%s: deleted=%d preserved=%d verification_fails=%d\n",
				path, len(res.Deleted), len(res.Preserved), len(res.VerificationFails))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(gcCmd)
}
