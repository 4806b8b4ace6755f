// SPDX-License-Identifier: MIT
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kkin1995/healthkit/internal/dedup"
	"github.com/kkin1995/healthkit/internal/jobs"
)

var importExportPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Parse an export.xml and load it into the local database",
	Long: `Parse an Apple Health export.xml, deduplicate against previous imports,
store cleaned records and workouts in SQLite, and write daily CSV and JSON
summary reports.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if importExportPath != "" {
			cfg.ExportPath = importExportPath
		}

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		index, err := dedup.New(cfg.DedupBackend, cfg.DedupDir)
		if err != nil {
			return fmt.Errorf("open dedup index: %w", err)
		}
		defer func() { _ = index.Close() }()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("=== Health Import ==="))
		fmt.Printf("  Export:   %s\n", cfg.ExportPath)
		fmt.Printf("  Database: %s\n", cfg.DBPath)
		fmt.Printf("  Reports:  %s\n\n", cfg.ReportDir)

		status, err := jobs.Import(ctx, jobs.Config{
			ExportPath:     cfg.ExportPath,
			ReportDir:      cfg.ReportDir,
			MaxExportBytes: cfg.MaxExportBytes,
		}, jobs.Deps{Store: st, Index: index})
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("%s import completed\n\n", green("✓"))
		if status.ExportDate != nil {
			fmt.Printf("  Export date:  %s\n", status.ExportDate.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("  Records:      %d\n", status.Records)
		fmt.Printf("  Workouts:     %d\n", status.Workouts)
		fmt.Printf("  Duplicates:   %s\n", gray(fmt.Sprintf("%d", status.Duplicates)))
		fmt.Printf("  Skipped:      %s\n", gray(fmt.Sprintf("%d", status.Skipped)))
		if status.Unrecognized > 0 {
			fmt.Printf("  Unrecognized: %s\n", gray(fmt.Sprintf("%d", status.Unrecognized)))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importExportPath, "export", "", "override the export.xml path")
	rootCmd.AddCommand(importCmd)
}
