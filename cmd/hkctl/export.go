// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kkin1995/healthkit/internal/export"
	"github.com/kkin1995/healthkit/internal/report"
)

var (
	exportOut  string
	exportFile string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Parse an export.xml and write all records to CSV",
	Long: `Parse an Apple Health export.xml without touching the database and
write every cleaned record to a flat CSV file. Useful for one-off analysis
in pandas or a spreadsheet.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		src := cfg.ExportPath
		if exportFile != "" {
			src = exportFile
		}
		out := exportOut
		if out == "" {
			out = filepath.Join(cfg.ReportDir, "records.csv")
		}

		var records []export.Record
		result, err := export.ParseFile(ctx, src, export.Options{MaxBytes: cfg.MaxExportBytes}, export.Sink{
			Record: func(rec export.Record) error {
				records = append(records, rec)
				return nil
			},
		})
		if err != nil {
			return fmt.Errorf("parse %s: %w", src, err)
		}

		if err := report.WriteRecordsCSV(ctx, out, records); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s wrote %d records to %s\n", green("✓"), len(records), out)
		fmt.Printf("  Skipped: %s  Unrecognized: %s\n\n",
			gray(fmt.Sprintf("%d", result.Skipped)),
			gray(fmt.Sprintf("%d", result.Unrecognized)))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFile, "export", "", "override the export.xml path")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output CSV path (default <reportDir>/records.csv)")
	rootCmd.AddCommand(exportCmd)
}
