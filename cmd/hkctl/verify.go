// SPDX-License-Identifier: MIT
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kkin1995/healthkit/internal/store"
)

var verifyFull bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the database for corruption and show stored counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		mode := "quick"
		if verifyFull {
			mode = "full"
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		fmt.Printf("\n%s %s (%s check)\n\n", yellow("Verifying:"), cfg.DBPath, mode)

		issues, err := store.VerifyIntegrity(cfg.DBPath, mode)
		if err != nil {
			return fmt.Errorf("verify integrity: %w", err)
		}
		if len(issues) > 0 {
			fmt.Printf("%s database integrity check failed\n", red("✗"))
			for _, issue := range issues {
				fmt.Printf("  - %s\n", issue)
			}
			fmt.Println()
			return fmt.Errorf("database at %s is corrupted", cfg.DBPath)
		}
		fmt.Printf("%s integrity ok\n", green("✓"))

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		records, workouts, err := st.Counts(ctx)
		if err != nil {
			return fmt.Errorf("count rows: %w", err)
		}
		fmt.Printf("  Records:  %d\n", records)
		fmt.Printf("  Workouts: %d\n", workouts)

		if last, err := st.LastImport(ctx); err == nil && last != nil {
			fmt.Printf("  Last import: %s", last.StartedAt.Format("2006-01-02 15:04:05"))
			if last.Error != "" {
				fmt.Printf(" (%s)", red("failed"))
			}
			fmt.Println()
		}
		fmt.Println()
		return nil
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyFull, "full", false, "run a full integrity check instead of quick")
	rootCmd.AddCommand(verifyCmd)
}
