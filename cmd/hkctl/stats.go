// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	statsType string
	statsFrom string
	statsTo   string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show daily aggregates for one record type",
	Long: `Roll up stored records of one type into per-day count, sum, min, max
and mean. Date bounds are inclusive and use YYYY-MM-DD.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if statsType == "" {
			return fmt.Errorf("--type is required (see: hkctl types)")
		}
		from, to, err := parseDateBounds(statsFrom, statsTo)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		rows, err := st.DailyAggregates(ctx, statsType, from, to)
		if err != nil {
			return fmt.Errorf("daily aggregates: %w", err)
		}

		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s %s\n\n", yellow("Daily Stats:"), statsType)
		if len(rows) == 0 {
			fmt.Printf("  %s\n\n", gray("No data in range"))
			return nil
		}

		fmt.Printf("  %-12s %8s %12s %12s %12s %12s\n", "Date", "Count", "Sum", "Min", "Max", "Mean")
		for _, r := range rows {
			fmt.Printf("  %-12s %8d %12s %12s %12s %12s\n",
				r.Date, r.Count,
				formatStat(r.Sum), formatStat(r.Min), formatStat(r.Max), formatStat(r.Mean))
		}
		fmt.Printf("\n  %d days\n\n", len(rows))
		return nil
	},
}

// parseDateBounds turns YYYY-MM-DD flags into an inclusive range. The end
// bound extends to the last instant of that day.
func parseDateBounds(fromStr, toStr string) (time.Time, time.Time, error) {
	var from, to time.Time
	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return from, to, fmt.Errorf("invalid --from %q: use YYYY-MM-DD", fromStr)
		}
		from = t
	}
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return from, to, fmt.Errorf("invalid --to %q: use YYYY-MM-DD", toStr)
		}
		to = t.Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return from, to, fmt.Errorf("--to is before --from")
	}
	return from, to, nil
}

func formatStat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func init() {
	statsCmd.Flags().StringVar(&statsType, "type", "", "record type, e.g. StepCount")
	statsCmd.Flags().StringVar(&statsFrom, "from", "", "start date (YYYY-MM-DD)")
	statsCmd.Flags().StringVar(&statsTo, "to", "", "end date (YYYY-MM-DD), inclusive")
	rootCmd.AddCommand(statsCmd)
}
