// SPDX-License-Identifier: MIT
package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kkin1995/healthkit/internal/hktype"
)

var typesKind string

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List stored record types with row counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var kind hktype.Kind
		switch typesKind {
		case "":
		case string(hktype.Quantity), string(hktype.Category):
			kind = hktype.Kind(typesKind)
		default:
			return hktype.ErrUnknownKind
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

		types, err := st.Types(ctx, kind)
		if err != nil {
			return fmt.Errorf("list types: %w", err)
		}

		yellow := color.New(color.FgYellow).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n", yellow("Record Types:"))
		if len(types) == 0 {
			fmt.Printf("  %s\n\n", gray("No records stored. Run: hkctl import"))
			return nil
		}
		for _, tc := range types {
			fmt.Printf("  %-40s %-10s %8d\n", tc.Type, gray(string(tc.Kind)), tc.Count)
		}
		fmt.Printf("\n  Total: %d types\n\n", len(types))
		return nil
	},
}

func init() {
	typesCmd.Flags().StringVar(&typesKind, "kind", "", "filter by kind (Quantity or Category)")
	rootCmd.AddCommand(typesCmd)
}
