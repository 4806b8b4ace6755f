// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kkin1995/healthkit/internal/config"
	hklog "github.com/kkin1995/healthkit/internal/log"
	"github.com/kkin1995/healthkit/internal/store"
)

var (
	version = "v0.1.0"

	flagConfig string
)

var rootCmd = &cobra.Command{
	Use:   "hkctl",
	Short: "Manage a local Apple Health export pipeline",
	Long: `hkctl works directly against the healthkit data directory: import an
export.xml, inspect stored types and daily statistics, write CSV reports,
and verify database integrity.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (YAML)")
}

// loadConfig resolves the effective configuration the same way the daemon
// does: ENV > file > defaults.
func loadConfig() (config.AppConfig, error) {
	cfg, err := config.NewLoader(strings.TrimSpace(flagConfig), version).Load()
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg config.AppConfig) (*store.Store, error) {
	st, err := store.New(ctx, cfg.DBPath, store.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", cfg.DBPath, err)
	}
	return st, nil
}

func main() {
	// The CLI prints its own output; keep structured logs quiet unless
	// asked for.
	hklog.Configure(hklog.Config{
		Level:   config.ParseString("HK_LOG_LEVEL", "warn"),
		Service: "hkctl",
		Version: version,
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}
