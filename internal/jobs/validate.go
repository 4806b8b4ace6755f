// SPDX-License-Identifier: MIT

package jobs

import (
	"github.com/kkin1995/healthkit/internal/validate"
)

// validateConfig validates the configuration for import operations
func validateConfig(cfg Config) error {
	v := validate.New()

	v.Path("ExportPath", cfg.ExportPath)
	v.Directory("ReportDir", cfg.ReportDir, false)
	v.Positive("MaxExportBytes", cfg.MaxExportBytes)

	if !v.IsValid() {
		return v.Err()
	}

	return nil
}
