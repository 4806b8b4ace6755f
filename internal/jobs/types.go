// SPDX-License-Identifier: MIT

package jobs

import (
	"time"
)

// Status represents the outcome of the most recent import job.
type Status struct {
	ID           string     `json:"id"`
	LastRun      time.Time  `json:"last_run"`
	ExportDate   *time.Time `json:"export_date,omitempty"`
	Records      int        `json:"records"`
	Workouts     int        `json:"workouts"`
	Duplicates   int        `json:"duplicates"`
	Skipped      int        `json:"skipped"`
	Unrecognized int        `json:"unrecognized"`
	Error        string     `json:"error,omitempty"`
}

// Config holds configuration for import operations.
type Config struct {
	ExportPath     string
	ReportDir      string
	MaxExportBytes int64

	// BatchSize controls how many records are buffered before a store
	// transaction. Zero selects the default.
	BatchSize int
}

const defaultBatchSize = 2000
