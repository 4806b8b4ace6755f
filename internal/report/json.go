package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/renameio/v2"

	hklog "github.com/kkin1995/healthkit/internal/log"
	"github.com/kkin1995/healthkit/internal/stats"
)

// Summary is the JSON report envelope.
type Summary struct {
	GeneratedAt time.Time              `json:"generated_at"`
	ExportDate  *time.Time             `json:"export_date,omitempty"`
	Records     int                    `json:"records"`
	Duplicates  int                    `json:"duplicates"`
	Skipped     int                    `json:"skipped"`
	Daily       []stats.DailyAggregate `json:"daily"`
	Workouts    []stats.WorkoutSummary `json:"workouts"`
}

// WriteSummaryJSON writes the summary report to path atomically.
func WriteSummaryJSON(ctx context.Context, path string, s Summary) error {
	logger := hklog.WithComponentFromContext(ctx, "report")

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending JSON: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending JSON")
		}
	}()

	enc := json.NewEncoder(pending)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode summary JSON: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace JSON: %w", err)
	}

	logger.Info().
		Str("event", "report.write").
		Str(hklog.FieldPath, path).
		Msg("summary JSON written")
	return nil
}
