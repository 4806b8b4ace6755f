// Package report writes cleaned records and aggregates to disk.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/google/renameio/v2"

	"github.com/kkin1995/healthkit/internal/export"
	"github.com/kkin1995/healthkit/internal/hktype"
	hklog "github.com/kkin1995/healthkit/internal/log"
	"github.com/kkin1995/healthkit/internal/stats"
)

// recordHeader matches the original tool's CSV output: cleaned type, no
// device column, dates in the Apple export layout.
var recordHeader = []string{"type", "kind", "unit", "value", "sourceName", "sourceVersion", "creationDate", "startDate", "endDate"}

// WriteRecordsCSV writes cleaned records to path atomically. The temp file is
// fsynced before the rename so a crash never leaves a partial report.
func WriteRecordsCSV(ctx context.Context, path string, records []export.Record) error {
	logger := hklog.WithComponentFromContext(ctx, "report")

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending CSV: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending CSV")
		}
	}()

	w := csv.NewWriter(pending)
	if err := w.Write(recordHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, rec := range records {
		kind, name := hktype.Split(rec.Type)
		creation := ""
		if rec.CreationDate != nil {
			creation = rec.CreationDate.Format(export.AppleTimeLayout)
		}
		row := []string{
			name,
			string(kind),
			rec.Unit,
			rec.Value,
			rec.SourceName,
			rec.SourceVersion,
			creation,
			rec.StartDate.Format(export.AppleTimeLayout),
			rec.EndDate.Format(export.AppleTimeLayout),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace CSV: %w", err)
	}

	logger.Info().
		Str("event", "report.write").
		Str(hklog.FieldPath, path).
		Int(hklog.FieldRecords, len(records)).
		Msg("records CSV written")
	return nil
}

// WriteDailyCSV writes daily aggregates to path atomically.
func WriteDailyCSV(ctx context.Context, path string, daily []stats.DailyAggregate) error {
	logger := hklog.WithComponentFromContext(ctx, "report")

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending CSV: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending CSV")
		}
	}()

	w := csv.NewWriter(pending)
	if err := w.Write([]string{"date", "type", "kind", "unit", "count", "sum", "min", "max", "mean"}); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, d := range daily {
		row := []string{
			d.Date,
			d.Type,
			string(d.Kind),
			d.Unit,
			strconv.Itoa(d.Count),
			formatFloat(d.Sum),
			formatFloat(d.Min),
			formatFloat(d.Max),
			formatFloat(d.Mean),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace CSV: %w", err)
	}

	logger.Info().
		Str("event", "report.write").
		Str(hklog.FieldPath, path).
		Int("rows", len(daily)).
		Msg("daily aggregates CSV written")
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
