// SPDX-License-Identifier: MIT

package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kkin1995/healthkit/internal/dedup"
	"github.com/kkin1995/healthkit/internal/export"
	"github.com/kkin1995/healthkit/internal/hktype"
	hklog "github.com/kkin1995/healthkit/internal/log"
	"github.com/kkin1995/healthkit/internal/metrics"
	"github.com/kkin1995/healthkit/internal/report"
	"github.com/kkin1995/healthkit/internal/stats"
	"github.com/kkin1995/healthkit/internal/store"
)

// Deps are the collaborators an import run needs. All fields are required.
type Deps struct {
	Store *store.Store
	Index dedup.Index
}

// Import performs the complete import cycle: parse export.xml, drop
// duplicates, persist the remainder, and write the report files.
func Import(ctx context.Context, cfg Config, deps Deps) (*Status, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if deps.Store == nil || deps.Index == nil {
		return nil, fmt.Errorf("import: missing store or dedup index")
	}

	importID := uuid.New().String()
	ctx = hklog.ContextWithImportID(ctx, importID)
	logger := hklog.WithComponentFromContext(ctx, "jobs")

	logger.Info().
		Str("event", "import.start").
		Str(hklog.FieldExportPath, cfg.ExportPath).
		Msg("starting import")

	started := time.Now()
	status, err := runImport(ctx, cfg, deps, importID, started)

	imp := store.Import{
		ID:         importID,
		ExportPath: cfg.ExportPath,
		StartedAt:  started,
	}
	finished := time.Now()
	imp.FinishedAt = &finished
	if status != nil {
		imp.Records = status.Records
		imp.Workouts = status.Workouts
		imp.Duplicates = status.Duplicates
		imp.Skipped = status.Skipped
	}
	if err != nil {
		imp.Error = err.Error()
	}
	if berr := deps.Store.RecordImport(ctx, imp); berr != nil {
		logger.Error().
			Err(berr).
			Str("event", "import.bookkeeping_failed").
			Msg("failed to record import outcome")
	}

	if err != nil {
		logger.Error().
			Err(err).
			Str("event", "import.failed").
			Msg("import failed")
		return nil, err
	}

	metrics.ObserveImportDuration(time.Since(started).Seconds())
	metrics.RecordImportSuccess(float64(finished.Unix()))
	if records, workouts, cerr := deps.Store.Counts(ctx); cerr == nil {
		metrics.RecordStoredCounts(records, workouts)
	}

	logger.Info().
		Str("event", "import.success").
		Int(hklog.FieldRecords, status.Records).
		Int(hklog.FieldWorkouts, status.Workouts).
		Int(hklog.FieldDuplicates, status.Duplicates).
		Int(hklog.FieldSkipped, status.Skipped).
		Dur("duration", time.Since(started)).
		Msg("import complete")

	return status, nil
}

func runImport(ctx context.Context, cfg Config, deps Deps, importID string, started time.Time) (*Status, error) {
	logger := hklog.WithComponentFromContext(ctx, "jobs")

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	agg := stats.NewAggregator()
	ing := &ingestor{
		ctx:       ctx,
		deps:      deps,
		agg:       agg,
		batchSize: batchSize,
	}

	sink := export.Sink{
		Record:  ing.record,
		Workout: ing.workout,
	}

	result, err := export.ParseFile(ctx, cfg.ExportPath, export.Options{MaxBytes: cfg.MaxExportBytes}, sink)
	if err != nil {
		metrics.IncImportFailure("parse")
		return nil, fmt.Errorf("parse export: %w", err)
	}

	if err := ing.flush(); err != nil {
		metrics.IncImportFailure("store")
		return nil, fmt.Errorf("store records: %w", err)
	}

	metrics.AddRecordsRejected(result.Skipped)

	status := &Status{
		ID:           importID,
		LastRun:      started,
		Records:      ing.stored,
		Workouts:     ing.storedWorkouts,
		Duplicates:   ing.duplicates,
		Skipped:      result.Skipped,
		Unrecognized: result.Unrecognized,
	}
	if !result.ExportDate.IsZero() {
		d := result.ExportDate
		status.ExportDate = &d
	}

	if err := writeReports(ctx, cfg, agg, status); err != nil {
		metrics.IncImportFailure("report")
		return nil, fmt.Errorf("write reports: %w", err)
	}

	logger.Debug().
		Str("event", "import.parsed").
		Int("unrecognized", result.Unrecognized).
		Msg("export parsed")

	return status, nil
}

// ingestor accumulates parsed elements into batches, drops duplicates via
// the fingerprint index, and flushes batches into the store.
type ingestor struct {
	ctx       context.Context
	deps      Deps
	agg       *stats.Aggregator
	batchSize int

	records        []export.Record
	recordFPs      []string
	workouts       []export.Workout
	workoutFPs     []string
	kindCounts     map[hktype.Kind]int
	duplicates     int
	stored         int
	storedWorkouts int
}

func (g *ingestor) record(rec export.Record) error {
	fp := dedup.Fingerprint(rec)
	seen, err := g.deps.Index.Seen(fp)
	if err != nil {
		return fmt.Errorf("dedup lookup: %w", err)
	}
	if seen {
		g.duplicates++
		metrics.AddDuplicatesSkipped(1)
		return nil
	}

	g.records = append(g.records, rec)
	g.recordFPs = append(g.recordFPs, fp)
	if g.kindCounts == nil {
		g.kindCounts = make(map[hktype.Kind]int)
	}
	g.kindCounts[hktype.KindOf(rec.Type)]++
	g.agg.AddRecord(rec)

	if len(g.records) >= g.batchSize {
		return g.flushRecords()
	}
	return nil
}

func (g *ingestor) workout(w export.Workout) error {
	fp := dedup.WorkoutFingerprint(w)
	seen, err := g.deps.Index.Seen(fp)
	if err != nil {
		return fmt.Errorf("dedup lookup: %w", err)
	}
	if seen {
		g.duplicates++
		metrics.AddDuplicatesSkipped(1)
		return nil
	}

	g.workouts = append(g.workouts, w)
	g.workoutFPs = append(g.workoutFPs, fp)
	g.agg.AddWorkout(w)

	if len(g.workouts) >= g.batchSize {
		return g.flushWorkouts()
	}
	return nil
}

func (g *ingestor) flushRecords() error {
	if len(g.records) == 0 {
		return nil
	}
	n, err := g.deps.Store.InsertRecords(g.ctx, g.records)
	if err != nil {
		return err
	}
	if err := g.deps.Index.Mark(g.recordFPs); err != nil {
		return fmt.Errorf("dedup mark: %w", err)
	}
	g.stored += n
	for kind, count := range g.kindCounts {
		metrics.AddRecordsIngested(string(kind), count)
	}
	g.kindCounts = nil
	g.records = g.records[:0]
	g.recordFPs = g.recordFPs[:0]
	return nil
}

func (g *ingestor) flushWorkouts() error {
	if len(g.workouts) == 0 {
		return nil
	}
	n, err := g.deps.Store.InsertWorkouts(g.ctx, g.workouts)
	if err != nil {
		return err
	}
	if err := g.deps.Index.Mark(g.workoutFPs); err != nil {
		return fmt.Errorf("dedup mark: %w", err)
	}
	g.storedWorkouts += n
	g.workouts = g.workouts[:0]
	g.workoutFPs = g.workoutFPs[:0]
	return nil
}

func (g *ingestor) flush() error {
	if err := g.flushRecords(); err != nil {
		return err
	}
	return g.flushWorkouts()
}

func writeReports(ctx context.Context, cfg Config, agg *stats.Aggregator, status *Status) error {
	logger := hklog.WithComponentFromContext(ctx, "jobs")

	daily := agg.Daily()
	workouts := agg.Workouts()

	dailyPath := filepath.Join(cfg.ReportDir, "daily.csv")
	if err := report.WriteDailyCSV(ctx, dailyPath, daily); err != nil {
		return err
	}

	summary := report.Summary{
		GeneratedAt: time.Now(),
		ExportDate:  status.ExportDate,
		Records:     status.Records,
		Duplicates:  status.Duplicates,
		Skipped:     status.Skipped,
		Daily:       daily,
		Workouts:    workouts,
	}
	summaryPath := filepath.Join(cfg.ReportDir, "summary.json")
	if err := report.WriteSummaryJSON(ctx, summaryPath, summary); err != nil {
		return err
	}

	logger.Info().
		Str("event", "report.write").
		Str(hklog.FieldPath, cfg.ReportDir).
		Int("daily_rows", len(daily)).
		Msg("reports written")

	return nil
}
