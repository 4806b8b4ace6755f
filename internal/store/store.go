package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kkin1995/healthkit/internal/export"
	"github.com/kkin1995/healthkit/internal/hktype"
)

// Store wraps the SQLite database with typed operations.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) a store at dbPath.
func New(ctx context.Context, dbPath string, cfg Config) (*Store, error) {
	db, err := Open(dbPath, cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// StoredRecord is a persisted, cleaned record.
type StoredRecord struct {
	ID            int64       `json:"id"`
	Type          string      `json:"type"` // cleaned name
	Kind          hktype.Kind `json:"kind"`
	Unit          string      `json:"unit,omitempty"`
	Value         string      `json:"value"`
	NumericValue  *float64    `json:"numeric_value,omitempty"`
	SourceName    string      `json:"source_name,omitempty"`
	SourceVersion string      `json:"source_version,omitempty"`
	StartDate     time.Time   `json:"start_date"`
	EndDate       time.Time   `json:"end_date"`
	CreationDate  *time.Time  `json:"creation_date,omitempty"`
}

// TypeCount is one distinct record type with its row count.
type TypeCount struct {
	Type  string      `json:"type"`
	Kind  hktype.Kind `json:"kind"`
	Count int64       `json:"count"`
}

// Import is one row of the imports bookkeeping table.
type Import struct {
	ID         string     `json:"id"`
	ExportPath string     `json:"export_path"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Records    int        `json:"records"`
	Workouts   int        `json:"workouts"`
	Duplicates int        `json:"duplicates"`
	Skipped    int        `json:"skipped"`
	Error      string     `json:"error,omitempty"`
}

// InsertRecords writes a batch of records in a single transaction.
// Type identifiers are cleaned on the way in.
func (s *Store) InsertRecords(ctx context.Context, recs []export.Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records
		(type, kind, unit, value, numeric_value, source_name, source_version, start_date, end_date, start_day, creation_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, rec := range recs {
		kind, name := hktype.Split(rec.Type)

		var numeric any
		if rec.NumericValue != nil {
			numeric = *rec.NumericValue
		}
		var creation any
		if rec.CreationDate != nil {
			creation = rec.CreationDate.Format(time.RFC3339)
		}

		if _, err := stmt.ExecContext(ctx,
			name, string(kind), rec.Unit, rec.Value, numeric,
			rec.SourceName, rec.SourceVersion,
			rec.StartDate.Format(time.RFC3339),
			rec.EndDate.Format(time.RFC3339),
			rec.StartDate.Format("2006-01-02"),
			creation,
		); err != nil {
			return 0, fmt.Errorf("insert record: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert tx: %w", err)
	}
	return inserted, nil
}

// InsertWorkouts writes a batch of workouts in a single transaction.
func (s *Store) InsertWorkouts(ctx context.Context, ws []export.Workout) (int, error) {
	if len(ws) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO workouts
		(activity_type, source_name, duration_min, distance, distance_unit, energy, energy_unit, start_date, end_date, creation_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, w := range ws {
		var creation any
		if w.CreationDate != nil {
			creation = w.CreationDate.Format(time.RFC3339)
		}
		if _, err := stmt.ExecContext(ctx,
			hktype.Clean(w.ActivityType), w.SourceName,
			w.Duration, w.TotalDistance, w.TotalDistanceUnit,
			w.TotalEnergyBurned, w.EnergyBurnedUnit,
			w.StartDate.Format(time.RFC3339),
			w.EndDate.Format(time.RFC3339),
			creation,
		); err != nil {
			return 0, fmt.Errorf("insert workout: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert tx: %w", err)
	}
	return inserted, nil
}

// Types returns the distinct cleaned type names with counts, optionally
// filtered by kind (empty kind means all kinds).
func (s *Store) Types(ctx context.Context, kind hktype.Kind) ([]TypeCount, error) {
	query := `SELECT type, kind, COUNT(*) FROM records GROUP BY type, kind ORDER BY type`
	args := []any{}
	if kind != "" {
		query = `SELECT type, kind, COUNT(*) FROM records WHERE kind = ? GROUP BY type, kind ORDER BY type`
		args = append(args, string(kind))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []TypeCount
	for rows.Next() {
		var tc TypeCount
		var k string
		if err := rows.Scan(&tc.Type, &k, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan type row: %w", err)
		}
		tc.Kind = hktype.Kind(k)
		out = append(out, tc)
	}
	return out, rows.Err()
}

// RecordQuery bounds a record listing.
type RecordQuery struct {
	Type string // cleaned type name, required
	// From and To bound the record's start day (in the record's own
	// zone) at date granularity, inclusive. Zero means unbounded.
	From  time.Time
	To    time.Time
	Limit int // capped at 10000; zero means 1000
}

// Records lists records of one type, newest first.
func (s *Store) Records(ctx context.Context, q RecordQuery) ([]StoredRecord, error) {
	if q.Type == "" {
		return nil, fmt.Errorf("record query: type is required")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 1000
	}
	if limit > 10000 {
		limit = 10000
	}

	query := `SELECT id, type, kind, unit, value, numeric_value, source_name, source_version, start_date, end_date, creation_date
		FROM records WHERE type = ?`
	args := []any{q.Type}
	// Bounds are date-granularity and match on start_day, the record's
	// start date in its own zone. Comparing start_date strings would mix
	// offset suffixes and drop records at the edges of the range.
	if !q.From.IsZero() {
		query += ` AND start_day >= ?`
		args = append(args, q.From.Format("2006-01-02"))
	}
	if !q.To.IsZero() {
		query += ` AND start_day <= ?`
		args = append(args, q.To.Format("2006-01-02"))
	}
	query += ` ORDER BY start_date DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StoredRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(rows *sql.Rows) (StoredRecord, error) {
	var rec StoredRecord
	var kind, start, end string
	var numeric sql.NullFloat64
	var creation sql.NullString

	if err := rows.Scan(&rec.ID, &rec.Type, &kind, &rec.Unit, &rec.Value, &numeric,
		&rec.SourceName, &rec.SourceVersion, &start, &end, &creation); err != nil {
		return StoredRecord{}, fmt.Errorf("scan record row: %w", err)
	}

	rec.Kind = hktype.Kind(kind)
	if numeric.Valid {
		v := numeric.Float64
		rec.NumericValue = &v
	}
	var err error
	if rec.StartDate, err = time.Parse(time.RFC3339, start); err != nil {
		return StoredRecord{}, fmt.Errorf("parse start_date: %w", err)
	}
	if rec.EndDate, err = time.Parse(time.RFC3339, end); err != nil {
		return StoredRecord{}, fmt.Errorf("parse end_date: %w", err)
	}
	if creation.Valid {
		if ts, err := time.Parse(time.RFC3339, creation.String); err == nil {
			rec.CreationDate = &ts
		}
	}
	return rec, nil
}

// DailyRow is one SQL-side daily aggregate.
type DailyRow struct {
	Date  string   `json:"date"`
	Type  string   `json:"type"`
	Count int64    `json:"count"`
	Sum   *float64 `json:"sum,omitempty"`
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
	Mean  *float64 `json:"mean,omitempty"`
}

// DailyAggregates rolls up one type per day straight in SQL.
func (s *Store) DailyAggregates(ctx context.Context, typ string, from, to time.Time) ([]DailyRow, error) {
	if typ == "" {
		return nil, fmt.Errorf("daily aggregates: type is required")
	}

	query := `SELECT start_day, type, COUNT(*),
		SUM(numeric_value), MIN(numeric_value), MAX(numeric_value), AVG(numeric_value)
		FROM records WHERE type = ?`
	args := []any{typ}
	if !from.IsZero() {
		query += ` AND start_day >= ?`
		args = append(args, from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		query += ` AND start_day <= ?`
		args = append(args, to.Format("2006-01-02"))
	}
	query += ` GROUP BY start_day ORDER BY start_day`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily aggregates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []DailyRow
	for rows.Next() {
		var row DailyRow
		var sum, min, max, mean sql.NullFloat64
		if err := rows.Scan(&row.Date, &row.Type, &row.Count, &sum, &min, &max, &mean); err != nil {
			return nil, fmt.Errorf("scan daily row: %w", err)
		}
		row.Sum = nullableFloat(sum)
		row.Min = nullableFloat(min)
		row.Max = nullableFloat(max)
		row.Mean = nullableFloat(mean)
		out = append(out, row)
	}
	return out, rows.Err()
}

// WorkoutRow is one stored workout summary row.
type WorkoutRow struct {
	ActivityType  string  `json:"activity_type"`
	Sessions      int64   `json:"sessions"`
	TotalMinutes  float64 `json:"total_minutes"`
	TotalDistance float64 `json:"total_distance"`
	TotalEnergy   float64 `json:"total_energy"`
}

// WorkoutSummaries rolls up workouts per activity type.
func (s *Store) WorkoutSummaries(ctx context.Context) ([]WorkoutRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT activity_type, COUNT(*),
		COALESCE(SUM(duration_min),0), COALESCE(SUM(distance),0), COALESCE(SUM(energy),0)
		FROM workouts GROUP BY activity_type ORDER BY activity_type`)
	if err != nil {
		return nil, fmt.Errorf("query workout summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []WorkoutRow
	for rows.Next() {
		var row WorkoutRow
		if err := rows.Scan(&row.ActivityType, &row.Sessions, &row.TotalMinutes, &row.TotalDistance, &row.TotalEnergy); err != nil {
			return nil, fmt.Errorf("scan workout row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Counts returns total persisted records and workouts.
func (s *Store) Counts(ctx context.Context) (records, workouts int64, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&records); err != nil {
		return 0, 0, fmt.Errorf("count records: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workouts`).Scan(&workouts); err != nil {
		return 0, 0, fmt.Errorf("count workouts: %w", err)
	}
	return records, workouts, nil
}

// RecordImport upserts one import bookkeeping row.
func (s *Store) RecordImport(ctx context.Context, imp Import) error {
	var finished any
	if imp.FinishedAt != nil {
		finished = imp.FinishedAt.Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO imports
		(id, export_path, started_at, finished_at, records, workouts, duplicates, skipped, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at=excluded.finished_at, records=excluded.records, workouts=excluded.workouts,
			duplicates=excluded.duplicates, skipped=excluded.skipped, error=excluded.error`,
		imp.ID, imp.ExportPath, imp.StartedAt.Format(time.RFC3339), finished,
		imp.Records, imp.Workouts, imp.Duplicates, imp.Skipped, imp.Error)
	if err != nil {
		return fmt.Errorf("record import: %w", err)
	}
	return nil
}

// LastImport returns the most recent import row, or nil when none exist.
func (s *Store) LastImport(ctx context.Context) (*Import, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, export_path, started_at, finished_at, records, workouts, duplicates, skipped, error
		FROM imports ORDER BY started_at DESC LIMIT 1`)

	var imp Import
	var started string
	var finished sql.NullString
	err := row.Scan(&imp.ID, &imp.ExportPath, &started, &finished, &imp.Records, &imp.Workouts, &imp.Duplicates, &imp.Skipped, &imp.Error)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan import row: %w", err)
	}
	if imp.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if finished.Valid {
		if ts, err := time.Parse(time.RFC3339, finished.String); err == nil {
			imp.FinishedAt = &ts
		}
	}
	return &imp, nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
