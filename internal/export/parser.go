package export

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kkin1995/healthkit/internal/hktype"
	hklog "github.com/kkin1995/healthkit/internal/log"
	"golang.org/x/time/rate"
)

// DefaultMaxBytes caps export.xml input. Real exports run to hundreds of
// megabytes; anything past this is treated as hostile.
const DefaultMaxBytes int64 = 1 << 30 // 1 GiB

// ErrTooLarge is returned when the input exceeds the configured byte limit.
var ErrTooLarge = errors.New("export: input exceeds size limit")

// Sink receives parsed elements as the stream is decoded. Nil callbacks are
// skipped. A callback error aborts the parse.
type Sink struct {
	Record  func(Record) error
	Workout func(Workout) error
	Summary func(ActivitySummary) error
}

// Options configures a parse run.
type Options struct {
	// MaxBytes caps the input size. Zero means DefaultMaxBytes.
	MaxBytes int64
}

// ParseFile opens and parses an export.xml file.
func ParseFile(ctx context.Context, path string, opts Options, sink Sink) (*Result, error) {
	path = filepath.Clean(path)
	f, err := os.Open(path) // #nosec G304 -- path originates from configuration
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return Parse(ctx, f, opts, sink)
}

// Parse stream-decodes an Apple Health export from r.
//
// Decoding is strict and entity expansion is disabled, so XXE and entity
// bombs are rejected. Record, Workout and ActivitySummary elements are
// delivered to the sink; anything else is consumed and counted.
func Parse(ctx context.Context, r io.Reader, opts Options, sink Sink) (*Result, error) {
	logger := hklog.WithComponentFromContext(ctx, "export")

	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	dec := xml.NewDecoder(&cappedReader{r: r, remaining: maxBytes})
	dec.Strict = true
	// Disable entity expansion to prevent XXE attacks
	dec.Entity = make(map[string]string)

	res := &Result{}
	progress := rate.NewLimiter(rate.Every(5*time.Second), 1)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, ErrTooLarge) {
				return nil, ErrTooLarge
			}
			return nil, fmt.Errorf("decode export: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "HealthData", "Me":
			// container / profile metadata, descend or ignore
			if se.Name.Local == "Me" {
				if err := dec.Skip(); err != nil {
					return nil, fmt.Errorf("decode export: %w", err)
				}
			}
		case "ExportDate":
			if v := attr(se, "value"); v != "" {
				if ts, err := time.Parse(AppleTimeLayout, v); err == nil {
					res.ExportDate = ts
				}
			}
			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("decode export: %w", err)
			}
		case "Record":
			rec, ok := parseRecord(se)
			if !ok {
				res.Skipped++
			} else if sink.Record != nil {
				if err := sink.Record(rec); err != nil {
					return nil, fmt.Errorf("record sink: %w", err)
				}
				res.Records++
			} else {
				res.Records++
			}
			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("decode export: %w", err)
			}
			if progress.Allow() {
				logger.Debug().
					Str("event", "export.progress").
					Int("records", res.Records).
					Int("skipped", res.Skipped).
					Msg("parsing export")
			}
		case "Workout":
			w, ok := parseWorkout(se)
			if !ok {
				res.Skipped++
			} else if sink.Workout != nil {
				if err := sink.Workout(w); err != nil {
					return nil, fmt.Errorf("workout sink: %w", err)
				}
				res.Workouts++
			} else {
				res.Workouts++
			}
			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("decode export: %w", err)
			}
		case "ActivitySummary":
			s, ok := parseSummary(se)
			if !ok {
				res.Skipped++
			} else if sink.Summary != nil {
				if err := sink.Summary(s); err != nil {
					return nil, fmt.Errorf("summary sink: %w", err)
				}
				res.Summaries++
			} else {
				res.Summaries++
			}
			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("decode export: %w", err)
			}
		default:
			res.Unrecognized++
			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("decode export: %w", err)
			}
		}
	}

	logger.Info().
		Str("event", "export.parsed").
		Int(hklog.FieldRecords, res.Records).
		Int(hklog.FieldWorkouts, res.Workouts).
		Int("summaries", res.Summaries).
		Int(hklog.FieldSkipped, res.Skipped).
		Int("unrecognized", res.Unrecognized).
		Msg("export parsed")
	return res, nil
}

func parseRecord(se xml.StartElement) (Record, bool) {
	rec := Record{
		Type:          attr(se, "type"),
		SourceName:    hktype.NormalizeSource(attr(se, "sourceName")),
		SourceVersion: attr(se, "sourceVersion"),
		Unit:          attr(se, "unit"),
		Value:         attr(se, "value"),
	}
	if rec.Type == "" {
		return Record{}, false
	}

	var ok bool
	if rec.StartDate, ok = parseAppleTime(attr(se, "startDate")); !ok {
		return Record{}, false
	}
	if rec.EndDate, ok = parseAppleTime(attr(se, "endDate")); !ok {
		return Record{}, false
	}
	rec.CreationDate = parseOptionalAppleTime(attr(se, "creationDate"))

	if f, err := strconv.ParseFloat(rec.Value, 64); err == nil {
		rec.NumericValue = &f
	}
	return rec, true
}

func parseWorkout(se xml.StartElement) (Workout, bool) {
	w := Workout{
		ActivityType:      attr(se, "workoutActivityType"),
		SourceName:        hktype.NormalizeSource(attr(se, "sourceName")),
		DurationUnit:      attr(se, "durationUnit"),
		TotalDistanceUnit: attr(se, "totalDistanceUnit"),
		EnergyBurnedUnit:  attr(se, "totalEnergyBurnedUnit"),
	}
	if w.ActivityType == "" {
		return Workout{}, false
	}

	var ok bool
	if w.StartDate, ok = parseAppleTime(attr(se, "startDate")); !ok {
		return Workout{}, false
	}
	if w.EndDate, ok = parseAppleTime(attr(se, "endDate")); !ok {
		return Workout{}, false
	}
	w.CreationDate = parseOptionalAppleTime(attr(se, "creationDate"))

	w.Duration, _ = strconv.ParseFloat(attr(se, "duration"), 64)
	w.TotalDistance, _ = strconv.ParseFloat(attr(se, "totalDistance"), 64)
	w.TotalEnergyBurned, _ = strconv.ParseFloat(attr(se, "totalEnergyBurned"), 64)
	return w, true
}

func parseSummary(se xml.StartElement) (ActivitySummary, bool) {
	s := ActivitySummary{
		Date:             attr(se, "dateComponents"),
		ActiveEnergyUnit: attr(se, "activeEnergyBurnedUnit"),
	}
	if s.Date == "" {
		return ActivitySummary{}, false
	}
	s.ActiveEnergy, _ = strconv.ParseFloat(attr(se, "activeEnergyBurned"), 64)
	s.ActiveEnergyGoal, _ = strconv.ParseFloat(attr(se, "activeEnergyBurnedGoal"), 64)
	s.ExerciseMinutes, _ = strconv.ParseFloat(attr(se, "appleExerciseTime"), 64)
	s.ExerciseGoal, _ = strconv.ParseFloat(attr(se, "appleExerciseTimeGoal"), 64)
	s.StandHours, _ = strconv.ParseFloat(attr(se, "appleStandHours"), 64)
	s.StandGoal, _ = strconv.ParseFloat(attr(se, "appleStandHoursGoal"), 64)
	return s, true
}

func attr(se xml.StartElement, name string) string {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func parseAppleTime(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(AppleTimeLayout, v)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func parseOptionalAppleTime(v string) *time.Time {
	if ts, ok := parseAppleTime(v); ok {
		return &ts
	}
	return nil
}

// cappedReader returns ErrTooLarge once more than remaining bytes have been read.
type cappedReader struct {
	r         io.Reader
	remaining int64
}

func (c *cappedReader) Read(p []byte) (int, error) {
	if c.remaining <= 0 {
		// The budget is spent. An input of exactly the limit is still
		// valid, so probe for one more byte and let EOF pass through.
		var probe [1]byte
		n, err := c.r.Read(probe[:])
		if n > 0 {
			return 0, ErrTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	return n, err
}
