// Package stats aggregates cleaned health records into daily summaries.
package stats

import (
	"sort"

	"github.com/kkin1995/healthkit/internal/export"
	"github.com/kkin1995/healthkit/internal/hktype"
)

// DailyAggregate is one type's roll-up for one calendar day.
// Category records carry no meaningful numeric value, so only Count is set.
type DailyAggregate struct {
	Date  string      `json:"date"` // YYYY-MM-DD in the record's own zone
	Type  string      `json:"type"` // cleaned type name
	Kind  hktype.Kind `json:"kind"`
	Unit  string      `json:"unit,omitempty"`
	Count int         `json:"count"`
	Sum   float64     `json:"sum"`
	Min   float64     `json:"min"`
	Max   float64     `json:"max"`
	Mean  float64     `json:"mean"`

	numeric int // records that carried a parseable numeric value
}

// WorkoutSummary is one activity type's roll-up across all sessions.
type WorkoutSummary struct {
	ActivityType  string  `json:"activity_type"` // cleaned name
	Sessions      int     `json:"sessions"`
	TotalMinutes  float64 `json:"total_minutes"`
	TotalDistance float64 `json:"total_distance"`
	TotalEnergy   float64 `json:"total_energy"`
}

// Aggregator accumulates records incrementally so the caller can feed it
// straight from the export parser without buffering the whole file.
type Aggregator struct {
	daily    map[dailyKey]*DailyAggregate
	workouts map[string]*WorkoutSummary
}

type dailyKey struct {
	date string
	typ  string
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		daily:    make(map[dailyKey]*DailyAggregate),
		workouts: make(map[string]*WorkoutSummary),
	}
}

// AddRecord folds one record into its daily bucket. Bucketing uses the
// record's startDate in the zone it was recorded in.
func (a *Aggregator) AddRecord(rec export.Record) {
	kind, name := hktype.Split(rec.Type)
	key := dailyKey{date: rec.StartDate.Format("2006-01-02"), typ: name}

	agg, ok := a.daily[key]
	if !ok {
		agg = &DailyAggregate{Date: key.date, Type: name, Kind: kind, Unit: rec.Unit}
		a.daily[key] = agg
	}
	agg.Count++

	if rec.NumericValue == nil {
		return
	}
	v := *rec.NumericValue
	agg.numeric++
	agg.Sum += v
	if agg.numeric == 1 || v < agg.Min {
		agg.Min = v
	}
	if agg.numeric == 1 || v > agg.Max {
		agg.Max = v
	}
	agg.Mean = agg.Sum / float64(agg.numeric)
}

// AddWorkout folds one workout into its activity-type summary.
func (a *Aggregator) AddWorkout(w export.Workout) {
	name := hktype.Clean(w.ActivityType)
	s, ok := a.workouts[name]
	if !ok {
		s = &WorkoutSummary{ActivityType: name}
		a.workouts[name] = s
	}
	s.Sessions++
	s.TotalMinutes += w.Duration
	s.TotalDistance += w.TotalDistance
	s.TotalEnergy += w.TotalEnergyBurned
}

// Daily returns all daily aggregates ordered by date then type.
func (a *Aggregator) Daily() []DailyAggregate {
	out := make([]DailyAggregate, 0, len(a.daily))
	for _, agg := range a.daily {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// Workouts returns all workout summaries ordered by activity type.
func (a *Aggregator) Workouts() []WorkoutSummary {
	out := make([]WorkoutSummary, 0, len(a.workouts))
	for _, s := range a.workouts {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActivityType < out[j].ActivityType })
	return out
}
