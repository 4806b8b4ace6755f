// Package export parses Apple Health export.xml files.
package export

import "time"

// AppleTimeLayout is the timestamp layout used by Apple Health exports,
// e.g. "2023-11-05 08:41:17 +0530".
const AppleTimeLayout = "2006-01-02 15:04:05 -0700"

// Record is a single health measurement from the export.
// The device attribute is parsed for validation but intentionally not kept:
// it is free-text hardware noise with no analytical value.
type Record struct {
	// Type is the raw HealthKit identifier, e.g. "HKQuantityTypeIdentifierStepCount".
	Type string
	// SourceName is the NFC-normalized name of the recording source.
	SourceName    string
	SourceVersion string
	Unit          string
	// Value is the raw attribute value. Category records carry enumerated
	// strings here, quantity records carry decimal numbers.
	Value string
	// NumericValue is set when Value parses as a float.
	NumericValue *float64

	CreationDate *time.Time
	StartDate    time.Time
	EndDate      time.Time
}

// Workout is a single workout session from the export.
type Workout struct {
	// ActivityType is the raw identifier, e.g. "HKWorkoutActivityTypeRunning".
	ActivityType      string
	SourceName        string
	Duration          float64
	DurationUnit      string
	TotalDistance     float64
	TotalDistanceUnit string
	TotalEnergyBurned float64
	EnergyBurnedUnit  string

	CreationDate *time.Time
	StartDate    time.Time
	EndDate      time.Time
}

// ActivitySummary is one day of Apple activity-ring data.
type ActivitySummary struct {
	Date             string // "2023-11-05" date components as exported
	ActiveEnergy     float64
	ActiveEnergyGoal float64
	ExerciseMinutes  float64
	ExerciseGoal     float64
	StandHours       float64
	StandGoal        float64
	ActiveEnergyUnit string
}

// Result summarizes one parse run.
type Result struct {
	ExportDate time.Time // zero when the export carries no ExportDate element

	Records   int
	Workouts  int
	Summaries int

	// Skipped counts elements rejected for missing type or unparseable dates.
	Skipped int
	// Unrecognized counts known-but-unsupported elements (Correlation,
	// ClinicalRecord, ...) that were consumed without ingestion.
	Unrecognized int
}
