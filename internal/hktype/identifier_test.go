package hktype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantKind Kind
		wantName string
	}{
		{"quantity", "HKQuantityTypeIdentifierStepCount", Quantity, "StepCount"},
		{"quantity heart rate", "HKQuantityTypeIdentifierHeartRate", Quantity, "HeartRate"},
		{"category", "HKCategoryTypeIdentifierSleepAnalysis", Category, "SleepAnalysis"},
		{"workout", "HKWorkoutActivityTypeRunning", Workout, "Running"},
		{"unknown prefix", "HKCorrelationTypeIdentifierBloodPressure", Unknown, "HKCorrelationTypeIdentifierBloodPressure"},
		{"empty", "", Unknown, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, name := Split(tt.raw)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestFilter(t *testing.T) {
	raws := []string{
		"HKQuantityTypeIdentifierStepCount",
		"HKCategoryTypeIdentifierSleepAnalysis",
		"HKQuantityTypeIdentifierStepCount", // duplicate
		"HKQuantityTypeIdentifierBodyMass",
		"HKWorkoutActivityTypeRunning",
		"garbage",
	}

	quantities, err := Filter(raws, Quantity)
	require.NoError(t, err)
	assert.Equal(t, []string{"StepCount", "BodyMass"}, quantities)

	categories, err := Filter(raws, Category)
	require.NoError(t, err)
	assert.Equal(t, []string{"SleepAnalysis"}, categories)
}

func TestFilterRejectsInvalidKind(t *testing.T) {
	// Mirrors the ingest contract: only Quantity and Category may be filtered on.
	for _, kind := range []Kind{Workout, Unknown, Kind("Bogus")} {
		_, err := Filter([]string{"HKQuantityTypeIdentifierStepCount"}, kind)
		assert.ErrorIs(t, err, ErrUnknownKind, "kind %q", kind)
	}
}

func TestNormalizeSource(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Apple Watch", "Apple Watch"},
		{"whitespace collapse", "  Kaivalya’s   iPhone ", "Kaivalya’s iPhone"},
		// decomposed u + combining diaeresis folds to the composed form
		{"nfc", "Depüty Watch", "Depüty Watch"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSource(tt.in))
		})
	}
}
