// Package hktype classifies and cleans HealthKit type identifiers.
//
// Apple Health exports prefix every record type with its HealthKit class:
// HKQuantityTypeIdentifierStepCount, HKCategoryTypeIdentifierSleepAnalysis,
// HKWorkoutActivityTypeRunning. Downstream consumers want the bare name.
package hktype

import (
	"fmt"
	"strings"
)

// Kind is the HealthKit class of a record type.
type Kind string

const (
	Quantity Kind = "Quantity"
	Category Kind = "Category"
	Workout  Kind = "Workout"
	Unknown  Kind = "Unknown"
)

const (
	quantityPrefix = "HKQuantityTypeIdentifier"
	categoryPrefix = "HKCategoryTypeIdentifier"
	workoutPrefix  = "HKWorkoutActivityType"
)

// ErrUnknownKind is returned when a filter kind is not one of Quantity or Category.
var ErrUnknownKind = fmt.Errorf("unknown kind of record: choose one of %q or %q", Quantity, Category)

// Split returns the kind and the cleaned name of a raw type identifier.
// Identifiers without a known prefix are returned unchanged with kind Unknown.
func Split(raw string) (Kind, string) {
	switch {
	case strings.HasPrefix(raw, quantityPrefix):
		return Quantity, strings.TrimPrefix(raw, quantityPrefix)
	case strings.HasPrefix(raw, categoryPrefix):
		return Category, strings.TrimPrefix(raw, categoryPrefix)
	case strings.HasPrefix(raw, workoutPrefix):
		return Workout, strings.TrimPrefix(raw, workoutPrefix)
	default:
		return Unknown, raw
	}
}

// Clean strips the HealthKit prefix from a raw type identifier.
func Clean(raw string) string {
	_, name := Split(raw)
	return name
}

// KindOf returns the kind of a raw type identifier.
func KindOf(raw string) Kind {
	kind, _ := Split(raw)
	return kind
}

// Filter returns the cleaned names of all raw identifiers belonging to kind,
// preserving order and dropping duplicates. Only Quantity and Category are
// valid filter kinds.
func Filter(raws []string, kind Kind) ([]string, error) {
	if kind != Quantity && kind != Category {
		return nil, ErrUnknownKind
	}

	seen := make(map[string]struct{}, len(raws))
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		k, name := Split(raw)
		if k != kind {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}
