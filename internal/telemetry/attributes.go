// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Import attributes
	ImportIDKey         = "import.id"
	ImportRecordsKey    = "import.records"
	ImportWorkoutsKey   = "import.workouts"
	ImportDuplicatesKey = "import.duplicates"
	ImportSkippedKey    = "import.skipped"

	// Query attributes
	QueryTypeKey  = "query.type"
	QueryLimitKey = "query.limit"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// ImportAttributes creates import-job span attributes.
func ImportAttributes(id string, records, workouts, duplicates, skipped int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ImportIDKey, id),
		attribute.Int(ImportRecordsKey, records),
		attribute.Int(ImportWorkoutsKey, workouts),
		attribute.Int(ImportDuplicatesKey, duplicates),
		attribute.Int(ImportSkippedKey, skipped),
	}
}

// QueryAttributes creates query span attributes.
func QueryAttributes(recordType string, limit int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if recordType != "" {
		attrs = append(attrs, attribute.String(QueryTypeKey, recordType))
	}
	if limit > 0 {
		attrs = append(attrs, attribute.Int(QueryLimitKey, limit))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
