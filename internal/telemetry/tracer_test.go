// SPDX-License-Identifier: MIT
package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestTracerReturnsNonNil(t *testing.T) {
	if Tracer("test") == nil {
		t.Fatal("expected non-nil tracer")
	}
}

func TestImportAttributes(t *testing.T) {
	attrs := ImportAttributes("abc", 10, 2, 3, 1)
	if len(attrs) != 5 {
		t.Fatalf("expected 5 attributes, got %d", len(attrs))
	}
	verifyAttribute(t, attrs, ImportIDKey, "abc")
	verifyIntAttribute(t, attrs, ImportRecordsKey, 10)
	verifyIntAttribute(t, attrs, ImportDuplicatesKey, 3)
}

func TestQueryAttributesOmitsEmpty(t *testing.T) {
	attrs := QueryAttributes("", 0)
	if len(attrs) != 0 {
		t.Fatalf("expected no attributes, got %d", len(attrs))
	}

	attrs = QueryAttributes("StepCount", 100)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
}

func verifyAttribute(t *testing.T, attrs []attribute.KeyValue, key, want string) {
	t.Helper()
	for _, a := range attrs {
		if string(a.Key) == key {
			if a.Value.AsString() != want {
				t.Errorf("attribute %s = %q, want %q", key, a.Value.AsString(), want)
			}
			return
		}
	}
	t.Errorf("attribute %s not found", key)
}

func verifyIntAttribute(t *testing.T, attrs []attribute.KeyValue, key string, want int64) {
	t.Helper()
	for _, a := range attrs {
		if string(a.Key) == key {
			if a.Value.AsInt64() != want {
				t.Errorf("attribute %s = %d, want %d", key, a.Value.AsInt64(), want)
			}
			return
		}
	}
	t.Errorf("attribute %s not found", key)
}
