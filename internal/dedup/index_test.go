package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkin1995/healthkit/internal/export"
)

func sampleRecord() export.Record {
	start := time.Date(2023, 11, 4, 8, 0, 0, 0, time.UTC)
	return export.Record{
		Type:       "HKQuantityTypeIdentifierStepCount",
		Value:      "523",
		SourceName: "iPhone",
		StartDate:  start,
		EndDate:    start.Add(10 * time.Minute),
	}
}

func TestFingerprintStability(t *testing.T) {
	a := Fingerprint(sampleRecord())
	b := Fingerprint(sampleRecord())
	assert.Equal(t, a, b)

	// identity fields change the fingerprint
	changed := sampleRecord()
	changed.Value = "524"
	assert.NotEqual(t, a, Fingerprint(changed))

	changed = sampleRecord()
	changed.SourceName = "Apple Watch"
	assert.NotEqual(t, a, Fingerprint(changed))

	// unit is not part of the identity
	same := sampleRecord()
	same.Unit = "count"
	assert.Equal(t, a, Fingerprint(same))
}

func TestFingerprintZoneInsensitive(t *testing.T) {
	// the same instant in two zones is the same measurement
	utc := sampleRecord()
	ist := sampleRecord()
	ist.StartDate = ist.StartDate.In(time.FixedZone("IST", 5*3600+1800))
	ist.EndDate = ist.EndDate.In(time.FixedZone("IST", 5*3600+1800))
	assert.Equal(t, Fingerprint(utc), Fingerprint(ist))
}

func testIndex(t *testing.T, idx Index) {
	t.Helper()
	fp := Fingerprint(sampleRecord())

	seen, err := idx.Seen(fp)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, idx.Mark([]string{fp, "other"}))

	seen, err = idx.Seen(fp)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = idx.Seen("never-marked")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryIndex(t *testing.T) {
	idx := NewMemoryIndex()
	t.Cleanup(func() { _ = idx.Close() })
	testIndex(t, idx)
}

func TestBadgerIndex(t *testing.T) {
	idx, err := New("badger", t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	testIndex(t, idx)
}

func TestBadgerIndexPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	idx, err := New("badger", dir)
	require.NoError(t, err)
	fp := Fingerprint(sampleRecord())
	require.NoError(t, idx.Mark([]string{fp}))
	require.NoError(t, idx.Close())

	idx, err = New("badger", dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	seen, err := idx.Seen(fp)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New("bolt", t.TempDir())
	assert.Error(t, err)

	_, err = New("badger", "")
	assert.Error(t, err)
}
