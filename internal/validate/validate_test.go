package validate

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorAccumulates(t *testing.T) {
	v := New()
	v.NotEmpty("Name", "")
	v.Range("Count", 11, 0, 10)

	assert.False(t, v.IsValid())
	require.Len(t, v.Errors(), 2)

	err := v.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Name")
	assert.Contains(t, err.Error(), "Count")
}

func TestValidatorErrNilWhenValid(t *testing.T) {
	v := New()
	v.NotEmpty("Name", "healthkit")
	v.Range("Count", 5, 0, 10)
	assert.NoError(t, v.Err())
}

func TestListenAddr(t *testing.T) {
	tests := []struct {
		addr  string
		valid bool
	}{
		{":8080", true},
		{"127.0.0.1:9090", true},
		{"", false},
		{"localhost", false},
		{"localhost:", false},
	}
	for _, tt := range tests {
		v := New()
		v.ListenAddr("Listen", tt.addr)
		assert.Equal(t, tt.valid, v.IsValid(), "addr %q", tt.addr)
	}
}

func TestDirectoryCreatesMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	v := New()
	v.Directory("ReportDir", dir, false)
	require.True(t, v.IsValid(), "errors: %v", v.Errors())
	assert.DirExists(t, dir)
}

func TestDirectoryRejectsTraversal(t *testing.T) {
	v := New()
	v.Directory("DataDir", "../outside", false)
	assert.False(t, v.IsValid())
}

func TestOneOf(t *testing.T) {
	v := New()
	v.OneOf("Backend", "badger", []string{"badger", "memory"})
	assert.True(t, v.IsValid())

	v.OneOf("Backend", "postgres", []string{"badger", "memory"})
	assert.False(t, v.IsValid())
}

func TestPath(t *testing.T) {
	v := New()
	v.Path("ExportPath", "/data/export.xml")
	assert.True(t, v.IsValid())

	v2 := New()
	v2.Path("ExportPath", "/data/../etc/passwd")
	assert.False(t, v2.IsValid())
}

func TestRangeFloat(t *testing.T) {
	v := New()
	v.RangeFloat("Sampling", 0.5, 0, 1)
	assert.True(t, v.IsValid())

	v.RangeFloat("Sampling", 1.5, 0, 1)
	assert.False(t, v.IsValid())
}
