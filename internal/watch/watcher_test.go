package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherTriggersOnWrite(t *testing.T) {
	dir := t.TempDir()
	exportPath := filepath.Join(dir, "export.xml")

	var triggered atomic.Int32
	w, err := New(Config{ExportPath: exportPath, Debounce: 50 * time.Millisecond}, func(context.Context) {
		triggered.Add(1)
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(exportPath, []byte("<HealthData/>"), 0o600))

	require.Eventually(t, func() bool {
		return triggered.Load() == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherDebouncesRapidWrites(t *testing.T) {
	dir := t.TempDir()
	exportPath := filepath.Join(dir, "export.xml")

	var triggered atomic.Int32
	w, err := New(Config{ExportPath: exportPath, Debounce: 200 * time.Millisecond}, func(context.Context) {
		triggered.Add(1)
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(exportPath, []byte("<HealthData/>"), 0o600))
		time.Sleep(20 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return triggered.Load() >= 1
	}, 3*time.Second, 20*time.Millisecond)

	// A settled burst fires exactly once.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), triggered.Load())
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	exportPath := filepath.Join(dir, "export.xml")

	var triggered atomic.Int32
	w, err := New(Config{ExportPath: exportPath, Debounce: 50 * time.Millisecond}, func(context.Context) {
		triggered.Add(1)
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), triggered.Load())
}

func TestWatcherRejectsBadConfig(t *testing.T) {
	_, err := New(Config{}, func(context.Context) {})
	assert.Error(t, err)

	_, err = New(Config{ExportPath: "/tmp/export.xml"}, nil)
	assert.Error(t, err)
}
