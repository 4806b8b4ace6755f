// Package dedup tracks record fingerprints across imports so re-ingesting the
// same export never duplicates rows.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/kkin1995/healthkit/internal/export"
)

// Index answers "have we stored this record before" and remembers new ones.
type Index interface {
	// Seen reports whether the fingerprint is already known.
	Seen(fp string) (bool, error)
	// Mark remembers a batch of fingerprints.
	Mark(fps []string) error
	Close() error
}

// Fingerprint produces a stable identity for a record. Two records are the
// same measurement when type, interval, value and source all match.
func Fingerprint(rec export.Record) string {
	h := sha256.New()
	h.Write([]byte(rec.Type))
	h.Write([]byte{0})
	h.Write([]byte(rec.StartDate.UTC().Format(time.RFC3339)))
	h.Write([]byte{0})
	h.Write([]byte(rec.EndDate.UTC().Format(time.RFC3339)))
	h.Write([]byte{0})
	h.Write([]byte(rec.Value))
	h.Write([]byte{0})
	h.Write([]byte(rec.SourceName))
	return hex.EncodeToString(h.Sum(nil))
}

// WorkoutFingerprint produces a stable identity for a workout.
func WorkoutFingerprint(w export.Workout) string {
	h := sha256.New()
	h.Write([]byte(w.ActivityType))
	h.Write([]byte{0})
	h.Write([]byte(w.StartDate.UTC().Format(time.RFC3339)))
	h.Write([]byte{0})
	h.Write([]byte(w.EndDate.UTC().Format(time.RFC3339)))
	h.Write([]byte{0})
	h.Write([]byte(w.SourceName))
	return hex.EncodeToString(h.Sum(nil))
}

// New opens an index for the given backend: "badger" (durable, at dir) or
// "memory" (per-process, for tests and one-shot CLI runs).
func New(backend, dir string) (Index, error) {
	switch backend {
	case "", "badger":
		if dir == "" {
			return nil, fmt.Errorf("dedup: badger backend requires a directory")
		}
		return openBadgerIndex(dir)
	case "memory":
		return NewMemoryIndex(), nil
	default:
		return nil, fmt.Errorf("dedup: unknown backend %q (supported: badger, memory)", backend)
	}
}

// badgerIndex is the durable implementation.
type badgerIndex struct {
	db *badger.DB
}

func openBadgerIndex(dir string) (*badgerIndex, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("dedup: open badger: %w", err)
	}
	return &badgerIndex{db: db}, nil
}

func (i *badgerIndex) Seen(fp string) (bool, error) {
	err := i.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("fp:" + fp))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup: lookup: %w", err)
	}
	return true, nil
}

func (i *badgerIndex) Mark(fps []string) error {
	wb := i.db.NewWriteBatch()
	defer wb.Cancel()
	for _, fp := range fps {
		if err := wb.Set([]byte("fp:"+fp), nil); err != nil {
			return fmt.Errorf("dedup: batch set: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("dedup: batch flush: %w", err)
	}
	return nil
}

func (i *badgerIndex) Close() error { return i.db.Close() }

// MemoryIndex implements Index with a map (thread-safe).
type MemoryIndex struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{seen: make(map[string]struct{})}
}

func (i *MemoryIndex) Seen(fp string) (bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.seen[fp]
	return ok, nil
}

func (i *MemoryIndex) Mark(fps []string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, fp := range fps {
		i.seen[fp] = struct{}{}
	}
	return nil
}

func (i *MemoryIndex) Close() error {
	i.mu.Lock()
	i.seen = nil
	i.mu.Unlock()
	return nil
}
