package jobs

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"kwintel/internal/dictionary"
)

// SnapshotLoader loads dictionary snapshots. A nil version means the latest.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, versionID *int64) (*dictionary.Snapshot, error)
}

// SnapshotWarmer keeps the latest dictionary snapshot compiled so the first
// request after a publish does not pay for loading it.
type SnapshotWarmer struct {
	loader   SnapshotLoader
	interval time.Duration
	timeout  time.Duration
	last     atomic.Int64
}

// NewSnapshotWarmer creates a new snapshot warmer.
func NewSnapshotWarmer(loader SnapshotLoader, interval time.Duration) *SnapshotWarmer {
	return &SnapshotWarmer{
		loader:   loader,
		interval: interval,
		timeout:  30 * time.Second,
	}
}

// Start begins the background warm loop. It returns when ctx is cancelled.
func (w *SnapshotWarmer) Start(ctx context.Context) {
	log.Printf("Snapshot warmer started (interval: %v)", w.interval)

	// Run immediately on start
	w.warm(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Snapshot warmer stopped")
			return
		case <-ticker.C:
			w.warm(ctx)
		}
	}
}

// LastVersion returns the most recently warmed version, 0 before the first
// successful load.
func (w *SnapshotWarmer) LastVersion() int64 {
	return w.last.Load()
}

// warm loads the latest snapshot through the cache.
func (w *SnapshotWarmer) warm(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	snap, err := w.loader.LoadSnapshot(ctx, nil)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("Snapshot warmer: failed to load latest snapshot: %v", err)
		}
		return
	}

	if v := snap.VersionID(); w.last.Swap(v) != v {
		log.Printf("Snapshot warmer: dictionary version %d ready", v)
	}
}
