// Package cache keeps resolved dictionary snapshots in Redis so replicas do
// not each re-resolve the full entry history on every batch.
//
// Versions are immutable once published, so a cached version never needs
// invalidation; the TTL only bounds memory.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"kwintel/internal/dictionary"
)

// KeyPrefix namespaces snapshot keys in the shared store.
const KeyPrefix = "kwintel:snapshot:"

// maxCompiled bounds the in-process map of compiled snapshots.
const maxCompiled = 4

// Storage is the subset of a fiber storage driver the cache needs.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
	Delete(key string) error
}

// Source loads resolved snapshot content, normally the database.
type Source interface {
	LoadSnapshotData(ctx context.Context, versionID *int64) (dictionary.SnapshotData, error)
	LatestVersion(ctx context.Context) (int64, error)
	ListVersions(ctx context.Context) ([]int64, error)
}

// SnapshotCache implements the engine snapshot repository on top of a
// Source, with Redis as a shared second level and compiled snapshots held
// in process.
type SnapshotCache struct {
	store  Storage
	source Source
	ttl    time.Duration

	mu       sync.Mutex
	compiled map[int64]*dictionary.Snapshot
}

// New creates a snapshot cache. A nil store disables the shared level.
func New(store Storage, source Source, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		store:    store,
		source:   source,
		ttl:      ttl,
		compiled: make(map[int64]*dictionary.Snapshot),
	}
}

// LoadSnapshot returns the snapshot for versionID, or the latest version.
func (c *SnapshotCache) LoadSnapshot(ctx context.Context, versionID *int64) (*dictionary.Snapshot, error) {
	version, err := c.resolveVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}

	if snap := c.getCompiled(version); snap != nil {
		return snap, nil
	}

	data, err := c.loadData(ctx, version)
	if err != nil {
		return nil, err
	}
	snap, err := dictionary.NewSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("failed to compile snapshot %d: %w", version, err)
	}
	c.putCompiled(version, snap)
	return snap, nil
}

// ListVersions passes through to the source.
func (c *SnapshotCache) ListVersions(ctx context.Context) ([]int64, error) {
	return c.source.ListVersions(ctx)
}

// Forget drops a version from both cache levels.
func (c *SnapshotCache) Forget(version int64) error {
	c.mu.Lock()
	delete(c.compiled, version)
	c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	return c.store.Delete(Key(version))
}

// Key returns the storage key for a version.
func Key(version int64) string {
	return fmt.Sprintf("%sv%d", KeyPrefix, version)
}

func (c *SnapshotCache) resolveVersion(ctx context.Context, versionID *int64) (int64, error) {
	if versionID != nil {
		return *versionID, nil
	}
	return c.source.LatestVersion(ctx)
}

// loadData reads the shared level first. Store failures are logged and
// the source is used instead.
func (c *SnapshotCache) loadData(ctx context.Context, version int64) (dictionary.SnapshotData, error) {
	key := Key(version)
	if c.store != nil {
		raw, err := c.store.Get(key)
		switch {
		case err != nil:
			slog.Warn("snapshot cache read failed", "version", version, "error", err)
		case len(raw) > 0:
			var data dictionary.SnapshotData
			if err := json.Unmarshal(raw, &data); err == nil && data.VersionID == version {
				return data, nil
			}
			slog.Warn("discarding corrupt cached snapshot", "version", version)
		}
	}

	data, err := c.source.LoadSnapshotData(ctx, &version)
	if err != nil {
		return dictionary.SnapshotData{}, err
	}

	if c.store != nil {
		raw, err := json.Marshal(data)
		if err == nil {
			err = c.store.Set(key, raw, c.ttl)
		}
		if err != nil {
			slog.Warn("snapshot cache write failed", "version", version, "error", err)
		}
	}
	return data, nil
}

func (c *SnapshotCache) getCompiled(version int64) *dictionary.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compiled[version]
}

// putCompiled stores a compiled snapshot, evicting the oldest versions
// beyond maxCompiled.
func (c *SnapshotCache) putCompiled(version int64, snap *dictionary.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compiled[version] = snap
	if len(c.compiled) <= maxCompiled {
		return
	}
	versions := make([]int64, 0, len(c.compiled))
	for v := range c.compiled {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	for _, v := range versions[:len(versions)-maxCompiled] {
		delete(c.compiled, v)
	}
}
