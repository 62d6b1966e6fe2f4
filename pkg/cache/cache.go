// Package cache implements the incremental build cache.
//
// A [BuildCache] maps each document id to the modification timestamp it was
// last rendered at. A document is current only when its cached timestamp is
// exactly equal to the one in the manifest; a newer or older timestamp both
// force a re-render. The cache carries a version tag and is discarded whole
// when the tag differs from the running binary's.
//
// Persistence is pluggable through [Backend]:
//   - [FileBackend]: <build>/render_cache.json, rewritten atomically
//   - [RedisBackend]: the same JSON document under a key derived from the build root
//   - [NullBackend]: loads empty, saves nothing
//
// The cache is not safe for concurrent mutation. The pipeline reads it during
// the parallel render phase and records into it only after the barrier.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/matzehuels/inksite/pkg/errors"
	"github.com/matzehuels/inksite/pkg/observability"
)

// BuildCache is the persisted id to last-rendered-timestamp mapping.
type BuildCache struct {
	Version string                  `json:"version"`
	Entries map[uuid.UUID]time.Time `json:"cache"`
}

// New returns an empty cache tagged with version.
func New(version string) *BuildCache {
	return &BuildCache{Version: version, Entries: make(map[uuid.UUID]time.Time)}
}

// IsCurrent reports whether id was last rendered at exactly modifiedAt.
func (c *BuildCache) IsCurrent(id uuid.UUID, modifiedAt time.Time) bool {
	ts, ok := c.Entries[id]
	return ok && ts.Equal(modifiedAt)
}

// Lookup is IsCurrent plus a cache hit/miss event.
func (c *BuildCache) Lookup(ctx context.Context, id uuid.UUID, modifiedAt time.Time) bool {
	hit := c.IsCurrent(id, modifiedAt)
	if hit {
		observability.Cache().OnCacheHit(ctx)
	} else {
		observability.Cache().OnCacheMiss(ctx)
	}
	return hit
}

// Record stores modifiedAt as the last-rendered timestamp of id.
func (c *BuildCache) Record(id uuid.UUID, modifiedAt time.Time) {
	if c.Entries == nil {
		c.Entries = make(map[uuid.UUID]time.Time)
	}
	c.Entries[id] = modifiedAt.UTC()
}

// Len returns the number of entries.
func (c *BuildCache) Len() int { return len(c.Entries) }

// Status describes how [Load] obtained a cache.
type Status int

const (
	// StatusLoaded means the persisted cache was used.
	StatusLoaded Status = iota
	// StatusEmpty means nothing was persisted yet.
	StatusEmpty
	// StatusStale means a cache with a different version tag was discarded.
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusEmpty:
		return "empty"
	case StatusStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Load reads the cache from b. A missing cache and a cache written under
// another version both yield an empty cache; only an undecodable cache is an
// error.
func Load(ctx context.Context, b Backend, version string) (*BuildCache, Status, error) {
	data, err := b.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return New(version), StatusEmpty, nil
	}
	if err != nil {
		return nil, StatusEmpty, err
	}

	var c BuildCache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, StatusEmpty, pkgerrors.Wrap(pkgerrors.ErrCodeCacheCorrupt, err, "decode build cache at %s", b.Location())
	}
	if c.Version != version {
		return New(version), StatusStale, nil
	}
	if c.Entries == nil {
		c.Entries = make(map[uuid.UUID]time.Time)
	}
	return &c, StatusLoaded, nil
}

// Save writes the whole cache to b.
func (c *BuildCache) Save(ctx context.Context, b Backend) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrCodeInternal, err, "encode build cache")
	}
	data = append(data, '\n')
	if err := b.Save(ctx, data); err != nil {
		return err
	}
	observability.Cache().OnCacheSave(ctx, b.Name(), c.Len(), len(data))
	return nil
}
