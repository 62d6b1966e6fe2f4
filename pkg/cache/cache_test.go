package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/inksite/pkg/errors"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestIsCurrent(t *testing.T) {
	id := uuid.New()
	c := New("v1")
	c.Record(id, t0)

	tests := []struct {
		name string
		id   uuid.UUID
		ts   time.Time
		want bool
	}{
		{"equal", id, t0, true},
		{"equal in another zone", id, t0.In(time.FixedZone("CET", 3600)), true},
		{"newer", id, t0.Add(time.Second), false},
		{"older", id, t0.Add(-time.Nanosecond), false},
		{"unknown id", uuid.New(), t0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsCurrent(tt.id, tt.ts); got != tt.want {
				t.Errorf("IsCurrent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadSaveFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := NewFileBackend(dir)

	c, status, err := Load(ctx, b, "v1")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if status != StatusEmpty || c.Len() != 0 {
		t.Fatalf("Load() on empty dir = %v with %d entries", status, c.Len())
	}

	a, bID := uuid.New(), uuid.New()
	c.Record(a, t0)
	c.Record(bID, t0.Add(time.Hour))
	if err := c.Save(ctx, b); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("cache file not written: %v", err)
	}
	for _, want := range []string{`"version": "v1"`, `"cache"`, a.String()} {
		if !strings.Contains(string(data), want) {
			t.Errorf("cache file missing %q:\n%s", want, data)
		}
	}

	loaded, status, err := Load(ctx, b, "v1")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if status != StatusLoaded {
		t.Errorf("status = %v, want loaded", status)
	}
	if !loaded.IsCurrent(a, t0) || !loaded.IsCurrent(bID, t0.Add(time.Hour)) {
		t.Errorf("loaded cache lost entries: %+v", loaded.Entries)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, ".*tmp*"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestLoadVersionMismatch(t *testing.T) {
	ctx := context.Background()
	b := NewFileBackend(t.TempDir())

	old := New("v1")
	old.Record(uuid.New(), t0)
	if err := old.Save(ctx, b); err != nil {
		t.Fatal(err)
	}

	c, status, err := Load(ctx, b, "v2")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if status != StatusStale {
		t.Errorf("status = %v, want stale", status)
	}
	if c.Len() != 0 || c.Version != "v2" {
		t.Errorf("stale cache should be discarded, got %+v", c)
	}
}

func TestLoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := Load(context.Background(), NewFileBackend(dir), "v1")
	if !errors.Is(err, errors.ErrCodeCacheCorrupt) {
		t.Errorf("Load() error = %v, want CACHE_CORRUPT", err)
	}
}

func TestFileBackendClear(t *testing.T) {
	ctx := context.Background()
	b := NewFileBackend(t.TempDir())

	if err := b.Clear(ctx); err != nil {
		t.Errorf("Clear() on empty backend: %v", err)
	}
	if err := b.Save(ctx, []byte("{}")); err != nil {
		t.Fatal(err)
	}
	if err := b.Clear(ctx); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, err := b.Load(ctx); err != ErrNotFound {
		t.Errorf("Load() after Clear = %v, want ErrNotFound", err)
	}
}

func TestNullBackend(t *testing.T) {
	ctx := context.Background()
	b := NewNullBackend()

	c := New("v1")
	c.Record(uuid.New(), t0)
	if err := c.Save(ctx, b); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	loaded, status, err := Load(ctx, b, "v1")
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusEmpty || loaded.Len() != 0 {
		t.Error("NullBackend should never return saved entries")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		kind string
		name string
		code errors.Code
	}{
		{"", "file", ""},
		{KindFile, "file", ""},
		{KindNone, "none", ""},
		{KindRedis, "", errors.ErrCodeConfig},
		{"s3", "", errors.ErrCodeConfig},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			b, err := Open(ctx, Options{Kind: tt.kind, BuildDir: dir})
			if tt.code != "" {
				if errors.GetCode(err) != tt.code {
					t.Errorf("Open() error = %v, want %s", err, tt.code)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open() error: %v", err)
			}
			defer b.Close()
			if b.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", b.Name(), tt.name)
			}
		})
	}
}

func TestKey(t *testing.T) {
	dir := t.TempDir()
	k1 := Key("", dir)
	k2 := Key("", dir+string(filepath.Separator))
	if k1 != k2 {
		t.Errorf("Key should normalise the build dir: %s vs %s", k1, k2)
	}
	if !strings.HasPrefix(k1, DefaultKeyPrefix) {
		t.Errorf("Key() = %s, want default prefix", k1)
	}
	if Key("site:", dir) == k1 {
		t.Error("prefix should change the key")
	}
	if Key("", filepath.Join(dir, "other")) == k1 {
		t.Error("different build dirs should have different keys")
	}
}

func TestDirHash(t *testing.T) {
	h := dirHash("/srv/site/build")
	if h != dirHash("/srv/site/build") || h == dirHash("/srv/site/build2") {
		t.Errorf("dirHash should be deterministic and input-sensitive: %s", h)
	}
	if len(h) != 32 {
		t.Errorf("dirHash length = %d, want 32", len(h))
	}
}
