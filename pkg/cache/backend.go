package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	pkgerrors "github.com/matzehuels/inksite/pkg/errors"
	pkgio "github.com/matzehuels/inksite/pkg/io"
)

// ErrNotFound is returned by a Backend when nothing has been saved yet.
var ErrNotFound = errors.New("not found")

// FileName is the cache file name inside a build directory.
const FileName = "render_cache.json"

// Backend stores one encoded build cache.
type Backend interface {
	// Load returns the stored bytes, or ErrNotFound.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the stored bytes.
	Save(ctx context.Context, data []byte) error
	// Clear removes the stored cache. Clearing an empty backend is not an error.
	Clear(ctx context.Context) error
	// Name identifies the backend kind ("file", "redis", "none").
	Name() string
	// Location describes where the cache lives, for messages.
	Location() string
	Close() error
}

// FileBackend keeps the cache as a JSON file in the build directory.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend for <buildDir>/render_cache.json.
func NewFileBackend(buildDir string) *FileBackend {
	return &FileBackend{path: filepath.Join(buildDir, FileName)}
}

// Load reads the cache file.
func (b *FileBackend) Load(context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, pkgerrors.IO(err, "read", b.path)
	}
	return data, nil
}

// Save writes the cache file through a temp file and rename.
func (b *FileBackend) Save(_ context.Context, data []byte) error {
	if err := pkgio.WriteFileAtomic(b.path, data); err != nil {
		return pkgerrors.IO(err, "write", b.path)
	}
	return nil
}

// Clear deletes the cache file.
func (b *FileBackend) Clear(context.Context) error {
	err := os.Remove(b.path)
	if err != nil && !os.IsNotExist(err) {
		return pkgerrors.IO(err, "remove", b.path)
	}
	return nil
}

func (b *FileBackend) Name() string     { return "file" }
func (b *FileBackend) Location() string { return b.path }
func (b *FileBackend) Close() error     { return nil }

// NullBackend never stores anything.
type NullBackend struct{}

// NewNullBackend returns a backend that always loads empty.
func NewNullBackend() *NullBackend { return &NullBackend{} }

func (NullBackend) Load(context.Context) ([]byte, error) { return nil, ErrNotFound }
func (NullBackend) Save(context.Context, []byte) error   { return nil }
func (NullBackend) Clear(context.Context) error          { return nil }
func (NullBackend) Name() string                         { return "none" }
func (NullBackend) Location() string                     { return "(disabled)" }
func (NullBackend) Close() error                         { return nil }

// Backend kinds accepted by [Open].
const (
	KindFile  = "file"
	KindRedis = "redis"
	KindNone  = "none"
)

// Options selects and configures a backend.
type Options struct {
	Kind      string
	BuildDir  string
	RedisAddr string
	KeyPrefix string
}

// Open constructs the backend named by opts.Kind. An empty kind means file.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Kind {
	case "", KindFile:
		return NewFileBackend(opts.BuildDir), nil
	case KindNone:
		return NewNullBackend(), nil
	case KindRedis:
		return DialRedis(ctx, opts.RedisAddr, opts.KeyPrefix, opts.BuildDir)
	default:
		return nil, pkgerrors.New(pkgerrors.ErrCodeConfig, "unknown cache backend %q", opts.Kind)
	}
}

var (
	_ Backend = (*FileBackend)(nil)
	_ Backend = NullBackend{}
	_ Backend = (*RedisBackend)(nil)
)

func describe(kind, where string) string { return fmt.Sprintf("%s:%s", kind, where) }
