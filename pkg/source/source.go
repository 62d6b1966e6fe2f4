// Package source provides access to a document store.
//
// A store is a flat listing of records (documents and folders, each with a
// parent pointer) plus one archive per document. The pipeline only needs
// two operations from it, captured by [Source]. [Dir] reads a local export
// directory:
//
//	documents.json   JSON array of records
//	<id>.zip         one archive per document
//
// [HTTP] reads the same layout below a base URL. [Memory] keeps everything
// in memory and is mostly useful in tests.
package source

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/uuid"

	pkgerrors "github.com/matzehuels/inksite/pkg/errors"
	pkgio "github.com/matzehuels/inksite/pkg/io"
	"github.com/matzehuels/inksite/pkg/manifest"
)

// IndexFile is the record listing of an export directory.
const IndexFile = "documents.json"

// Source lists records and downloads document archives.
type Source interface {
	List(ctx context.Context) ([]manifest.Record, error)
	Download(ctx context.Context, id uuid.UUID) ([]byte, error)
}

// Dir is a local export directory.
type Dir struct {
	path string
}

// NewDir returns the export directory at path.
func NewDir(path string) *Dir {
	return &Dir{path: path}
}

// Path returns the directory path.
func (d *Dir) Path() string { return d.path }

// List reads documents.json.
func (d *Dir) List(ctx context.Context) ([]manifest.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(d.path, IndexFile)
	var records []manifest.Record
	if err := pkgio.ImportJSON(path, &records); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, pkgerrors.IO(err, "list", path)
		}
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeSourceIntegrity, err, "decode record listing")
	}
	return records, nil
}

// Download reads <id>.zip. A listed document without an archive is a
// source integrity error.
func (d *Dir) Download(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(d.path, id.String()+".zip")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, pkgerrors.New(pkgerrors.ErrCodeSourceIntegrity, "no archive for document %s", id)
	}
	if err != nil {
		return nil, pkgerrors.IO(err, "read", path)
	}
	return data, nil
}

// WriteDir writes records and archives as an export directory at path.
func WriteDir(path string, records []manifest.Record, archives map[uuid.UUID][]byte) error {
	if err := pkgio.ExportJSON(records, filepath.Join(path, IndexFile)); err != nil {
		return pkgerrors.IO(err, "write", filepath.Join(path, IndexFile))
	}
	for id, data := range archives {
		p := filepath.Join(path, id.String()+".zip")
		if err := pkgio.WriteFileAtomic(p, data); err != nil {
			return pkgerrors.IO(err, "write", p)
		}
	}
	return nil
}

// Memory is an in-memory document store. It is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	records   []manifest.Record
	archives  map[uuid.UUID][]byte
	downloads map[uuid.UUID]int
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{archives: map[uuid.UUID][]byte{}, downloads: map[uuid.UUID]int{}}
}

// Put adds or replaces a record. A non-nil archive is stored alongside.
func (m *Memory) Put(r manifest.Record, archive []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.records, func(x manifest.Record) bool { return x.ID == r.ID })
	if i >= 0 {
		m.records[i] = r
	} else {
		m.records = append(m.records, r)
	}
	if archive != nil {
		m.archives[r.ID] = archive
	}
}

func (m *Memory) List(ctx context.Context) ([]manifest.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.records), nil
}

func (m *Memory) Download(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.archives[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.ErrCodeSourceIntegrity, "no archive for document %s", id)
	}
	m.downloads[id]++
	return slices.Clone(data), nil
}

// Downloads returns how often id was downloaded.
func (m *Memory) Downloads(id uuid.UUID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.downloads[id]
}

var (
	_ Source = (*Dir)(nil)
	_ Source = (*Memory)(nil)
)
