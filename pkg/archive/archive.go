// Package archive gives random access to the named entries of a document
// archive. Archives are zip files as downloaded from the document store and
// stored under <material>/zip/<id>.zip.
package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/matzehuels/inksite/pkg/errors"
)

// Dir is the archive directory inside a material directory.
const Dir = "zip"

// Path returns the archive path of id inside materialDir.
func Path(materialDir string, id uuid.UUID) string {
	return filepath.Join(materialDir, Dir, id.String()+".zip")
}

// Archive is an opened zip archive.
type Archive struct {
	name    string
	r       *zip.Reader
	closer  io.Closer
	entries map[string]*zip.File
}

// Open opens the zip file at path.
func Open(path string) (*Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.IO(err, "open archive", path)
	}
	return newArchive(path, &rc.Reader, rc), nil
}

// FromBytes reads an archive held in memory. name is used in error messages.
func FromBytes(name string, data []byte) (*Archive, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceIntegrity, err, "read archive %s", name)
	}
	return newArchive(name, r, nil), nil
}

func newArchive(name string, r *zip.Reader, c io.Closer) *Archive {
	a := &Archive{name: name, r: r, closer: c, entries: make(map[string]*zip.File, len(r.File))}
	for _, f := range r.File {
		a.entries[f.Name] = f
	}
	return a
}

// Names returns the entry names, sorted.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.entries))
	for name := range a.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReadFile returns the contents of the named entry. A missing entry is a
// source-integrity error.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	f, ok := a.entries[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeSourceIntegrity, "archive %s has no entry %q", a.name, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceIntegrity, err, "open entry %q of %s", name, a.name)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceIntegrity, err, "read entry %q of %s", name, a.name)
	}
	return data, nil
}

// Close releases the underlying file, if any.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Entry is one file to place in a new archive.
type Entry struct {
	Name string
	Data []byte
}

// Write builds a zip archive from entries, in order. Modification times are
// left zero so identical entries give identical bytes.
func Write(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	for _, e := range entries {
		f, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate})
		if err != nil {
			return err
		}
		if _, err := f.Write(e.Data); err != nil {
			return err
		}
	}
	return zw.Close()
}
