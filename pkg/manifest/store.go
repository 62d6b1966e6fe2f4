package manifest

import (
	"cmp"
	"maps"
	"path/filepath"
	"slices"

	"github.com/matzehuels/inksite/pkg/errors"
	pkgio "github.com/matzehuels/inksite/pkg/io"
)

// Path returns the manifest file path inside materialDir.
func Path(materialDir string) string {
	return filepath.Join(materialDir, FileName)
}

// Load reads the manifest persisted in materialDir.
func Load(materialDir string) (*Manifest, error) {
	var m Manifest
	if err := pkgio.ImportJSON(Path(materialDir), &m); err != nil {
		return nil, errors.IO(err, "load manifest", Path(materialDir))
	}
	if m.Posts.Documents == nil {
		m.Posts.Documents = map[string]DocumentMeta{}
	}
	if m.Posts.Folders == nil {
		m.Posts.Folders = map[string]Posts{}
	}
	return &m, nil
}

// Save writes m to materialDir as indented JSON, atomically.
func (m *Manifest) Save(materialDir string) error {
	if err := pkgio.ExportJSON(m, Path(materialDir)); err != nil {
		return errors.IO(err, "save manifest", Path(materialDir))
	}
	return nil
}

func sortedKeys[M ~map[K]V, K cmp.Ordered, V any](m M) []K {
	return slices.Sorted(maps.Keys(m))
}
