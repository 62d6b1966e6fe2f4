// Package manifest resolves a flat document collection into the hierarchy a
// site is generated from.
//
// A document source lists every document and folder as a [Record] with a
// parent pointer. [Build] picks the site root, requires the "Home" and "Logo"
// documents and the "Posts" folder directly beneath it, and mirrors the
// Posts subtree into a recursive [Posts] value:
//
//	Site root/
//	├── Home           (document, rendered as the index page)
//	├── Logo           (document, rendered cropped)
//	└── Posts/
//	    ├── Welcome    (document)
//	    └── Recipes/   (folder)
//	        └── Soup   (document)
//
// The resulting [Manifest] is the boundary artifact between the fetch phase
// and the generate phase and is persisted as manifest.json in the material
// directory.
package manifest

import (
	"time"

	"github.com/google/uuid"
)

// Type tags used by the document store.
const (
	TypeDocument   = "DocumentType"
	TypeCollection = "CollectionType"
)

// Parent values that are not folder ids.
const (
	ParentRoot  = ""
	ParentTrash = "trash"
)

// Names of the well-known children of the site root.
const (
	HomeName  = "Home"
	LogoName  = "Logo"
	PostsName = "Posts"
)

// FileName is the manifest's file name inside a material directory.
const FileName = "manifest.json"

// DocumentMeta is the snapshot of a document taken when the manifest is built.
type DocumentMeta struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Posts is one folder of the posts tree. Folders own their children by
// value; the tree is rebuilt wholesale on every fetch.
type Posts struct {
	Documents map[string]DocumentMeta `json:"documents"`
	Folders   map[string]Posts        `json:"folders"`
}

// Manifest is the resolved site hierarchy.
type Manifest struct {
	Home  DocumentMeta `json:"home"`
	Logo  DocumentMeta `json:"logo"`
	Posts Posts        `json:"posts"`
}

// Docs returns every document of the manifest: home, logo, then the posts
// tree depth-first in name order.
func (m *Manifest) Docs() []DocumentMeta {
	docs := []DocumentMeta{m.Home, m.Logo}
	return append(docs, m.Posts.Docs()...)
}

// Docs returns the documents of p and all its subfolders, depth-first.
// Within a folder, documents come before subfolders and both are in name order.
func (p Posts) Docs() []DocumentMeta {
	var docs []DocumentMeta
	for _, name := range p.DocumentNames() {
		docs = append(docs, p.Documents[name])
	}
	for _, name := range p.FolderNames() {
		docs = append(docs, p.Folders[name].Docs()...)
	}
	return docs
}

// DocumentNames returns the names of the direct documents of p, sorted.
func (p Posts) DocumentNames() []string {
	return sortedKeys(p.Documents)
}

// FolderNames returns the names of the direct subfolders of p, sorted.
func (p Posts) FolderNames() []string {
	return sortedKeys(p.Folders)
}

// Depth returns the number of folder levels below p (0 for a leaf folder).
func (p Posts) Depth() int {
	depth := 0
	for _, f := range p.Folders {
		if d := f.Depth() + 1; d > depth {
			depth = d
		}
	}
	return depth
}
