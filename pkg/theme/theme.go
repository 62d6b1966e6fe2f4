// Package theme turns page parameters into HTML.
//
// A theme is a directory with three templates and one stylesheet:
//
//	index.html     the site home page
//	document.html  one page per document
//	folder.html    one listing page per folder
//	style.css      copied verbatim to the output root
//
// Templates use html/template syntax. If the directory also holds base.html,
// it is parsed together with each page template, so pages can share a
// layout through {{define}} and {{template}}. [Default] returns the theme
// embedded in the binary.
package theme

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/inksite/pkg/errors"
	pkgio "github.com/matzehuels/inksite/pkg/io"
)

// Template and asset file names.
const (
	IndexTemplate    = "index.html"
	DocumentTemplate = "document.html"
	FolderTemplate   = "folder.html"
	BaseTemplate     = "base.html"
	Stylesheet       = "style.css"
)

// Crumb is one breadcrumb.
type Crumb struct {
	Name string
	Link string
}

// DocumentEntry is a document in a folder listing.
type DocumentEntry struct {
	Name string
	// SVG is the link of the document's first page, empty if it has none.
	SVG  string
	Link string
}

// FolderEntry is a subfolder in a folder listing.
type FolderEntry struct {
	Name string
	Link string
}

// Params is the data passed to every template. Fields that do not apply to a
// page are left zero.
type Params struct {
	BuildNonce    string
	Prefix        string
	Title         string
	Name          string
	Logo          string
	Breadcrumbs   []Crumb
	BackLink      string
	Pages         []string
	NavThumbnails bool
	Documents     []DocumentEntry
	Folders       []FolderEntry
}

// Theme renders pages and provides the stylesheet.
type Theme interface {
	RenderIndex(w io.Writer, p Params) error
	RenderDocument(w io.Writer, p Params) error
	RenderFolder(w io.Writer, p Params) error
	// CopyCSS writes the stylesheet to dst.
	CopyCSS(dst string) error
}

// FSTheme is a theme parsed from a file system.
type FSTheme struct {
	name     string
	index    *template.Template
	document *template.Template
	folder   *template.Template
	css      []byte
}

//go:embed default
var defaultFS embed.FS

// Default returns the built-in theme.
func Default() *FSTheme {
	sub, err := fs.Sub(defaultFS, "default")
	if err != nil {
		panic(err)
	}
	t, err := LoadFS("default", sub)
	if err != nil {
		panic(err)
	}
	return t
}

// Load parses the theme in dir.
func Load(dir string) (*FSTheme, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "theme %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeConfig, "theme %s is not a directory", dir)
	}
	return LoadFS(filepath.Base(dir), os.DirFS(dir))
}

// LoadFS parses a theme from fsys. name is used in error messages.
func LoadFS(name string, fsys fs.FS) (*FSTheme, error) {
	_, err := fs.Stat(fsys, BaseTemplate)
	hasBase := err == nil

	parse := func(page string) (*template.Template, error) {
		files := []string{page}
		if hasBase {
			files = []string{BaseTemplate, page}
		}
		t, err := template.New(page).Funcs(funcs).ParseFS(fsys, files...)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, err, "theme %s: parse %s", name, page)
		}
		return t.Lookup(page), nil
	}

	t := &FSTheme{name: name}
	if t.index, err = parse(IndexTemplate); err != nil {
		return nil, err
	}
	if t.document, err = parse(DocumentTemplate); err != nil {
		return nil, err
	}
	if t.folder, err = parse(FolderTemplate); err != nil {
		return nil, err
	}
	if t.css, err = fs.ReadFile(fsys, Stylesheet); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfig, err, "theme %s: missing %s", name, Stylesheet)
	}
	return t, nil
}

var funcs = template.FuncMap{
	// asset links a file at the output root.
	"asset": func(prefix, name string) string {
		if strings.HasSuffix(prefix, "/") {
			return prefix + name
		}
		return prefix + "/" + name
	},
}

// Name returns the theme name.
func (t *FSTheme) Name() string { return t.name }

func (t *FSTheme) RenderIndex(w io.Writer, p Params) error {
	return execute(t.index, w, p)
}

func (t *FSTheme) RenderDocument(w io.Writer, p Params) error {
	return execute(t.document, w, p)
}

func (t *FSTheme) RenderFolder(w io.Writer, p Params) error {
	return execute(t.folder, w, p)
}

// CopyCSS writes the stylesheet to dst atomically.
func (t *FSTheme) CopyCSS(dst string) error {
	if err := pkgio.WriteFileAtomic(dst, t.css); err != nil {
		return errors.IO(err, "copy stylesheet to", dst)
	}
	return nil
}

// execute renders into a buffer first so a template error never leaves a
// half-written page behind.
func execute(t *template.Template, w io.Writer, p Params) error {
	var buf bytes.Buffer
	if err := t.Execute(&buf, p); err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "execute template %s", t.Name())
	}
	_, err := w.Write(buf.Bytes())
	return err
}

var _ Theme = (*FSTheme)(nil)
