// Package site assembles the HTML of a generated site.
//
// The [Assembler] walks a manifest depth-first and writes one page per
// document and one listing page per folder, then the home page:
//
//	index.html
//	style.css
//	posts/welcome.html          document "Welcome"
//	posts/recipes.html          folder "Recipes" (listing)
//	posts/recipes/soup.html     document "Soup" inside "Recipes"
//
// A folder always yields both a directory (its children) and a sibling
// .html file (its listing); a document only ever yields a file. Going down,
// the assembler threads the site title, the logo link and a breadcrumb
// trail. Coming back up, each folder collects the (name, first page, link)
// of its documents and the (name, link) of its subfolders for its listing.
//
// All links are root-relative: the output root is stripped from the
// physical path and the URL prefix prepended (see [Link]).
package site

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/inksite/pkg/errors"
	pkgio "github.com/matzehuels/inksite/pkg/io"
	"github.com/matzehuels/inksite/pkg/manifest"
	"github.com/matzehuels/inksite/pkg/theme"
)

// Output names below the root.
const (
	IndexFile = "index.html"
	PostsDir  = "posts"
	HomeCrumb = "Home"
)

// NonceFormat formats the build nonce appended to asset links.
const NonceFormat = "2006-01-02T15-04-05"

// Nonce returns the cache-busting build nonce for t.
func Nonce(t time.Time) string {
	return t.UTC().Format(NonceFormat)
}

// Assembler writes the HTML of a site.
type Assembler struct {
	// Root is the output root.
	Root string
	// Prefix is the URL prefix of every link.
	Prefix string
	// Title is the site title.
	Title string
	Theme theme.Theme
	// Pages maps every document of the manifest to its ordered page links.
	Pages map[uuid.UUID][]string
	// Nonce is applied identically to every page.
	Nonce  string
	Logger *log.Logger
}

// Summary counts what Generate wrote.
type Summary struct {
	Documents int
	Folders   int
	Files     int
}

type walk struct {
	a       *Assembler
	logo    string
	summary Summary
}

// Generate writes the whole site for m.
func (a *Assembler) Generate(m *manifest.Manifest) (Summary, error) {
	w := &walk{a: a}

	logoPages, err := a.pages(m.Logo.ID)
	if err != nil {
		return Summary{}, err
	}
	w.logo = first(logoPages)
	homePages, err := a.pages(m.Home.ID)
	if err != nil {
		return Summary{}, err
	}

	postsDir := filepath.Join(a.Root, PostsDir)
	if err := os.MkdirAll(postsDir, 0o755); err != nil {
		return Summary{}, errors.IO(err, "create", postsDir)
	}

	trail := []theme.Crumb{{Name: HomeCrumb, Link: a.Prefix}}
	docs, folders, err := w.children(trail, postsDir, m.Posts)
	if err != nil {
		return Summary{}, err
	}

	p := a.params(HomeCrumb, w.logo)
	p.Pages = homePages
	p.NavThumbnails = len(homePages) > 1
	p.Documents = docs
	p.Folders = folders
	if err := w.write(filepath.Join(a.Root, IndexFile), a.Theme.RenderIndex, p); err != nil {
		return Summary{}, err
	}

	css := filepath.Join(a.Root, theme.Stylesheet)
	if err := a.Theme.CopyCSS(css); err != nil {
		return Summary{}, err
	}
	w.summary.Files++
	return w.summary, nil
}

// children writes every document and subfolder of posts into dir and returns
// the listing entries for the folder that owns dir.
func (w *walk) children(trail []theme.Crumb, dir string, posts manifest.Posts) ([]theme.DocumentEntry, []theme.FolderEntry, error) {
	var docs []theme.DocumentEntry
	for _, name := range posts.DocumentNames() {
		doc := posts.Documents[name]
		entry, err := w.document(trail, dir, doc)
		if err != nil {
			return nil, nil, err
		}
		docs = append(docs, entry)
	}

	var folders []theme.FolderEntry
	for _, name := range posts.FolderNames() {
		entry, err := w.folder(trail, dir, name, posts.Folders[name])
		if err != nil {
			return nil, nil, err
		}
		folders = append(folders, entry)
	}
	return docs, folders, nil
}

func (w *walk) document(trail []theme.Crumb, parent string, doc manifest.DocumentMeta) (theme.DocumentEntry, error) {
	pages, err := w.a.pages(doc.ID)
	if err != nil {
		return theme.DocumentEntry{}, err
	}

	path := filepath.Join(parent, Sanitize(doc.Name)+".html")
	link, err := Link(w.a.Root, w.a.Prefix, path)
	if err != nil {
		return theme.DocumentEntry{}, err
	}

	p := w.a.params(doc.Name, w.logo)
	p.Breadcrumbs = trail
	p.BackLink = trail[len(trail)-1].Link
	p.Pages = pages
	p.NavThumbnails = len(pages) > 1
	if err := w.write(path, w.a.Theme.RenderDocument, p); err != nil {
		return theme.DocumentEntry{}, err
	}

	w.summary.Documents++
	return theme.DocumentEntry{Name: doc.Name, SVG: first(pages), Link: link}, nil
}

func (w *walk) folder(trail []theme.Crumb, parent, name string, posts manifest.Posts) (theme.FolderEntry, error) {
	seg := Sanitize(name)
	dir := filepath.Join(parent, seg)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return theme.FolderEntry{}, errors.IO(err, "create", dir)
	}

	path := filepath.Join(parent, seg+".html")
	link, err := Link(w.a.Root, w.a.Prefix, path)
	if err != nil {
		return theme.FolderEntry{}, err
	}

	// trail is shared with siblings; never append to it in place.
	inner := append(append(make([]theme.Crumb, 0, len(trail)+1), trail...), theme.Crumb{Name: name, Link: link})
	docs, folders, err := w.children(inner, dir, posts)
	if err != nil {
		return theme.FolderEntry{}, err
	}

	p := w.a.params(name, w.logo)
	p.Breadcrumbs = trail
	p.BackLink = trail[len(trail)-1].Link
	p.Documents = docs
	p.Folders = folders
	if err := w.write(path, w.a.Theme.RenderFolder, p); err != nil {
		return theme.FolderEntry{}, err
	}

	w.summary.Folders++
	return theme.FolderEntry{Name: name, Link: link}, nil
}

func (w *walk) write(path string, render func(io.Writer, theme.Params) error, p theme.Params) error {
	var buf bytes.Buffer
	if err := render(&buf, p); err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "render %s", path)
	}
	if err := pkgio.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return errors.IO(err, "write", path)
	}
	w.a.logger().Debug("wrote page", "path", path)
	w.summary.Files++
	return nil
}

func (a *Assembler) params(name, logo string) theme.Params {
	return theme.Params{
		BuildNonce: a.Nonce,
		Prefix:     a.Prefix,
		Title:      a.Title,
		Name:       name,
		Logo:       logo,
	}
}

func (a *Assembler) pages(id uuid.UUID) ([]string, error) {
	pages, ok := a.Pages[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeSourceIntegrity, "no rendered pages for document %s", id)
	}
	return pages, nil
}

func (a *Assembler) logger() *log.Logger {
	if a.Logger == nil {
		return log.New(io.Discard)
	}
	return a.Logger
}

func first(pages []string) string {
	if len(pages) == 0 {
		return ""
	}
	return pages[0]
}
