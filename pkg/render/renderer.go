package render

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/inksite/pkg/errors"
	"github.com/matzehuels/inksite/pkg/observability"
	"github.com/matzehuels/inksite/pkg/site"
)

// SVGDir is the directory below the output root holding page images.
const SVGDir = "svg"

// Entries is random access to the named entries of a document archive.
type Entries interface {
	Names() []string
	ReadFile(name string) ([]byte, error)
}

// Artifact is the ordered list of page links of one document.
type Artifact struct {
	ID    uuid.UUID
	Pages []string
	// Rendered is false when the pages were reused from a previous run.
	Rendered bool
}

// Renderer renders documents below an output root.
type Renderer struct {
	// Root is the output root; pages go to Root/svg/<id>/<n>.svg.
	Root string
	// Prefix is prepended to root-relative page links.
	Prefix string
	// Pages renders individual pages. Defaults to a [LinesRenderer].
	Pages PageRenderer
	// Workers bounds the fan-out of [Renderer.RenderAll]. Zero means GOMAXPROCS.
	Workers int
	Logger  *log.Logger
}

// New returns a Renderer with the default page renderer and a discard logger.
func New(root, prefix string) *Renderer {
	return &Renderer{Root: root, Prefix: prefix}
}

func (r *Renderer) pages() PageRenderer {
	if r.Pages == nil {
		return NewLinesRenderer()
	}
	return r.Pages
}

func (r *Renderer) logger() *log.Logger {
	if r.Logger == nil {
		return log.New(io.Discard)
	}
	return r.Logger
}

// Dir returns the page directory of id.
func (r *Renderer) Dir(id uuid.UUID) string {
	return filepath.Join(r.Root, SVGDir, id.String())
}

type page struct {
	n    int
	link string
}

// RenderDocument renders every page of the archive of id. The page directory
// is removed and recreated first, so stale pages never survive a render.
func (r *Renderer) RenderDocument(ctx context.Context, id uuid.UUID, a Entries, mode Mode) (Artifact, error) {
	start := time.Now()
	dir := r.Dir(id)
	if err := os.RemoveAll(dir); err != nil {
		return Artifact{}, errors.IO(err, "remove", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, errors.IO(err, "create", dir)
	}

	names := a.Names()
	templates, err := readTemplates(a, names)
	if err != nil {
		return Artifact{}, err
	}

	prefix := id.String() + "/"
	var pages []page
	seen := make(map[int]string)
	for _, name := range names {
		if !strings.HasSuffix(name, ".rm") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Artifact{}, err
		}

		n, err := pageNumber(name, prefix)
		if err != nil {
			return Artifact{}, err
		}
		if other, dup := seen[n]; dup {
			return Artifact{}, errors.New(errors.ErrCodeSourceIntegrity, "entries %q and %q are both page %d", other, name, n)
		}
		seen[n] = name

		data, err := a.ReadFile(name)
		if err != nil {
			return Artifact{}, err
		}
		var template string
		if n < len(templates) {
			template = templates[n]
		}

		svg, err := r.pages().RenderPage(data, mode, template)
		if err != nil {
			return Artifact{}, errors.Wrap(errors.ErrCodeRender, err, "render page %d", n)
		}

		out := filepath.Join(dir, strconv.Itoa(n)+".svg")
		if err := os.WriteFile(out, svg, 0o644); err != nil {
			return Artifact{}, errors.IO(err, "write", out)
		}
		link, err := site.Link(r.Root, r.Prefix, out)
		if err != nil {
			return Artifact{}, err
		}
		r.logger().Debug("rendered page", "id", id, "page", n, "template", template, "mode", mode)
		pages = append(pages, page{n: n, link: link})
	}

	art := Artifact{ID: id, Pages: sortPages(pages), Rendered: true}
	observability.Render().OnDocumentRendered(ctx, id.String(), len(art.Pages), time.Since(start))
	return art, nil
}

// ReuseDocument lists the pages rendered by a previous run. A missing or
// unreadable directory, or any entry that is not exactly <n>.svg for a
// distinct page n, means the cache lied and is reported as cache corruption.
func (r *Renderer) ReuseDocument(ctx context.Context, id uuid.UUID) (Artifact, error) {
	dir := r.Dir(id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Artifact{}, errors.Wrap(errors.ErrCodeCacheCorrupt, err, "cache hit for %s but pages at %s are unreadable", id, dir)
	}

	pages := make([]page, 0, len(entries))
	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		name := e.Name()
		stem, isSVG := strings.CutSuffix(name, ".svg")
		n, ok := parsePage(stem)
		if !isSVG || !ok || e.IsDir() {
			return Artifact{}, errors.New(errors.ErrCodeCacheCorrupt, "cache hit for %s but %s is not a page", id, filepath.Join(dir, name))
		}
		if seen[n] {
			return Artifact{}, errors.New(errors.ErrCodeCacheCorrupt, "cache hit for %s but page %d appears twice in %s", id, n, dir)
		}
		seen[n] = true
		link, err := site.Link(r.Root, r.Prefix, filepath.Join(dir, name))
		if err != nil {
			return Artifact{}, err
		}
		pages = append(pages, page{n: n, link: link})
	}

	art := Artifact{ID: id, Pages: sortPages(pages)}
	observability.Render().OnDocumentReused(ctx, id.String(), len(art.Pages))
	return art, nil
}

// readTemplates returns the lines of the first .pagedata entry, or nil.
func readTemplates(a Entries, names []string) ([]string, error) {
	for _, name := range names {
		if !strings.HasSuffix(name, ".pagedata") {
			continue
		}
		data, err := a.ReadFile(name)
		if err != nil {
			return nil, err
		}
		return strings.Split(strings.TrimRight(string(data), "\n"), "\n"), nil
	}
	return nil, nil
}

// pageNumber parses "<id>/<n>.rm".
func pageNumber(name, prefix string) (int, error) {
	stem := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".rm")
	n, ok := parsePage(stem)
	if !ok {
		return 0, errors.New(errors.ErrCodeSourceIntegrity, "archive entry %q is not a page of this document", name)
	}
	return n, nil
}

// parsePage accepts only the canonical decimal form of a page number: no
// sign, no leading zeros.
func parsePage(stem string) (int, bool) {
	n, err := strconv.Atoi(stem)
	if err != nil || n < 0 || strconv.Itoa(n) != stem {
		return 0, false
	}
	return n, true
}

// sortPages orders pages by number, never lexicographically.
func sortPages(pages []page) []string {
	slices.SortFunc(pages, func(a, b page) int { return a.n - b.n })
	links := make([]string, len(pages))
	for i, p := range pages {
		links[i] = p.link
	}
	return links
}
