// Package sitemap draws the structure of a site as a Graphviz diagram.
//
// The diagram is a top-down tree: the home page at the top, one box per
// folder and one note-shaped node per document, with edges from each folder
// to its children. The logo hangs off the home page. When a URL prefix is
// given, every node links to its generated page.
package sitemap

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/inksite/pkg/errors"
	pkgio "github.com/matzehuels/inksite/pkg/io"
	"github.com/matzehuels/inksite/pkg/manifest"
	"github.com/matzehuels/inksite/pkg/site"
)

// FileName is the site map written below the output root.
const FileName = "sitemap.svg"

// Options configures the diagram.
type Options struct {
	// Prefix, when set, turns every node into a link to its page.
	Prefix string
	// Detailed adds the modification time to document labels.
	Detailed bool
}

// ToDOT converts a manifest to Graphviz DOT. Node order follows
// [manifest.Posts.DocumentNames] and [manifest.Posts.FolderNames], so the
// output is stable for a given manifest.
func ToDOT(m *manifest.Manifest, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	d := &dot{buf: &buf, opts: opts}
	d.node("home", site.HomeCrumb, d.link(""), "shape=house", "fillcolor=lightyellow")
	d.node(m.Logo.ID.String(), m.Logo.Name, "", "shape=note", "style=\"filled,dashed\"", "fillcolor=lightgrey")
	d.edge("home", m.Logo.ID.String())
	d.posts("home", site.PostsDir, m.Posts)

	buf.WriteString("}\n")
	return buf.String()
}

type dot struct {
	buf  *bytes.Buffer
	opts Options
}

func (d *dot) posts(parent, dir string, p manifest.Posts) {
	for _, name := range p.DocumentNames() {
		doc := p.Documents[name]
		id := doc.ID.String()
		d.node(id, d.label(doc), d.link(path.Join(dir, site.Sanitize(name)+".html")), "shape=note")
		d.edge(parent, id)
	}
	for _, name := range p.FolderNames() {
		seg := path.Join(dir, site.Sanitize(name))
		d.node(seg, name, d.link(seg+".html"), "shape=folder", "fillcolor=aliceblue")
		d.edge(parent, seg)
		d.posts(seg, seg, p.Folders[name])
	}
}

func (d *dot) label(doc manifest.DocumentMeta) string {
	if !d.opts.Detailed {
		return doc.Name
	}
	return doc.Name + "\n" + doc.ModifiedAt.UTC().Format("2006-01-02 15:04")
}

func (d *dot) link(rel string) string {
	if d.opts.Prefix == "" {
		return ""
	}
	if rel == "" {
		return d.opts.Prefix
	}
	l, err := site.Link(".", d.opts.Prefix, filepath.FromSlash(rel))
	if err != nil {
		return ""
	}
	return l
}

func (d *dot) node(id, label, url string, attrs ...string) {
	all := append([]string{fmt.Sprintf("label=%q", label)}, attrs...)
	if url != "" {
		all = append(all, fmt.Sprintf("URL=%q", url), "target=\"_top\"")
	}
	fmt.Fprintf(d.buf, "  %q [%s];\n", id, strings.Join(all, ", "))
}

func (d *dot) edge(from, to string) {
	fmt.Fprintf(d.buf, "  %q -> %q;\n", from, to)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "render site map")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

// Write renders the site map of m to <root>/sitemap.svg.
func Write(ctx context.Context, m *manifest.Manifest, root string, opts Options) error {
	svg, err := RenderSVG(ctx, ToDOT(m, opts))
	if err != nil {
		return err
	}
	p := filepath.Join(root, FileName)
	if err := pkgio.WriteFileAtomic(p, svg); err != nil {
		return errors.IO(err, "write", p)
	}
	return nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one that
// scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
