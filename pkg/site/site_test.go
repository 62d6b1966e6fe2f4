package site

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/inksite/pkg/errors"
	"github.com/matzehuels/inksite/pkg/manifest"
	"github.com/matzehuels/inksite/pkg/theme"
)

// recordingTheme writes a one-line summary of each page and keeps the params.
type recordingTheme struct {
	params map[string]theme.Params // by Name
	css    int
}

func newRecordingTheme() *recordingTheme {
	return &recordingTheme{params: map[string]theme.Params{}}
}

func (r *recordingTheme) render(kind string) func(io.Writer, theme.Params) error {
	return func(w io.Writer, p theme.Params) error {
		r.params[kind+":"+p.Name] = p
		_, err := fmt.Fprintf(w, "%s %s back=%s", kind, p.Name, p.BackLink)
		return err
	}
}

func (r *recordingTheme) RenderIndex(w io.Writer, p theme.Params) error {
	return r.render("index")(w, p)
}

func (r *recordingTheme) RenderDocument(w io.Writer, p theme.Params) error {
	return r.render("document")(w, p)
}

func (r *recordingTheme) RenderFolder(w io.Writer, p theme.Params) error {
	return r.render("folder")(w, p)
}

func (r *recordingTheme) CopyCSS(dst string) error {
	r.css++
	return os.WriteFile(dst, []byte("css"), 0o644)
}

func meta(name string) manifest.DocumentMeta {
	return manifest.DocumentMeta{ID: uuid.New(), Name: name, ModifiedAt: time.Now().UTC()}
}

func posts(docs map[string]manifest.DocumentMeta, folders map[string]manifest.Posts) manifest.Posts {
	if docs == nil {
		docs = map[string]manifest.DocumentMeta{}
	}
	if folders == nil {
		folders = map[string]manifest.Posts{}
	}
	return manifest.Posts{Documents: docs, Folders: folders}
}

// fixture is Home, Logo, Posts/{Welcome, A/{B/{Deep}}, Recipes/{Soup, Bread}}.
func fixture() (*manifest.Manifest, map[uuid.UUID][]string) {
	deep, welcome, soup, bread := meta("Deep"), meta("Welcome"), meta("Soup"), meta("Bread")
	m := &manifest.Manifest{
		Home: meta("Home"),
		Logo: meta("Logo"),
		Posts: posts(
			map[string]manifest.DocumentMeta{"Welcome": welcome},
			map[string]manifest.Posts{
				"A": posts(nil, map[string]manifest.Posts{
					"B": posts(map[string]manifest.DocumentMeta{"Deep": deep}, nil),
				}),
				"Recipes": posts(map[string]manifest.DocumentMeta{"Soup": soup, "Bread": bread}, nil),
			},
		),
	}
	pages := map[uuid.UUID][]string{}
	for _, d := range m.Docs() {
		pages[d.ID] = []string{"/svg/" + d.ID.String() + "/0.svg"}
	}
	pages[m.Home.ID] = append(pages[m.Home.ID], "/svg/"+m.Home.ID.String()+"/1.svg")
	return m, pages
}

func TestGenerateTree(t *testing.T) {
	root := t.TempDir()
	m, pages := fixture()
	th := newRecordingTheme()
	a := &Assembler{Root: root, Prefix: "/", Title: "Notes", Theme: th, Pages: pages, Nonce: "n1"}

	summary, err := a.Generate(m)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if summary.Documents != 4 || summary.Folders != 3 {
		t.Errorf("summary = %+v", summary)
	}

	files := []string{
		"index.html", "style.css",
		"posts/welcome.html",
		"posts/a.html", "posts/a/b.html", "posts/a/b/deep.html",
		"posts/recipes.html", "posts/recipes/soup.html", "posts/recipes/bread.html",
	}
	for _, f := range files {
		info, err := os.Stat(filepath.Join(root, f))
		if err != nil || info.IsDir() {
			t.Errorf("%s should be a file: %v", f, err)
		}
	}
	dirs := []string{"posts", "posts/a", "posts/a/b", "posts/recipes"}
	for _, d := range dirs {
		info, err := os.Stat(filepath.Join(root, d))
		if err != nil || !info.IsDir() {
			t.Errorf("%s should be a directory: %v", d, err)
		}
	}
	for _, doc := range []string{"posts/welcome", "posts/recipes/soup", "posts/a/b/deep"} {
		if _, err := os.Stat(filepath.Join(root, doc)); !os.IsNotExist(err) {
			t.Errorf("document %s must not yield a directory", doc)
		}
	}
	if th.css != 1 {
		t.Errorf("CopyCSS called %d times", th.css)
	}
}

func TestGenerateBreadcrumbs(t *testing.T) {
	m, pages := fixture()
	th := newRecordingTheme()
	a := &Assembler{Root: t.TempDir(), Prefix: "https://example.com/notes", Title: "Notes", Theme: th, Pages: pages}

	if _, err := a.Generate(m); err != nil {
		t.Fatal(err)
	}

	deep := th.params["document:Deep"]
	want := []theme.Crumb{
		{Name: "Home", Link: "https://example.com/notes"},
		{Name: "A", Link: "https://example.com/notes/posts/a.html"},
		{Name: "B", Link: "https://example.com/notes/posts/a/b.html"},
	}
	if len(deep.Breadcrumbs) != len(want) {
		t.Fatalf("breadcrumbs = %+v", deep.Breadcrumbs)
	}
	for i := range want {
		if deep.Breadcrumbs[i] != want[i] {
			t.Errorf("crumb %d = %+v, want %+v", i, deep.Breadcrumbs[i], want[i])
		}
	}
	if deep.BackLink != want[2].Link {
		t.Errorf("BackLink = %q, want %q", deep.BackLink, want[2].Link)
	}

	b := th.params["folder:B"]
	if len(b.Breadcrumbs) != 2 || b.BackLink != want[1].Link {
		t.Errorf("folder B trail = %+v back=%q", b.Breadcrumbs, b.BackLink)
	}

	welcome := th.params["document:Welcome"]
	if len(welcome.Breadcrumbs) != 1 || welcome.BackLink != "https://example.com/notes" {
		t.Errorf("top-level document trail = %+v back=%q", welcome.Breadcrumbs, welcome.BackLink)
	}
}

func TestGenerateListings(t *testing.T) {
	m, pages := fixture()
	th := newRecordingTheme()
	a := &Assembler{Root: t.TempDir(), Prefix: "/", Title: "Notes", Theme: th, Pages: pages, Nonce: "n1"}
	if _, err := a.Generate(m); err != nil {
		t.Fatal(err)
	}

	recipes := th.params["folder:Recipes"]
	if len(recipes.Documents) != 2 || recipes.Documents[0].Name != "Bread" || recipes.Documents[1].Name != "Soup" {
		t.Fatalf("Recipes documents = %+v", recipes.Documents)
	}
	soup := m.Posts.Folders["Recipes"].Documents["Soup"]
	if got := recipes.Documents[1]; got.Link != "/posts/recipes/soup.html" || got.SVG != pages[soup.ID][0] {
		t.Errorf("Soup entry = %+v", got)
	}

	index := th.params["index:Home"]
	if len(index.Folders) != 2 || index.Folders[0] != (theme.FolderEntry{Name: "A", Link: "/posts/a.html"}) {
		t.Errorf("index folders = %+v", index.Folders)
	}
	if len(index.Documents) != 1 || index.Documents[0].Link != "/posts/welcome.html" {
		t.Errorf("index documents = %+v", index.Documents)
	}
	if !index.NavThumbnails || len(index.Pages) != 2 {
		t.Errorf("index pages = %v thumbnails=%v", index.Pages, index.NavThumbnails)
	}
	if index.Logo != pages[m.Logo.ID][0] || index.Title != "Notes" || index.BuildNonce != "n1" {
		t.Errorf("index params = %+v", index)
	}
	if th.params["document:Soup"].NavThumbnails {
		t.Error("single-page documents should not render thumbnails")
	}
}

func TestGenerateDeterministic(t *testing.T) {
	m, pages := fixture()
	read := func() string {
		root := t.TempDir()
		a := &Assembler{Root: root, Prefix: "/", Title: "Notes", Theme: theme.Default(), Pages: pages, Nonce: "n1"}
		if _, err := a.Generate(m); err != nil {
			t.Fatal(err)
		}
		var b strings.Builder
		_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			rel, _ := filepath.Rel(root, path)
			data, _ := os.ReadFile(path)
			fmt.Fprintf(&b, "%s\n%s\n", rel, data)
			return nil
		})
		return b.String()
	}
	if read() != read() {
		t.Error("two runs over the same manifest should write identical trees")
	}
}

func TestGenerateMissingPages(t *testing.T) {
	m, pages := fixture()
	delete(pages, m.Posts.Folders["Recipes"].Documents["Soup"].ID)

	a := &Assembler{Root: t.TempDir(), Prefix: "/", Theme: newRecordingTheme(), Pages: pages}
	_, err := a.Generate(m)
	if !errors.Is(err, errors.ErrCodeSourceIntegrity) {
		t.Errorf("Generate() error = %v, want SOURCE_INTEGRITY", err)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Welcome", "welcome"},
		{"My Recipes", "my-recipes"},
		{"a/b", "a-b"},
		{"Crème brûlée", "cr-me-br-l-e"},
		{"2024 Notes!", "2024-notes-"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLink(t *testing.T) {
	root := filepath.Join(t.TempDir(), "build")
	tests := []struct {
		prefix, path, want string
	}{
		{"/", filepath.Join(root, "posts", "a.html"), "/posts/a.html"},
		{"/blog", filepath.Join(root, "svg", "x", "0.svg"), "/blog/svg/x/0.svg"},
		{"/blog/", filepath.Join(root, "index.html"), "/blog/index.html"},
		{"https://example.com", filepath.Join(root, "posts", "a.html"), "https://example.com/posts/a.html"},
		{"/blog", root, "/blog"},
	}
	for _, tt := range tests {
		got, err := Link(root, tt.prefix, tt.path)
		if err != nil {
			t.Errorf("Link(%q) error: %v", tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Link(%q, %q) = %q, want %q", tt.prefix, tt.path, got, tt.want)
		}
	}

	if _, err := Link(root, "/", filepath.Join(filepath.Dir(root), "other")); err == nil {
		t.Error("Link outside root should fail")
	}
}

func TestNonce(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 5, 0, time.FixedZone("CET", 3600))
	if got := Nonce(ts); got != "2024-03-01T11-30-05" {
		t.Errorf("Nonce() = %q", got)
	}
}
