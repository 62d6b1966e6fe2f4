package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/inksite/pkg/archive"
	"github.com/matzehuels/inksite/pkg/buildinfo"
	"github.com/matzehuels/inksite/pkg/cache"
	"github.com/matzehuels/inksite/pkg/errors"
	"github.com/matzehuels/inksite/pkg/lines"
	"github.com/matzehuels/inksite/pkg/manifest"
	"github.com/matzehuels/inksite/pkg/observability"
	"github.com/matzehuels/inksite/pkg/render"
	"github.com/matzehuels/inksite/pkg/source"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// docArchive builds an archive with the given number of one-stroke pages.
func docArchive(t *testing.T, id uuid.UUID, pages int) []byte {
	t.Helper()
	entries := []archive.Entry{
		{Name: id.String() + ".content", Data: []byte(`{}`)},
		{Name: id.String() + ".pagedata", Data: []byte(strings.Repeat("P Lines small\n", pages))},
	}
	for i := 0; i < pages; i++ {
		var buf bytes.Buffer
		p := &lines.Page{Layers: []lines.Layer{{Strokes: []lines.Stroke{{
			Pen:   lines.PenFineliner,
			Color: lines.ColorBlack,
			Width: 2,
			Points: []lines.Point{
				{X: 100, Y: 100 + float32(i)*10, Width: 2},
				{X: 300, Y: 400, Width: 2},
			},
		}}}}}
		if err := lines.Encode(&buf, p); err != nil {
			t.Fatal(err)
		}
		entries = append(entries, archive.Entry{Name: fmt.Sprintf("%s/%d.rm", id, i), Data: buf.Bytes()})
	}
	var buf bytes.Buffer
	if err := archive.Write(&buf, entries); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type store struct {
	src  *source.Memory
	ids  map[string]uuid.UUID
	recs map[string]manifest.Record
}

// newStore builds Blog/{Home, Logo, Posts/{Welcome, Recipes/{Soup}}} plus a
// trashed "Blog" folder.
func newStore(t *testing.T) *store {
	t.Helper()
	s := &store{src: source.NewMemory(), ids: map[string]uuid.UUID{}, recs: map[string]manifest.Record{}}
	folder := func(name, parent string) string {
		id := uuid.New()
		s.ids[name] = id
		r := manifest.Record{ID: id, Name: name, Parent: parent, Type: manifest.TypeCollection, ModifiedAt: t0}
		s.recs[name] = r
		s.src.Put(r, nil)
		return id.String()
	}
	doc := func(name, parent string, pages int) {
		id := uuid.New()
		s.ids[name] = id
		r := manifest.Record{ID: id, Name: name, Parent: parent, Type: manifest.TypeDocument, ModifiedAt: t0}
		s.recs[name] = r
		s.src.Put(r, docArchive(t, id, pages))
	}

	blog := folder("Blog", manifest.ParentRoot)
	doc("Home", blog, 2)
	doc("Logo", blog, 1)
	posts := folder("Posts", blog)
	doc("Welcome", posts, 1)
	recipes := folder("Recipes", posts)
	doc("Soup", recipes, 3)

	s.src.Put(manifest.Record{ID: uuid.New(), Name: "Blog", Parent: manifest.ParentTrash, Type: manifest.TypeCollection, ModifiedAt: t0}, nil)
	return s
}

// touch bumps the modification time of a document.
func (s *store) touch(name string, ts time.Time) {
	r := s.recs[name]
	r.ModifiedAt = ts
	s.recs[name] = r
	s.src.Put(r, nil)
}

type dirs struct {
	material string
	build    string
}

func newDirs(t *testing.T) dirs {
	root := t.TempDir()
	return dirs{material: filepath.Join(root, "material"), build: filepath.Join(root, "build")}
}

func (d dirs) generate(t *testing.T, mutate ...func(*GenerateOptions)) (*Result, error) {
	t.Helper()
	opts := GenerateOptions{
		MaterialDir: d.material,
		BuildDir:    d.build,
		Prefix:      "/",
		Title:       "My Notes",
		Workers:     2,
		Now:         func() time.Time { return t0 },
	}
	for _, m := range mutate {
		m(&opts)
	}
	return Generate(context.Background(), opts)
}

func (d dirs) fetch(t *testing.T, s *store) {
	t.Helper()
	if _, err := Fetch(context.Background(), s.src, FetchOptions{MaterialDir: d.material, SiteRoot: "Blog"}); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
}

func TestFetch(t *testing.T) {
	s := newStore(t)
	d := newDirs(t)

	res, err := Fetch(context.Background(), s.src, FetchOptions{MaterialDir: d.material, SiteRoot: "Blog"})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if res.Records != 8 || res.Documents != 4 || res.Downloaded == 0 {
		t.Errorf("FetchResult = %+v", res)
	}

	m, err := manifest.Load(d.material)
	if err != nil {
		t.Fatal(err)
	}
	if m.Home.ID != s.ids["Home"] || m.Posts.Folders["Recipes"].Documents["Soup"].ID != s.ids["Soup"] {
		t.Errorf("manifest = %+v", m)
	}
	for _, name := range []string{"Home", "Logo", "Welcome", "Soup"} {
		if _, err := os.Stat(archive.Path(d.material, s.ids[name])); err != nil {
			t.Errorf("archive of %s missing: %v", name, err)
		}
		if s.src.Downloads(s.ids[name]) != 1 {
			t.Errorf("%s downloaded %d times", name, s.src.Downloads(s.ids[name]))
		}
	}
}

func TestFetchErrors(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := Fetch(ctx, s.src, FetchOptions{MaterialDir: t.TempDir(), SiteRoot: "Nope"})
	if !errors.Is(err, errors.ErrCodeConfig) || !strings.HasPrefix(err.Error(), StageManifest+": ") {
		t.Errorf("unknown root error = %v", err)
	}

	missing := manifest.Record{ID: uuid.New(), Name: "Draft", Parent: s.ids["Posts"].String(), Type: manifest.TypeDocument, ModifiedAt: t0}
	s.src.Put(missing, nil)
	mat := t.TempDir()
	_, err = Fetch(ctx, s.src, FetchOptions{MaterialDir: mat, SiteRoot: "Blog"})
	if !errors.Is(err, errors.ErrCodeSourceIntegrity) || !strings.HasPrefix(err.Error(), StageDownload+": ") {
		t.Errorf("missing archive error = %v", err)
	}
	if _, err := manifest.Load(mat); err != nil {
		t.Errorf("manifest should be saved before downloads: %v", err)
	}

	if _, err := Fetch(ctx, s.src, FetchOptions{MaterialDir: mat}); !errors.Is(err, errors.ErrCodeConfig) {
		t.Errorf("empty site root error = %v", err)
	}
}

func TestFetchRejectsUnreadableArchive(t *testing.T) {
	s := newStore(t)
	s.src.Put(s.recs["Welcome"], []byte("not a zip"))
	mat := t.TempDir()

	_, err := Fetch(context.Background(), s.src, FetchOptions{MaterialDir: mat, SiteRoot: "Blog"})
	if !errors.Is(err, errors.ErrCodeSourceIntegrity) || !strings.HasPrefix(err.Error(), StageDownload+": ") {
		t.Fatalf("Fetch() error = %v, want SOURCE_INTEGRITY from %s", err, StageDownload)
	}
	if _, err := os.Stat(archive.Path(mat, s.ids["Welcome"])); !os.IsNotExist(err) {
		t.Errorf("unreadable archive written to disk: %v", err)
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	s := newStore(t)
	d := newDirs(t)
	d.fetch(t, s)

	res, err := d.generate(t)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if res.Stats.Documents != 4 || res.Stats.Rendered != 4 || res.Stats.Reused != 0 || res.Stats.Pages != 7 {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if res.CacheStatus != cache.StatusEmpty {
		t.Errorf("CacheStatus = %v", res.CacheStatus)
	}

	home, soup := s.ids["Home"].String(), s.ids["Soup"].String()
	for _, f := range []string{
		"index.html",
		"style.css",
		"posts/welcome.html",
		"posts/recipes.html",
		"posts/recipes/soup.html",
		"svg/" + home + "/0.svg",
		"svg/" + home + "/1.svg",
		"svg/" + soup + "/2.svg",
		"svg/" + s.ids["Logo"].String() + "/0.svg",
		cache.FileName,
	} {
		if _, err := os.Stat(filepath.Join(d.build, f)); err != nil {
			t.Errorf("missing %s: %v", f, err)
		}
	}
	if info, err := os.Stat(filepath.Join(d.build, "posts", "recipes")); err != nil || !info.IsDir() {
		t.Errorf("posts/recipes should be a directory: %v", err)
	}

	index, _ := os.ReadFile(filepath.Join(d.build, "index.html"))
	for _, want := range []string{"/posts/welcome.html", "/posts/recipes.html", "/svg/" + home + "/1.svg", "My Notes", "2024-03-01T12-00-00"} {
		if !strings.Contains(string(index), want) {
			t.Errorf("index.html missing %q", want)
		}
	}
	soupHTML, _ := os.ReadFile(filepath.Join(d.build, "posts", "recipes", "soup.html"))
	if !strings.Contains(string(soupHTML), `href="/posts/recipes.html"`) {
		t.Errorf("soup.html should link back to its folder:\n%s", soupHTML)
	}

	var persisted struct {
		Version string               `json:"version"`
		Cache   map[string]time.Time `json:"cache"`
	}
	data, _ := os.ReadFile(filepath.Join(d.build, cache.FileName))
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatal(err)
	}
	if persisted.Version != buildinfo.CacheVersion() || len(persisted.Cache) != 4 || !persisted.Cache[soup].Equal(t0) {
		t.Errorf("persisted cache = %+v", persisted)
	}
}

func TestGenerateIncremental(t *testing.T) {
	s := newStore(t)
	d := newDirs(t)
	d.fetch(t, s)
	if _, err := d.generate(t); err != nil {
		t.Fatal(err)
	}

	welcomeSVG := filepath.Join(d.build, "svg", s.ids["Welcome"].String(), "0.svg")
	before, err := os.Stat(welcomeSVG)
	if err != nil {
		t.Fatal(err)
	}
	beforeData, err := os.ReadFile(welcomeSVG)
	if err != nil {
		t.Fatal(err)
	}

	pages := &countingPages{next: render.NewLinesRenderer()}
	res, err := d.generate(t, func(o *GenerateOptions) { o.Pages = pages })
	if err != nil {
		t.Fatalf("second Generate() error: %v", err)
	}
	if res.Stats.Rendered != 0 || res.Stats.Reused != 4 || res.Stats.Pages != 7 || res.CacheStatus != cache.StatusLoaded {
		t.Errorf("unchanged run: %+v status=%v", res.Stats, res.CacheStatus)
	}
	if n := pages.calls.Load(); n != 0 {
		t.Errorf("unchanged run rendered %d pages, want 0", n)
	}
	after, err := os.Stat(welcomeSVG)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("reused pages must not be rewritten")
	}
	if afterData, err := os.ReadFile(welcomeSVG); err != nil || !bytes.Equal(afterData, beforeData) {
		t.Errorf("reused page changed: %v", err)
	}

	s.touch("Soup", t0.Add(time.Hour))
	d.fetch(t, s)
	res, err = d.generate(t, func(o *GenerateOptions) { o.Pages = pages })
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Rendered != 1 || res.Stats.Reused != 3 {
		t.Errorf("one stale document: %+v", res.Stats)
	}
	if n := pages.calls.Load(); n != 3 {
		t.Errorf("stale run rendered %d pages, want the 3 pages of Soup", n)
	}

	// Older timestamps are stale too.
	s.touch("Soup", t0.Add(-time.Hour))
	d.fetch(t, s)
	if res, err = d.generate(t); err != nil || res.Stats.Rendered != 1 {
		t.Errorf("older timestamp: %+v, %v", res, err)
	}

	res, err = d.generate(t, func(o *GenerateOptions) { o.NoCache = true })
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Rendered != 4 {
		t.Errorf("NoCache should render everything: %+v", res.Stats)
	}
	if res, err = d.generate(t); err != nil || res.Stats.Rendered != 0 {
		t.Errorf("NoCache should still save the cache: %+v, %v", res, err)
	}
}

// countingPages counts the pages it renders.
type countingPages struct {
	next  render.PageRenderer
	calls atomic.Int64
}

func (c *countingPages) RenderPage(page []byte, mode render.Mode, template string) ([]byte, error) {
	c.calls.Add(1)
	return c.next.RenderPage(page, mode, template)
}

func TestGenerateCacheCorrupt(t *testing.T) {
	s := newStore(t)
	d := newDirs(t)
	d.fetch(t, s)
	if _, err := d.generate(t); err != nil {
		t.Fatal(err)
	}

	if err := os.RemoveAll(filepath.Join(d.build, "svg", s.ids["Welcome"].String())); err != nil {
		t.Fatal(err)
	}
	_, err := d.generate(t)
	if !errors.Is(err, errors.ErrCodeCacheCorrupt) {
		t.Fatalf("Generate() error = %v, want CACHE_CORRUPT", err)
	}
	if !strings.HasPrefix(err.Error(), StageRender+": ") || !strings.Contains(err.Error(), s.ids["Welcome"].String()) {
		t.Errorf("error should name the stage and document: %v", err)
	}
}

func TestGenerateNullBackend(t *testing.T) {
	s := newStore(t)
	d := newDirs(t)
	d.fetch(t, s)

	for i := 0; i < 2; i++ {
		res, err := d.generate(t, func(o *GenerateOptions) { o.Backend = cache.NewNullBackend() })
		if err != nil {
			t.Fatal(err)
		}
		if res.Stats.Rendered != 4 {
			t.Errorf("run %d: null backend should never reuse: %+v", i, res.Stats)
		}
	}
	if _, err := os.Stat(filepath.Join(d.build, cache.FileName)); !os.IsNotExist(err) {
		t.Error("null backend must not write a cache file")
	}
}

func TestGenerateSiteMap(t *testing.T) {
	s := newStore(t)
	d := newDirs(t)
	d.fetch(t, s)
	if _, err := d.generate(t, func(o *GenerateOptions) { o.SiteMap = true }); err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(d.build, "sitemap.svg")); err != nil {
		t.Errorf("sitemap.svg missing: %v", err)
	}
}

func TestGenerateErrors(t *testing.T) {
	d := newDirs(t)
	_, err := d.generate(t)
	if !errors.Is(err, errors.ErrCodeIO) || !strings.HasPrefix(err.Error(), StageLoadManifest+": ") {
		t.Errorf("missing manifest error = %v", err)
	}

	_, err = d.generate(t, func(o *GenerateOptions) { o.Prefix = "blog" })
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad prefix error = %v", err)
	}

	s := newStore(t)
	d.fetch(t, s)
	if err := os.MkdirAll(d.build, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(d.build, cache.FileName), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = d.generate(t)
	if !errors.Is(err, errors.ErrCodeCacheCorrupt) || !strings.HasPrefix(err.Error(), StageLoadCache+": ") {
		t.Errorf("undecodable cache error = %v", err)
	}
}

type stageRecorder struct {
	observability.NoopPipelineHooks
	mu     sync.Mutex
	stages []string
	failed []string
}

func (r *stageRecorder) OnStageComplete(_ context.Context, stage string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
	if err != nil {
		r.failed = append(r.failed, stage)
	}
}

func TestGenerateStageHooks(t *testing.T) {
	rec := &stageRecorder{}
	observability.SetPipelineHooks(rec)
	defer observability.Reset()

	s := newStore(t)
	d := newDirs(t)
	d.fetch(t, s)
	if _, err := d.generate(t); err != nil {
		t.Fatal(err)
	}

	want := []string{
		StageList, StageManifest, StageDownload,
		StageLoadManifest, StageLoadCache, StageRender, StageAssemble, StageSaveCache,
	}
	if strings.Join(rec.stages, ",") != strings.Join(want, ",") {
		t.Errorf("stages = %v, want %v", rec.stages, want)
	}
	if len(rec.failed) != 0 {
		t.Errorf("failed stages = %v", rec.failed)
	}
}

func TestJobs(t *testing.T) {
	s := newStore(t)
	d := newDirs(t)
	d.fetch(t, s)
	m, err := manifest.Load(d.material)
	if err != nil {
		t.Fatal(err)
	}

	jobs := Jobs(m)
	if len(jobs) != 4 {
		t.Fatalf("Jobs() = %d jobs", len(jobs))
	}
	for _, j := range jobs {
		wantCrop := j.ID == s.ids["Logo"]
		if (j.Mode.String() == "crop") != wantCrop {
			t.Errorf("job %s mode = %v", j.Name, j.Mode)
		}
	}
}
