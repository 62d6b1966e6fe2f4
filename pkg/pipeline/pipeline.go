// Package pipeline orchestrates a site build.
//
// A build has two phases, usually run as separate commands:
//
//  1. Fetch: list the document store, resolve the site root into a
//     manifest, persist it, and download one archive per document into the
//     material directory.
//  2. Generate: load the manifest and the build cache, bring every
//     document's page images up to date in parallel, assemble the HTML,
//     and persist the cache.
//
// # Material directory
//
//	<material>/manifest.json
//	<material>/zip/<id>.zip
//
// # Output tree
//
//	<build>/index.html
//	<build>/style.css
//	<build>/posts/...
//	<build>/svg/<id>/<n>.svg
//	<build>/render_cache.json      (file cache backend only)
//	<build>/sitemap.svg            (with SiteMap set)
//
// Every error is prefixed with the stage it came from ("render: ...",
// "assemble: ...") and keeps its [errors.Code] for the caller.
//
// # Usage
//
//	_, err := pipeline.Fetch(ctx, source.NewDir(exportDir), pipeline.FetchOptions{
//	    MaterialDir: "material",
//	    SiteRoot:    "Blog",
//	})
//
//	result, err := pipeline.Generate(ctx, pipeline.GenerateOptions{
//	    MaterialDir: "material",
//	    BuildDir:    "build",
//	    Prefix:      "/",
//	    Title:       "My Notes",
//	})
//	fmt.Println(result.Stats.Rendered, "rendered,", result.Stats.Reused, "reused")
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/inksite/pkg/cache"
	"github.com/matzehuels/inksite/pkg/errors"
	"github.com/matzehuels/inksite/pkg/observability"
	"github.com/matzehuels/inksite/pkg/render"
	"github.com/matzehuels/inksite/pkg/theme"
)

// Stage names, used as error prefixes and in pipeline hooks.
const (
	StageList         = "list"
	StageManifest     = "manifest"
	StageDownload     = "download"
	StageLoadManifest = "load manifest"
	StageLoadCache    = "load cache"
	StageRender       = "render"
	StageAssemble     = "assemble"
	StageSiteMap      = "sitemap"
	StageSaveCache    = "save cache"
)

// DefaultPrefix is the URL prefix used when none is configured.
const DefaultPrefix = "/"

// FetchOptions configures [Fetch].
type FetchOptions struct {
	// MaterialDir receives manifest.json and zip/<id>.zip.
	MaterialDir string
	// SiteRoot names the root folder, or holds its UUID.
	SiteRoot string
	// Workers bounds concurrent downloads. Zero means GOMAXPROCS.
	Workers int
	Logger  *log.Logger
}

func (o *FetchOptions) validate() error {
	if o.MaterialDir == "" {
		return errors.New(errors.ErrCodeInvalidInput, "material directory is required")
	}
	if o.SiteRoot == "" {
		return errors.New(errors.ErrCodeConfig, "site root is required")
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// GenerateOptions configures [Generate].
type GenerateOptions struct {
	MaterialDir string
	BuildDir    string
	// Prefix is the URL prefix of every link. Defaults to "/".
	Prefix string
	Title  string
	// Theme defaults to [theme.Default].
	Theme theme.Theme
	// Backend persists the build cache. Defaults to <BuildDir>/render_cache.json.
	// Generate does not close it.
	Backend cache.Backend
	// NoCache ignores the persisted cache. The fresh one is still saved.
	NoCache bool
	// Workers bounds the render fan-out. Zero means GOMAXPROCS.
	Workers int
	// SiteMap also writes sitemap.svg.
	SiteMap bool
	// Pages renders individual pages. Defaults to [render.LinesRenderer].
	Pages  render.PageRenderer
	Logger *log.Logger
	// Now stamps the build nonce. Defaults to time.Now.
	Now func() time.Time
}

func (o *GenerateOptions) validate() error {
	if o.MaterialDir == "" || o.BuildDir == "" {
		return errors.New(errors.ErrCodeInvalidInput, "material and build directories are required")
	}
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	if err := errors.ValidatePrefix(o.Prefix); err != nil {
		return err
	}
	if o.Theme == nil {
		o.Theme = theme.Default()
	}
	if o.Backend == nil {
		o.Backend = cache.NewFileBackend(o.BuildDir)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return nil
}

// Result contains the outputs of a generate run.
type Result struct {
	// CacheStatus tells how the build cache was obtained.
	CacheStatus cache.Status
	Stats       Stats
}

// Stats contains generate statistics.
type Stats struct {
	Documents int
	Rendered  int
	Reused    int
	Pages     int
	Folders   int
	// Files counts HTML and CSS files written by the assembler.
	Files int

	RenderTime   time.Duration
	AssembleTime time.Duration
	TotalTime    time.Duration
}

// FetchResult contains the outputs of a fetch run.
type FetchResult struct {
	Records    int
	Documents  int
	Downloaded int64
}

// stage runs fn as a named stage: hooks fire around it and its error is
// prefixed with the stage name.
func stage[T any](ctx context.Context, name string, fn func() (T, error)) (T, error) {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, name)
	start := time.Now()
	v, err := fn()
	hooks.OnStageComplete(ctx, name, time.Since(start), err)
	if err != nil {
		return v, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

// run is stage for functions without a result.
func run(ctx context.Context, name string, fn func() error) error {
	_, err := stage(ctx, name, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}
