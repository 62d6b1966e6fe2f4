package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/inksite/pkg/buildinfo"
	"github.com/matzehuels/inksite/pkg/cache"
	"github.com/matzehuels/inksite/pkg/manifest"
	"github.com/matzehuels/inksite/pkg/render"
	"github.com/matzehuels/inksite/pkg/site"
	"github.com/matzehuels/inksite/pkg/sitemap"
)

// Generate builds the site in opts.BuildDir from the material fetched into
// opts.MaterialDir.
//
// Documents whose cached timestamp equals the manifest's are reused from the
// previous run; all others are rendered. Home and posts render on the full
// canvas, the logo is cropped to its ink. The cache is updated only once
// every document is up to date, and saved only after the HTML is written.
func Generate(ctx context.Context, opts GenerateOptions) (*Result, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	start := time.Now()

	m, err := stage(ctx, StageLoadManifest, func() (*manifest.Manifest, error) {
		return manifest.Load(opts.MaterialDir)
	})
	if err != nil {
		return nil, err
	}

	result := &Result{}
	bc, err := stage(ctx, StageLoadCache, func() (*cache.BuildCache, error) {
		version := buildinfo.CacheVersion()
		if opts.NoCache {
			result.CacheStatus = cache.StatusEmpty
			return cache.New(version), nil
		}
		c, status, err := cache.Load(ctx, opts.Backend, version)
		result.CacheStatus = status
		return c, err
	})
	if err != nil {
		return nil, err
	}
	switch {
	case opts.NoCache:
		logger.Info("ignoring build cache", "backend", opts.Backend.Name())
	case result.CacheStatus == cache.StatusStale:
		logger.Warn("build cache was written by another version, rendering everything", "location", opts.Backend.Location())
	default:
		logger.Debug("loaded build cache", "status", result.CacheStatus, "entries", bc.Len(), "location", opts.Backend.Location())
	}

	jobs := Jobs(m)
	renderer := &render.Renderer{
		Root:    opts.BuildDir,
		Prefix:  opts.Prefix,
		Pages:   opts.Pages,
		Workers: opts.Workers,
		Logger:  logger,
	}
	renderStart := time.Now()
	artifacts, err := stage(ctx, StageRender, func() (map[uuid.UUID]render.Artifact, error) {
		return renderer.RenderAll(ctx, jobs, bc, render.MaterialDir(opts.MaterialDir))
	})
	if err != nil {
		return nil, err
	}
	result.Stats.RenderTime = time.Since(renderStart)

	// Every document is now up to date, hit or miss.
	pages := make(map[uuid.UUID][]string, len(artifacts))
	for _, job := range jobs {
		art := artifacts[job.ID]
		bc.Record(job.ID, job.ModifiedAt)
		pages[job.ID] = art.Pages
		result.Stats.Pages += len(art.Pages)
		if art.Rendered {
			result.Stats.Rendered++
		} else {
			result.Stats.Reused++
		}
	}
	result.Stats.Documents = len(jobs)
	logger.Info("pages up to date",
		"rendered", result.Stats.Rendered,
		"reused", result.Stats.Reused,
		"pages", result.Stats.Pages,
		"duration", result.Stats.RenderTime)

	assembleStart := time.Now()
	summary, err := stage(ctx, StageAssemble, func() (site.Summary, error) {
		a := &site.Assembler{
			Root:   opts.BuildDir,
			Prefix: opts.Prefix,
			Title:  opts.Title,
			Theme:  opts.Theme,
			Pages:  pages,
			Nonce:  site.Nonce(opts.Now()),
			Logger: logger,
		}
		return a.Generate(m)
	})
	if err != nil {
		return nil, err
	}
	result.Stats.AssembleTime = time.Since(assembleStart)
	result.Stats.Folders = summary.Folders
	result.Stats.Files = summary.Files
	logger.Info("assembled site", "files", summary.Files, "folders", summary.Folders, "duration", result.Stats.AssembleTime)

	if opts.SiteMap {
		err := run(ctx, StageSiteMap, func() error {
			return sitemap.Write(ctx, m, opts.BuildDir, sitemap.Options{Prefix: opts.Prefix})
		})
		if err != nil {
			return nil, err
		}
	}

	err = run(ctx, StageSaveCache, func() error {
		return bc.Save(ctx, opts.Backend)
	})
	if err != nil {
		return nil, err
	}

	result.Stats.TotalTime = time.Since(start)
	return result, nil
}

// Jobs lists the render jobs for m: home and posts on the full canvas, the
// logo cropped.
func Jobs(m *manifest.Manifest) []render.Job {
	docs := m.Docs()
	jobs := make([]render.Job, 0, len(docs))
	for _, d := range docs {
		mode := render.ModeCanvas
		if d.ID == m.Logo.ID {
			mode = render.ModeCrop
		}
		jobs = append(jobs, render.Job{ID: d.ID, Name: d.Name, ModifiedAt: d.ModifiedAt, Mode: mode})
	}
	return jobs
}
