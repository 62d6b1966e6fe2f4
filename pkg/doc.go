// Package pkg holds the libraries behind inksite, an incremental static-site
// generator for handwritten notebooks.
//
// # Overview
//
// A build turns a folder tree of notebook documents in a document store into
// one SVG per page and one HTML page per document and folder. The pkg
// directory is organized by stage:
//
//  1. [source] - document stores (export directory on disk or over HTTP)
//  2. [manifest] - resolves the flat record listing into the site tree
//  3. [cache] - per-document timestamps of the last render, with file and
//     redis backends
//  4. [render] - archive pages to SVG, fanned out in parallel
//  5. [site] and [theme] - HTML assembly with breadcrumbs and listings
//  6. [pipeline] - orchestration of fetch and generate
//
// Supporting packages: [archive] and [lines] decode document archives and
// their page format, [sitemap] draws the site tree with Graphviz, [preview]
// serves and rebuilds a site, [config] loads inksite.toml, and [errors],
// [io], [observability], [httputil] and [buildinfo] carry the ambient
// concerns.
//
// # Architecture
//
//	document store
//	      ↓
//	 [pipeline.Fetch]    manifest.json + zip/<id>.zip
//	      ↓
//	 [pipeline.Generate] cache → render (parallel) → assemble → save cache
//	      ↓
//	 index.html, posts/..., svg/<id>/<n>.svg
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/matzehuels/inksite/pkg/pipeline"
//	    "github.com/matzehuels/inksite/pkg/source"
//	)
//
//	ctx := context.Background()
//	_, err := pipeline.Fetch(ctx, source.NewDir("export"), pipeline.FetchOptions{
//	    MaterialDir: "material",
//	    SiteRoot:    "Blog",
//	})
//	result, err := pipeline.Generate(ctx, pipeline.GenerateOptions{
//	    MaterialDir: "material",
//	    BuildDir:    "build",
//	    Title:       "My Notes",
//	})
//
// [source]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/source
// [manifest]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/manifest
// [cache]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/cache
// [render]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/render
// [site]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/site
// [theme]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/theme
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/pipeline
// [pipeline.Fetch]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/pipeline#Fetch
// [pipeline.Generate]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/pipeline#Generate
// [archive]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/archive
// [lines]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/lines
// [sitemap]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/sitemap
// [preview]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/preview
// [config]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/errors
// [io]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/io
// [observability]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/observability
// [httputil]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/httputil
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/inksite/pkg/buildinfo
package pkg
