package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/inksite/pkg/archive"
	"github.com/matzehuels/inksite/pkg/errors"
	pkgio "github.com/matzehuels/inksite/pkg/io"
	"github.com/matzehuels/inksite/pkg/manifest"
	"github.com/matzehuels/inksite/pkg/source"
)

// Fetch resolves the site root in src into a manifest, saves it to the
// material directory and downloads the archive of every document it names.
// A download that is not a readable zip is rejected before it is written.
// The manifest is saved before any download, so a failed fetch still leaves
// a readable manifest behind.
func Fetch(ctx context.Context, src source.Source, opts FetchOptions) (*FetchResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger

	records, err := stage(ctx, StageList, func() ([]manifest.Record, error) {
		return src.List(ctx)
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("listed records", "count", len(records))

	m, err := stage(ctx, StageManifest, func() (*manifest.Manifest, error) {
		m, err := manifest.Build(manifest.NewCollection(records), opts.SiteRoot)
		if err != nil {
			return nil, err
		}
		return m, m.Save(opts.MaterialDir)
	})
	if err != nil {
		return nil, err
	}
	docs := m.Docs()
	logger.Info("built manifest", "documents", len(docs), "depth", m.Posts.Depth())

	var downloaded atomic.Int64
	err = run(ctx, StageDownload, func() error {
		workers := opts.Workers
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for _, doc := range docs {
			g.Go(func() error {
				data, err := src.Download(ctx, doc.ID)
				if err == nil {
					_, err = archive.FromBytes(doc.ID.String()+".zip", data)
				}
				if err != nil {
					return fmt.Errorf("document %s (%q): %w", doc.ID, doc.Name, err)
				}
				path := archive.Path(opts.MaterialDir, doc.ID)
				if err := pkgio.WriteFileAtomic(path, data); err != nil {
					return errors.IO(err, "write", path)
				}
				downloaded.Add(int64(len(data)))
				logger.Debug("downloaded", "name", doc.Name, "id", doc.ID, "bytes", len(data))
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}

	return &FetchResult{Records: len(records), Documents: len(docs), Downloaded: downloaded.Load()}, nil
}
