package render

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/inksite/pkg/archive"
	"github.com/matzehuels/inksite/pkg/observability"
)

// Job is one document to bring up to date.
type Job struct {
	ID         uuid.UUID
	Name       string
	ModifiedAt time.Time
	Mode       Mode
}

// Staleness decides whether a document's pages from a previous run can be
// reused. It is only read during the fan-out.
type Staleness interface {
	Lookup(ctx context.Context, id uuid.UUID, modifiedAt time.Time) bool
}

// Archive is an opened document archive.
type Archive interface {
	Entries
	Close() error
}

// ArchiveSource opens the archive of a document.
type ArchiveSource interface {
	Open(id uuid.UUID) (Archive, error)
}

// MaterialDir opens archives stored as <dir>/zip/<id>.zip.
type MaterialDir string

// Open opens the archive of id.
func (d MaterialDir) Open(id uuid.UUID) (Archive, error) {
	a, err := archive.Open(archive.Path(string(d), id))
	if err != nil {
		return nil, err
	}
	return a, nil
}

// RenderAll brings every job up to date: current documents are reused,
// stale ones rendered. Jobs run in parallel, bounded by r.Workers. The first
// error cancels the remaining jobs and is returned annotated with the
// document it came from. On success the result holds one artifact per job id.
func (r *Renderer) RenderAll(ctx context.Context, jobs []Job, cache Staleness, src ArchiveSource) (map[uuid.UUID]Artifact, error) {
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Artifact, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			art, err := r.bring(ctx, job, cache, src)
			if err != nil {
				observability.Render().OnDocumentFailed(ctx, job.ID.String(), err)
				return fmt.Errorf("document %s (%q): %w", job.ID, job.Name, err)
			}
			results[i] = art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]Artifact, len(results))
	for _, art := range results {
		out[art.ID] = art
	}
	return out, nil
}

func (r *Renderer) bring(ctx context.Context, job Job, cache Staleness, src ArchiveSource) (Artifact, error) {
	if cache != nil && cache.Lookup(ctx, job.ID, job.ModifiedAt) {
		r.logger().Debug("reusing pages", "id", job.ID, "name", job.Name)
		return r.ReuseDocument(ctx, job.ID)
	}

	r.logger().Info("rendering", "name", job.Name, "mode", job.Mode)
	a, err := src.Open(job.ID)
	if err != nil {
		return Artifact{}, err
	}
	defer a.Close()
	return r.RenderDocument(ctx, job.ID, a, job.Mode)
}
