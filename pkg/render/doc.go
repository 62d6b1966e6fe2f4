// Package render turns document archives into page images.
//
// # Overview
//
// A document archive holds one page file per page, named <id>/<n>.rm, and
// optionally a <id>.pagedata entry listing the background template of each
// page, one per line. [Renderer.RenderDocument] renders every page to
// svg/<id>/<n>.svg below the output root and returns the root-relative links
// of the pages in numeric order. [Renderer.ReuseDocument] reconstructs the
// same list from disk for a document the build cache reports as current.
//
// # Page rendering
//
// Pages are rendered by a [PageRenderer]. The default [LinesRenderer] decodes
// the page with package lines and writes one SVG polyline per stroke. Two
// modes exist:
//
//   - [ModeCanvas]: the full 1404×1872 device canvas
//   - [ModeCrop]: the tight bounding box of the ink plus padding (used for the logo)
//
// Rendering is deterministic: the same page bytes, mode and template always
// produce the same SVG bytes.
//
// # Fan-out
//
// [Renderer.RenderAll] renders a batch of documents in parallel with an
// errgroup. Each document owns its svg/<id>/ directory, so tasks never
// share output. The first failure cancels the remaining tasks and is
// returned annotated with the failing document.
package render
