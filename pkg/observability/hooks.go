// Package observability provides hooks for metrics and tracing.
//
// Libraries emit events through the package-level hooks; the binary decides
// where they go. By default every hook is a no-op, so packages such as
// render and cache stay free of any metrics backend. The preview server
// registers a [Metrics] value backed by Prometheus at startup.
//
// # Usage
//
// Register hooks at application startup:
//
//	m := observability.NewMetrics()
//	observability.SetPipelineHooks(m)
//	observability.SetRenderHooks(m)
//	observability.SetCacheHooks(m)
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnStageStart(ctx, "render")
//	// ... do work ...
//	observability.Pipeline().OnStageComplete(ctx, "render", time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events about whole pipeline stages
// (fetch, load, render, assemble, sitemap, save).
type PipelineHooks interface {
	OnStageStart(ctx context.Context, stage string)
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)
}

// =============================================================================
// Render Hooks
// =============================================================================

// RenderHooks receives per-document events from the renderer.
type RenderHooks interface {
	// OnDocumentRendered records a full render of a document's pages.
	OnDocumentRendered(ctx context.Context, id string, pages int, duration time.Duration)

	// OnDocumentReused records a cache hit whose pages were listed from disk.
	OnDocumentReused(ctx context.Context, id string, pages int)

	// OnDocumentFailed records a document whose render or reuse failed.
	OnDocumentFailed(ctx context.Context, id string, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from the build cache.
type CacheHooks interface {
	// OnCacheHit records a document whose cached timestamp matched.
	OnCacheHit(ctx context.Context)

	// OnCacheMiss records a document that must be re-rendered.
	OnCacheMiss(ctx context.Context)

	// OnCacheSave records a cache write with its entry count and encoded size.
	OnCacheSave(ctx context.Context, backend string, entries, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnStageStart(context.Context, string)                           {}
func (NoopPipelineHooks) OnStageComplete(context.Context, string, time.Duration, error) {}

// NoopRenderHooks is a no-op implementation of RenderHooks.
type NoopRenderHooks struct{}

func (NoopRenderHooks) OnDocumentRendered(context.Context, string, int, time.Duration) {}
func (NoopRenderHooks) OnDocumentReused(context.Context, string, int)                  {}
func (NoopRenderHooks) OnDocumentFailed(context.Context, string, error)                {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context)                      {}
func (NoopCacheHooks) OnCacheMiss(context.Context)                     {}
func (NoopCacheHooks) OnCacheSave(context.Context, string, int, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	renderHooks   RenderHooks   = NoopRenderHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetRenderHooks registers custom render hooks.
func SetRenderHooks(h RenderHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		renderHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Render returns the registered render hooks.
func Render() RenderHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return renderHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	renderHooks = NoopRenderHooks{}
	cacheHooks = NoopCacheHooks{}
}
