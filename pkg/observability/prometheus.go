package observability

import (
	"context"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inksite"

// Metrics implements every hook interface with Prometheus collectors
// registered on its own registry.
type Metrics struct {
	reg *prom.Registry

	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	documents     *prom.CounterVec
	pages         *prom.CounterVec
	renderSeconds prom.Histogram
	cacheLookups  *prom.CounterVec
	cacheEntries  prom.Gauge
	cacheBytes    prom.Gauge
}

// NewMetrics constructs and registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{reg: prom.NewRegistry()}

	m.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages",
		Buckets:   prom.DefBuckets,
	}, []string{"stage"})
	m.stageResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "stage_results_total",
		Help:      "Stage results by outcome",
	}, []string{"stage", "result"})
	m.documents = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "documents_total",
		Help:      "Documents processed by the renderer, by outcome",
	}, []string{"outcome"})
	m.pages = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "pages_total",
		Help:      "Pages produced by the renderer, by outcome",
	}, []string{"outcome"})
	m.renderSeconds = prom.NewHistogram(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "document_render_seconds",
		Help:      "Time spent rendering a single document",
		Buckets:   prom.DefBuckets,
	})
	m.cacheLookups = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Build cache lookups by result",
	}, []string{"result"})
	m.cacheEntries = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_entries",
		Help:      "Entries in the last saved build cache",
	})
	m.cacheBytes = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_bytes",
		Help:      "Encoded size of the last saved build cache",
	})

	m.reg.MustRegister(m.stageDuration, m.stageResults, m.documents, m.pages,
		m.renderSeconds, m.cacheLookups, m.cacheEntries, m.cacheBytes)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prom.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) OnStageStart(context.Context, string) {}

func (m *Metrics) OnStageComplete(_ context.Context, stage string, d time.Duration, err error) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	m.stageResults.WithLabelValues(stage, result(err)).Inc()
}

func (m *Metrics) OnDocumentRendered(_ context.Context, _ string, pages int, d time.Duration) {
	m.documents.WithLabelValues("rendered").Inc()
	m.pages.WithLabelValues("rendered").Add(float64(pages))
	m.renderSeconds.Observe(d.Seconds())
}

func (m *Metrics) OnDocumentReused(_ context.Context, _ string, pages int) {
	m.documents.WithLabelValues("reused").Inc()
	m.pages.WithLabelValues("reused").Add(float64(pages))
}

func (m *Metrics) OnDocumentFailed(context.Context, string, error) {
	m.documents.WithLabelValues("failed").Inc()
}

func (m *Metrics) OnCacheHit(context.Context)  { m.cacheLookups.WithLabelValues("hit").Inc() }
func (m *Metrics) OnCacheMiss(context.Context) { m.cacheLookups.WithLabelValues("miss").Inc() }

func (m *Metrics) OnCacheSave(_ context.Context, _ string, entries, size int) {
	m.cacheEntries.Set(float64(entries))
	m.cacheBytes.Set(float64(size))
}

// Register installs m as the pipeline, render and cache hooks.
func (m *Metrics) Register() {
	SetPipelineHooks(m)
	SetRenderHooks(m)
	SetCacheHooks(m)
}

func result(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}

var (
	_ PipelineHooks = (*Metrics)(nil)
	_ RenderHooks   = (*Metrics)(nil)
	_ CacheHooks    = (*Metrics)(nil)
)
