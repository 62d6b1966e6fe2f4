package observability

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnStageStart(ctx, "render")
	p.OnStageComplete(ctx, "render", time.Second, nil)

	r := NoopRenderHooks{}
	r.OnDocumentRendered(ctx, "id", 3, time.Second)
	r.OnDocumentReused(ctx, "id", 3)
	r.OnDocumentFailed(ctx, "id", errors.New("boom"))

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx)
	c.OnCacheMiss(ctx)
	c.OnCacheSave(ctx, "file", 4, 512)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Render().(NoopRenderHooks); !ok {
		t.Error("Render() should return NoopRenderHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customRender := &testRenderHooks{}
	SetRenderHooks(customRender)
	if Render() != customRender {
		t.Error("SetRenderHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)
	SetPipelineHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}
}

func TestMetrics(t *testing.T) {
	Reset()
	defer Reset()

	m := NewMetrics()
	m.Register()

	ctx := context.Background()
	Pipeline().OnStageComplete(ctx, "render", 150*time.Millisecond, nil)
	Pipeline().OnStageComplete(ctx, "assemble", time.Millisecond, errors.New("disk full"))
	Render().OnDocumentRendered(ctx, "a", 3, time.Second)
	Render().OnDocumentReused(ctx, "b", 2)
	Cache().OnCacheHit(ctx)
	Cache().OnCacheSave(ctx, "file", 2, 128)

	mfs, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatal("expected metrics, got none")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		"inksite_pages_total",
		`inksite_stage_results_total{result="failed",stage="assemble"} 1`,
		"inksite_cache_entries 2",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

type testPipelineHooks struct{ NoopPipelineHooks }
type testRenderHooks struct{ NoopRenderHooks }
type testCacheHooks struct{ NoopCacheHooks }
