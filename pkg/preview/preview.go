// Package preview serves a generated site and rebuilds it when its inputs
// change.
//
// The [Server] does an initial build, serves the output directory over HTTP
// and watches the input directories (the material directory, and a theme
// directory if one is used). Bursts of file events are collapsed by a
// debounce timer; rebuilds never overlap, and a change arriving during a
// rebuild schedules exactly one more. A failed rebuild keeps the previous
// output online and is reported on /healthz.
//
// Routes:
//
//	GET /healthz   build status as JSON
//	GET /metrics   Prometheus metrics, when a registry is configured
//	GET /*         the output directory
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/inksite/pkg/observability"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "localhost:8080"

// DefaultDebounce is the quiet period before a rebuild starts.
const DefaultDebounce = 300 * time.Millisecond

// BuildFunc builds the site once.
type BuildFunc func(ctx context.Context) error

// Options configures a [Server].
type Options struct {
	Addr string
	// BuildDir is served as the site root.
	BuildDir string
	// Watch lists the directories whose changes trigger a rebuild.
	Watch []string
	Build BuildFunc
	// Metrics, when set, is exposed on /metrics.
	Metrics  *observability.Metrics
	Debounce time.Duration
	Logger   *log.Logger
}

// Status is the build state reported on /healthz.
type Status struct {
	Builds      int       `json:"builds"`
	LastBuild   time.Time `json:"last_build,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	HasGoodSite bool      `json:"has_good_site"`
}

// Server is a preview server.
type Server struct {
	opts   Options
	router *chi.Mux

	buildMu sync.Mutex // serializes builds

	statusMu sync.RWMutex
	status   Status
}

// New returns a server for opts.
func New(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s := &Server{opts: opts, router: chi.NewRouter()}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())
	}
	s.router.Handle("/*", http.FileServer(http.Dir(s.opts.BuildDir)))
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.router }

// Status returns the current build status.
func (s *Server) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// Rebuild runs one build, waiting for any build in progress to finish first.
func (s *Server) Rebuild(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	start := time.Now()
	err := s.opts.Build(ctx)

	s.statusMu.Lock()
	s.status.Builds++
	s.status.LastBuild = start
	if err != nil {
		s.status.LastError = err.Error()
	} else {
		s.status.LastError = ""
		s.status.HasGoodSite = true
	}
	s.statusMu.Unlock()

	if err != nil {
		s.opts.Logger.Error("build failed", "err", err)
		return err
	}
	s.opts.Logger.Debug("site rebuilt", "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// Run builds the site, serves it and rebuilds on change until ctx is done.
// A failing initial build is logged, not fatal, so the inputs can be fixed
// while the server runs.
func (s *Server) Run(ctx context.Context) error {
	_ = s.Rebuild(ctx)

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener, without the initial build.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	w, err := newWatcher(s.opts.Watch, s.opts.Logger)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer w.Close()

	errc := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("serving preview", "url", "http://"+ln.Addr().String(), "dir", s.opts.BuildDir)
		errc <- srv.Serve(ln)
	}()

	go s.rebuildLoop(ctx, w.run(ctx, s.opts.Debounce))

	select {
	case <-ctx.Done():
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// rebuildLoop runs one build per request until ctx is done.
func (s *Server) rebuildLoop(ctx context.Context, requests <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-requests:
			if !ok {
				return
			}
			s.opts.Logger.Info("change detected, rebuilding")
			_ = s.Rebuild(ctx)
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.Status()
	code := http.StatusOK
	if !st.HasGoodSite {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(st)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.opts.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}
