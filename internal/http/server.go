package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"munidash/internal/cache"
	"munidash/internal/log"
	"munidash/internal/metrics"
	"munidash/internal/services"
	appweb "munidash/web"
)

// Options tunes the server; zero values select the defaults.
type Options struct {
	Logger *log.Logger

	// ViewCacheSize and ViewCacheTTL bound the rendered partial cache.
	ViewCacheSize int
	ViewCacheTTL  time.Duration

	// APIRateLimit is the number of /api requests allowed per client per minute.
	APIRateLimit int
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = log.Discard()
	}
	if o.ViewCacheSize <= 0 {
		o.ViewCacheSize = 256
	}
	if o.ViewCacheTTL <= 0 {
		o.ViewCacheTTL = 10 * time.Minute
	}
	if o.APIRateLimit <= 0 {
		o.APIRateLimit = 120
	}
	return o
}

type Server struct {
	http.Server
	templates *template.Template
	dash      *services.DashboardService
	logger    *log.Logger

	// Rendered municipality partials. The aggregates never change after
	// startup, so entries only expire to bound memory.
	views        *cache.LRUCache[[]byte]
	cacheManager *cache.Manager

	rateLimiter *rateLimiter
	security    *securityMetrics
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, dash *services.DashboardService, opts Options) *Server {
	opts = opts.withDefaults()
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           log.Middleware(opts.Logger.WithComponent(log.ComponentHTTP))(mux),
			ReadHeaderTimeout: 10 * time.Second,
		},
		dash:         dash,
		logger:       opts.Logger.WithComponent(log.ComponentHTTP),
		views:        cache.NewLRUCache[[]byte](opts.ViewCacheSize, opts.ViewCacheTTL),
		cacheManager: cache.NewManager(opts.Logger),
		rateLimiter:  newRateLimiter(opts.APIRateLimit),
		security:     &securityMetrics{},
		started:      time.Now(),
	}

	s.cacheManager.Register("views", s.views)
	s.cacheManager.StartCleanup(opts.ViewCacheTTL)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/", s.withMiddleware("/", s.handleIndex))
	mux.HandleFunc("/healthz", s.withMiddleware("/healthz", s.handleHealth))
	mux.HandleFunc("/readyz", s.withMiddleware("/readyz", s.handleReady))
	mux.Handle("/metrics", metrics.Handler())

	// UI partials
	mux.HandleFunc("/ui/municipality", s.withMiddleware("/ui/municipality", s.handleMunicipalityPartial))

	// JSON API
	mux.HandleFunc("/api/municipalities", s.withMiddleware("/api/municipalities", s.handleListMunicipalities))
	mux.HandleFunc("/api/metrics", s.withMiddleware("/api/metrics", s.handleMetrics))
	mux.HandleFunc("/api/population", s.withMiddleware("/api/population", s.handlePopulation))
	mux.HandleFunc("/api/health", s.withMiddleware("/api/health", s.handleHealthAggregates))
	mux.HandleFunc("/api/charts", s.withMiddleware("/api/charts", s.handleCharts))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	// Ensure shutdown logic runs only once
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()

		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}

		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// renderMunicipality returns the municipality partial, rendering it on a cache
// miss.
func (s *Server) renderMunicipality(ctx context.Context, name string) ([]byte, error) {
	if html, ok := s.views.Get(name); ok {
		metrics.ViewCacheHitsTotal.Inc()
		return html, nil
	}
	metrics.ViewCacheMissesTotal.Inc()

	m, err := s.dash.DeriveMetrics(ctx, name)
	if err != nil {
		return nil, err
	}
	if s.templates == nil {
		return nil, fmt.Errorf("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "municipality.html", newMunicipalityView(m)); err != nil {
		return nil, fmt.Errorf("render municipality %q: %w", name, err)
	}
	html := buf.Bytes()
	s.views.Set(name, html)
	return html, nil
}
