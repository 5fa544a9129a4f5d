// Package http serves the SpendWise dashboard: the upload, manage and analyze
// pages, the XLSX export and the operational endpoints.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"spendwise/internal/amqp"
	"spendwise/internal/analysis"
	"spendwise/internal/ingest"
	applog "spendwise/internal/log"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/middleware/security"
	"spendwise/internal/middleware/trace"
	"spendwise/internal/session"
	"spendwise/internal/worker"
	appweb "spendwise/web"
)

const defaultMaxUploadBytes = 10 << 20

// Options wires the server's collaborators. Sessions is required; every
// other field has a usable zero value.
type Options struct {
	Addr               string
	Sessions           *session.Manager
	MaxUploadBytes     int64
	RateLimitPerMinute int
	Ingest             ingest.Options
	Tips               *analysis.TipPicker
	Events             amqp.Publisher
	Logger             *applog.Logger
	// Janitor is only read for metrics; its lifecycle belongs to the caller.
	Janitor *worker.Janitor
}

type Server struct {
	http.Server

	pages      map[string]*template.Template
	sessions   *session.Manager
	ingestOpts ingest.Options
	maxUpload  int64
	tips       *analysis.TipPicker
	events     amqp.Publisher
	janitor    *worker.Janitor

	logger     *applog.Logger
	structured *applog.StructuredLogger

	rateLimiter     *ratelimit.Limiter
	traceMiddleware *trace.Middleware
	detector        *security.Detector

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uploads         int64
	uploadsRejected int64
	resets          int64
	exports         int64
	uptime          time.Time
}

// NewServer configures routes and templates, returning a ready-to-run server.
// It fails only when the embedded templates cannot be parsed.
func NewServer(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.Tips == nil {
		opts.Tips = analysis.NewTipPicker(nil)
	}
	if opts.Events == nil {
		opts.Events = amqp.NopPublisher{}
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	rlConfig := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		rlConfig.RequestsPerMinute = opts.RateLimitPerMinute
	}
	detector := security.NewDetector()

	s := &Server{
		pages:           pages,
		sessions:        opts.Sessions,
		ingestOpts:      opts.Ingest,
		maxUpload:       opts.MaxUploadBytes,
		tips:            opts.Tips,
		events:          opts.Events,
		janitor:         opts.Janitor,
		logger:          logger,
		structured:      applog.NewStructuredLogger(opts.Logger),
		rateLimiter:     ratelimit.NewLimiter(rlConfig),
		traceMiddleware: trace.NewMiddleware(detector.ExtractClientIP),
		detector:        detector,
		appMetrics:      &appMetrics{uptime: time.Now()},
	}

	s.Server = http.Server{
		Addr:           opts.Addr,
		Handler:        s.routes(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(static)).Methods(http.MethodGet, http.MethodHead)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	r.HandleFunc("/", s.handleUploadPage).Methods(http.MethodGet)
	r.HandleFunc("/manage", s.handleManage).Methods(http.MethodGet)
	r.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodGet)
	r.HandleFunc("/analyze/export.xlsx", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/api/summary", s.handleAPISummary).Methods(http.MethodGet)

	// State-changing routes share the per-client limit
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)
	r.Handle("/upload", limited(http.HandlerFunc(s.handleUpload))).Methods(http.MethodPost)
	r.Handle("/session/reset", limited(http.HandlerFunc(s.handleReset))).Methods(http.MethodPost)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var h http.Handler = r
	h = headers.Middleware(h)
	h = s.detector.Middleware(h)
	h = applog.RequestIDMiddleware(trace.GetRequestID)(h)
	h = s.traceMiddleware.Middleware(h)
	h = applog.Middleware(s.logger)(h)
	return h
}

// Shutdown stops background goroutines and gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
