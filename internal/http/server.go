package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"spendsense/internal/insight"
	"spendsense/internal/log"
	"spendsense/internal/middleware/ratelimit"
	"spendsense/internal/middleware/security"
	"spendsense/internal/middleware/trace"
	"spendsense/internal/services"
	"spendsense/internal/session"
	appweb "spendsense/web"
)

// Options carries the server's collaborators.
type Options struct {
	Sessions       *session.Store
	Ledgers        *services.LedgerService
	Reports        *services.ReportService
	Insight        *insight.Requester
	Ready          func(ctx context.Context) error // backend readiness, optional
	MaxUploadBytes int64
	RateLimit      ratelimit.Config
	Logger         *log.Logger
}

// Server is the dashboard's HTTP front end.
type Server struct {
	http.Server
	templates *template.Template
	sessions  *session.Store
	ledgers   *services.LedgerService
	reports   *services.ReportService
	insight   *insight.Requester
	ready     func(ctx context.Context) error
	maxUpload int64
	logger    *log.Logger
	events    *log.StructuredLogger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime          time.Time
	ledgersLoaded   int64
	loadFailures    int64
	reportsExported int64
	insightCalls    int64
	insightFailures int64
	chatMessages    int64
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	requester := opts.Insight
	if requester == nil {
		requester = insight.NewRequester(insight.Disabled{})
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr: addr,
		},
		sessions:         opts.Sessions,
		ledgers:          opts.Ledgers,
		reports:          opts.Reports,
		insight:          requester,
		ready:            opts.Ready,
		maxUpload:        maxUpload,
		logger:           logger,
		events:           log.NewStructuredLogger(logger),
		rateLimiter:      ratelimit.NewLimiter(opts.RateLimit),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP, logger)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates",
			log.FieldError, err,
			log.FieldComponent, log.ComponentTemplate,
			"error_type", log.ErrorTypeConfiguration)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("/{$}", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/session/reset", s.handleReset)

	// UI partials
	mux.HandleFunc("/ui/overview", s.handleOverview)
	mux.HandleFunc("/ui/insight", s.handleInsight)
	mux.HandleFunc("/api/overview", s.handleOverviewJSON)

	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/budget", s.handleBudget)
	mux.HandleFunc("/plan", s.handlePlan)

	mux.HandleFunc("/reports", s.handleCreateReport)
	mux.HandleFunc("/reports/{id}", s.handleDownloadReport)

	limit := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimit, http.MethodPost)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	var handler http.Handler = mux
	handler = limit(handler)
	handler = log.RequestIDMiddleware(trace.RequestID)(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.securityDetector.Middleware(logger.WithComponent(log.ComponentSecurity))(handler)
	handler = headers.Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	s.Handler = handler

	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again in a minute.").Write(w)
}

// Shutdown stops background goroutines and the HTTP server. It is safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// render executes a template, logging failures.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			"error_type", log.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			"template", name)
	}
}
