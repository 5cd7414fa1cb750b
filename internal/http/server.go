package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	applog "fairshare/internal/log"
	"fairshare/internal/middleware/ratelimit"
	"fairshare/internal/middleware/security"
	"fairshare/internal/middleware/trace"
	"fairshare/internal/services"
)

// ReadinessCheck reports whether the backing stores can serve requests.
type ReadinessCheck func(ctx context.Context) error

// Options configures the optional parts of the server.
type Options struct {
	Logger             *applog.Logger
	RateLimitPerMinute int
	TrustedProxies     []string
	Ready              ReadinessCheck
	CacheSize          func() int
	Now                func() time.Time
}

// Server exposes FairShareService over a JSON API.
type Server struct {
	http.Server
	service *services.FairShareService
	logger  *applog.Logger
	now     func() time.Time

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	headers          *security.HeadersMiddleware

	ready     ReadinessCheck
	cacheSize func() int

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	summariesSaved atomic.Int64
	periodsClosed  atomic.Int64
	comparisons    atomic.Int64
	startedAt      time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, service *services.FairShareService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, applog.FieldError, err)
		}
	}

	s := &Server{
		service:          service,
		logger:           logger.WithComponent(applog.ComponentHTTP),
		now:              now,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		securityDetector: detector,
		headers:          security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		ready:            opts.Ready,
		cacheSize:        opts.CacheSize,
	}
	s.traceMiddleware = trace.NewMiddleware(detector.ExtractClientIP, logger)
	s.appMetrics.startedAt = now()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/comparison", s.handleComparison)
	mux.HandleFunc("GET /api/points", s.handlePoints)
	mux.HandleFunc("POST /api/summaries", s.handleSaveSummary)
	mux.HandleFunc("POST /api/periods/close", s.handleClosePeriod)
	mux.HandleFunc("GET /api/standing", s.handleStanding)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/tiers", s.handleTiers)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/couples", s.handleCouples)

	limited := s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimited, http.MethodPost, http.MethodPut)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.traceMiddleware.Middleware(s.headers.Middleware(detector.Middleware(logger)(limited(mux)))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError().RequestID(trace.GetRequestID(r.Context())).Write(w)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
