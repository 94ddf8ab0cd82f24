package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shelfline/feedengine/internal/auth"
	"github.com/shelfline/feedengine/internal/fetchguard"
	"github.com/shelfline/feedengine/internal/feed"
	"github.com/shelfline/feedengine/internal/ingest"
	"github.com/shelfline/feedengine/internal/ratelimit"
	"github.com/shelfline/feedengine/internal/search"
	"github.com/shelfline/feedengine/internal/storage"
)

// HandlersDeps collects every collaborator the HTTP handlers call into.
type HandlersDeps struct {
	DB           *storage.DB
	JWTMgr       *auth.JWTManager
	Ingestor     *ingest.Ingestor
	Fetcher      *fetchguard.Client
	Feed         *feed.Handler
	Search       *search.Index // nil disables full-text search
	Logger       *slog.Logger
	CookieName   string
	CookieSecure bool
	SessionTTL   time.Duration
}

// Handlers implements every spec §6 HTTP handler.
type Handlers struct {
	deps HandlersDeps
}

// NewHandlers builds a Handlers from its dependencies.
func NewHandlers(deps HandlersDeps) *Handlers {
	return &Handlers{deps: deps}
}

// ServerConfig configures a Server.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       *slog.Logger
	Limiter      ratelimit.Limiter // nil disables rate limiting
}

// Server wraps an http.Server with feedengine's route table and middleware
// chain, and exposes Start/Shutdown for the binary's lifecycle.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// New builds a Server from cfg, wiring routes against h and applying the
// full middleware chain (outermost executes first):
// request ID → security headers → tracing → logging → auth → recovery →
// rate limits (POST /auth/login and POST /unfurl only) → mux.
func New(cfg ServerConfig, h *Handlers) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/signup", h.HandleSignup)
	mux.HandleFunc("POST /auth/login", h.HandleLogin)
	mux.HandleFunc("POST /auth/logout", h.HandleLogout)
	mux.HandleFunc("GET /auth/me", h.HandleMe)

	mux.HandleFunc("POST /links", h.HandleLinksCreate)
	mux.HandleFunc("GET /links", h.HandleLinksList)
	mux.HandleFunc("PATCH /links/{id}", h.HandleLinksPatch)
	mux.HandleFunc("DELETE /links/{id}", h.HandleLinksDelete)

	mux.HandleFunc("POST /upload", h.HandleUpload)
	mux.HandleFunc("PUT /upload", h.HandleBulkUpload)

	mux.HandleFunc("POST /unfurl", h.HandleUnfurl)
	mux.HandleFunc("POST /engagement", h.HandleEngagement)

	mux.HandleFunc("GET /feed", h.HandleFeed)
	mux.HandleFunc("GET /search", h.HandleSearch)

	loginRL := ratelimit.MiddlewareWithRequestID(cfg.Limiter, "login", ratelimit.IPKeyFunc, requestIDFromRequest)
	unfurlRL := ratelimit.MiddlewareWithRequestID(cfg.Limiter, "unfurl", ratelimit.IPKeyFunc, requestIDFromRequest)

	var handler http.Handler = mux
	handler = withRateLimits(handler, loginRL, unfurlRL)
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(h.deps.JWTMgr, h.deps.CookieName, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// withRateLimits applies the per-path rate limit middleware to /auth/login
// and /unfurl only, leaving every other route unthrottled.
func withRateLimits(next http.Handler, loginRL, unfurlRL func(http.Handler) http.Handler) http.Handler {
	login := loginRL(next)
	unfurl := unfurlRL(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
			login.ServeHTTP(w, r)
		case r.Method == http.MethodPost && r.URL.Path == "/unfurl":
			unfurl.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// requestIDFromRequest reads the request ID that requestIDMiddleware, as the
// outermost layer in the chain, has already stamped into context by the time
// this innermost rate-limit layer runs.
func requestIDFromRequest(r *http.Request) string {
	return RequestIDFromContext(r.Context())
}

// Handler returns the fully wrapped handler, for use in tests via httptest.
func (s *Server) Handler() http.Handler { return s.handler }

// Start runs the HTTP server until it errors or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server starting", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully drains in-flight requests before returning.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
