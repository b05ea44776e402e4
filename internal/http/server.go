package http

import (
	"context"
	"net/http"
	"sync"

	"goalfin/internal/amqp"
	"goalfin/internal/auth"
	"goalfin/internal/middleware/ratelimit"
	"goalfin/internal/middleware/security"
	"goalfin/internal/middleware/trace"
	"goalfin/internal/services"
)

// SnapshotPublisher enqueues snapshot work on the message broker. May be
// nil, in which case history requests run synchronously in the handler.
type SnapshotPublisher interface {
	PublishSnapshotRequest(ctx context.Context, msg *amqp.SnapshotRequest) error
}

// Config carries the server's wiring and tunables.
type Config struct {
	Addr              string
	FrontendURL       string
	HistoryDays       int
	RequestsPerMinute int

	Accounts  *services.AccountService
	Analytics *services.AnalyticsService
	Auth      *auth.Service
	Publisher SnapshotPublisher
}

type Server struct {
	http.Server
	accounts  *services.AccountService
	analytics *services.AnalyticsService
	auth      *auth.Service
	publisher SnapshotPublisher

	frontendURL string
	historyDays int

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(cfg Config) *Server {
	mux := http.NewServeMux()

	s := &Server{
		accounts:    cfg.Accounts,
		analytics:   cfg.Analytics,
		auth:        cfg.Auth,
		publisher:   cfg.Publisher,
		frontendURL: cfg.FrontendURL,
		historyDays: cfg.HistoryDays,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RequestsPerMinute,
		}),
	}

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /ready", handleReady)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/auth/me", s.withAuth(s.handleProfile))

	mux.HandleFunc("GET /api/accounts", s.withAuth(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.withAuth(s.handleCreateAccount))
	mux.HandleFunc("GET /api/accounts/summary", s.withAuth(s.handleAccountSummary))
	mux.HandleFunc("POST /api/accounts/transfer", s.withAuth(s.handleTransfer))
	mux.HandleFunc("GET /api/accounts/{id}", s.withAuth(s.handleGetAccount))
	mux.HandleFunc("PUT /api/accounts/{id}", s.withAuth(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.withAuth(s.handleDeleteAccount))

	mux.HandleFunc("GET /api/analytics/trends", s.withAuth(s.handleTrends))
	mux.HandleFunc("GET /api/analytics/variations", s.withAuth(s.handleVariations))
	mux.HandleFunc("GET /api/analytics/currencies", s.withAuth(s.handleCurrencies))
	mux.HandleFunc("GET /api/analytics/overview", s.withAuth(s.handleOverview))
	mux.HandleFunc("POST /api/analytics/snapshots", s.withAuth(s.handleGenerateSnapshots))
	mux.HandleFunc("POST /api/analytics/history", s.withAuth(s.handleSeedHistory))

	tracer := trace.NewMiddleware(clientIP)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limited := s.limiter.Middleware(clientIP, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		respondError(w, http.StatusTooManyRequests, "Too many requests, slow down")
	})

	s.Server = http.Server{
		Addr:    cfg.Addr,
		Handler: tracer.Middleware(headers.Middleware(s.withCORS(limited(mux)))),
	}
	return s
}

// withCORS answers preflight requests and tags responses for the
// configured frontend origin.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.frontendURL != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.frontendURL)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and its rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
