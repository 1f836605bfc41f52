// Package api serves the game-facing HTTP endpoints: in-game balances,
// wallet linking, off-chain transfers and on-chain balance lookups.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ligun0805/reward-bridge/internal/ledger"
	"github.com/ligun0805/reward-bridge/internal/metrics"
)

// Ledger is the account store the handlers read and update.
type Ledger interface {
	FindBySecret(ctx context.Context, secret string) (*ledger.Account, error)
	SetWalletAddress(ctx context.Context, secret, address string) (string, error)
	Transfer(ctx context.Context, secret, recipientUsername string, amount int64) (int64, error)
}

// Chain answers token contract reads.
type Chain interface {
	Balance(ctx context.Context, address string) (string, error)
	TotalSupply(ctx context.Context) (string, error)
}

type Config struct {
	Ledger Ledger
	Chain  Chain
	Logger *slog.Logger

	// Per-client limits for /api routes.
	RequestsPerMinute float64
	Burst             int

	// Health reports readiness; nil means always healthy.
	Health func(ctx context.Context) error
}

type Server struct {
	ledger Ledger
	chain  Chain
	logger *slog.Logger
	health func(ctx context.Context) error

	router http.Handler
}

func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{ledger: cfg.Ledger, chain: cfg.Chain, logger: logger, health: cfg.Health}
	limiter := NewRateLimiter(cfg.RequestsPerMinute, cfg.Burst)

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer, s.observe)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Message: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Message: "Method not allowed"})
	})

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(limiter.Middleware)
		api.Post("/token-balance", s.handleTokenBalance)
		api.Post("/blockchain-balance", s.handleBlockchainBalance)
		api.Post("/wallet-address", s.handleSetWalletAddress)
		api.Post("/transfer-tokens", s.handleTransferTokens)
		api.Get("/token-supply", s.handleTokenSupply)
	})
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// observe records request counts and latency by route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTP().Observe(route, r.Method, strconv.Itoa(status), time.Since(start).Seconds())
	})
}

type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
