// Package api provides the HTTP API server and handlers for the notes server.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/subaccounts/notes-server/internal/config"
	"github.com/subaccounts/notes-server/internal/ledger"
	"github.com/subaccounts/notes-server/internal/notes"
	"github.com/subaccounts/notes-server/internal/ratelimit"
	"github.com/subaccounts/notes-server/internal/service"
	"github.com/subaccounts/notes-server/internal/sse"
	"github.com/subaccounts/notes-server/internal/validation"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services holds the domain services the handlers call into.
type Services struct {
	Notes  *notes.Repository
	Ledger *ledger.Ledger
	Wallet *service.WalletService
	Chat   *service.ChatService
	Search *service.SearchService
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       Pinger
	services    *Services
	sseManager  *sse.Manager
	wallet      config.WalletConfig
	router      *chi.Mux
	api         huma.API
	validator   *validation.Validator
	chatLimiter *ratelimit.Limiter
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg *config.Config, store Pinger, services *Services, sseManager *sse.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	router := chi.NewRouter()

	s := &Server{
		store:       store,
		services:    services,
		sseManager:  sseManager,
		wallet:      cfg.Wallet,
		router:      router,
		validator:   validation.New(),
		chatLimiter: ratelimit.New(cfg.Inference.RPS, cfg.Inference.Burst),
		logger:      logger,
	}

	s.setupMiddleware(cfg.Server.CORSOrigins)

	humaConfig := huma.DefaultConfig("Sub Account Notes API", "1.0.0")
	humaConfig.Info.Description = "Notes, tips, purchases and the transaction ledger for Smart Wallet Sub Accounts."
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, used by tests and the OpenAPI dump.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	s.chatLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(origins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", AccountHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
}

// registerRoutes configures all HTTP routes.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerNoteRoutes()
	s.registerTransactionRoutes()
	s.registerWalletRoutes()
	s.registerAccountRoutes()
	s.registerChatRoutes()

	// The event stream is a long-lived response and bypasses huma.
	if s.sseManager != nil {
		s.router.Get("/api/v1/events", sse.NewHandler(s.sseManager, s.logger).ServeHTTP)
	}
}
