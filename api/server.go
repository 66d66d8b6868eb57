// Package api provides the HTTP REST API server for Folio.
//
// It exposes endpoints for portfolio positions, live quotes, rebalance
// previews, target model management, backtests, CSV import, news, and
// WebSocket streaming of refreshed quotes.
package api

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/folioworks/folio/internal/backtest"
	"github.com/folioworks/folio/internal/config"
	"github.com/folioworks/folio/internal/news"
	"github.com/folioworks/folio/internal/portfolio"
	"github.com/folioworks/folio/internal/quotes"
	"github.com/folioworks/folio/internal/rebalance"
	"github.com/folioworks/folio/pkg/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Deps collects the services the server exposes over HTTP.
type Deps struct {
	Config    *config.Config
	Portfolio *portfolio.Service
	Quotes    *quotes.Service
	Models    *rebalance.ModelStore
	Simulator *backtest.Simulator
	News      *news.Service
	Logger    zerolog.Logger
}

// Server is the HTTP API server.
type Server struct {
	router    chi.Router
	cfg       *config.Config
	portfolio *portfolio.Service
	quotes    *quotes.Service
	models    *rebalance.ModelStore
	sim       *backtest.Simulator
	news      *news.Service
	wsHub     *WSHub
	log       zerolog.Logger
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(deps Deps) *Server {
	srv := &Server{
		cfg:       deps.Config,
		portfolio: deps.Portfolio,
		quotes:    deps.Quotes,
		models:    deps.Models,
		sim:       deps.Simulator,
		news:      deps.News,
		wsHub:     NewWSHub(),
		log:       deps.Logger.With().Str("component", "api").Logger(),
	}
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router, mainly for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// PublishQuotes pushes a refreshed position snapshot to all connected
// WebSocket clients. The scheduler calls this after each refresh tick.
func (s *Server) PublishQuotes(positions []models.Position) {
	s.wsHub.Broadcast(WSMessage{Type: "quotes", Data: positions})
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		s.log.Info().Str("addr", addr).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-done
	s.log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := []string{"*"}
	if s.cfg != nil && len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Positions
		r.Get("/positions", s.handleGetPositions)
		r.Put("/positions", s.handleReplacePositions)
		r.Post("/positions", s.handleUpsertPosition)
		r.Delete("/positions/{id}", s.handleDeletePosition)
		r.Post("/positions/refresh", s.handleRefreshPositions)
		r.Get("/positions/classifications", s.handleClassifications)

		// Quotes
		r.Get("/quote/{symbol}", s.handleQuote)
		r.Get("/quotes", s.handleQuotes)

		// Rebalance preview
		r.Post("/rebalance", s.handleRebalance)

		// Target models
		r.Get("/models", s.handleListModels)
		r.Get("/models/{name}", s.handleGetModel)
		r.Post("/models", s.handleSaveModel)
		r.Delete("/models/{name}", s.handleDeleteModel)
		r.Post("/models/{name}/apply", s.handleApplyModel)

		// Backtest
		r.Post("/backtest", s.handleBacktest)
		r.Get("/backtest/presets", s.handleBacktestPresets)
		r.Get("/backtest/ranges", s.handleBacktestRanges)

		// CSV import
		r.Post("/import", s.handleImport)

		// News
		r.Get("/news", s.handleNews)

		// Configuration
		r.Get("/config", s.handleGetConfig)
		r.Get("/config/keys", s.handleGetConfigKeys)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)

		// WebSocket quote stream
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to write JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":     "ok",
			"version":    "dev",
			"ws_clients": s.wsHub.ClientCount(),
		},
	})
}
