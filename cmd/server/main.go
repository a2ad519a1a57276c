package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/pbxops/acdboard/internal/actions"
	"github.com/pbxops/acdboard/internal/api"
	"github.com/pbxops/acdboard/internal/auth"
	"github.com/pbxops/acdboard/internal/config"
	"github.com/pbxops/acdboard/internal/loader"
	"github.com/pbxops/acdboard/internal/metrics"
	"github.com/pbxops/acdboard/internal/platform"
	"github.com/pbxops/acdboard/internal/reconcile"
	"github.com/pbxops/acdboard/internal/stats"
	"github.com/pbxops/acdboard/internal/storage"
	"github.com/pbxops/acdboard/internal/store"
	"github.com/pbxops/acdboard/internal/websocket"
	"github.com/pbxops/acdboard/pkg/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configure logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("port", cfg.Port).
		Str("platform_url", cfg.PlatformURL).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Msg("starting acdboard server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// History storage (DynamoDB or noop)
	history, err := storage.NewStore(ctx, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize history storage")
	}

	// Platform REST client and reconciled state store
	client := platform.NewClient(cfg.PlatformURL, cfg.PlatformToken, log.Logger)
	st := store.New()

	// Dashboard WebSocket hub
	hub := websocket.NewHub(log.Logger)
	go hub.Run()

	// Full loader and reconciler
	ld := loader.New(client, log.Logger, loader.Config{
		OutsideLabel:    cfg.OutsideRosterLabel,
		PriorityPattern: cfg.PriorityQueuePattern,
		StatsWindow:     cfg.StatsWindow,
	})
	reconciler := reconcile.New(st, client, ld, hub, history, cfg.ReloadDebounce, log.Logger)

	// Initial load; the platform must be reachable to start
	loadCtx, loadCancel := context.WithTimeout(ctx, time.Minute)
	if err := reconciler.Reload(loadCtx); err != nil {
		loadCancel()
		log.Fatal().Err(err).Msg("initial load failed")
	}
	loadCancel()

	// Platform event feed
	feed := platform.NewFeed(cfg.PlatformURL, cfg.PlatformToken, log.Logger)
	go feed.Run(ctx)
	go reconciler.Run(ctx, feed.Events())
	go func() {
		select {
		case <-feed.SessionExpired():
			log.Fatal().Msg("platform session expired, restart with a fresh token")
		case <-ctx.Done():
		}
	}()

	// Periodic statistics refresh
	refresher := stats.NewRefresher(st, client, hub, cfg.StatsWindow, cfg.StatsInterval, cfg.OutsideRosterLabel, log.Logger)
	go refresher.Start(ctx)

	// Intent dispatcher
	dispatcher := actions.New(st, client, hub, history, reconciler.Reload, log.Logger, actions.Config{
		PauseReason:   cfg.PauseReason,
		ListenPrefix:  cfg.ListenPrefix,
		WhisperPrefix: cfg.WhisperPrefix,
		BargePrefix:   cfg.BargePrefix,
	})

	// HTTP handlers
	wsHandler := websocket.NewHandler(hub, st, cfg, log.Logger)
	rostersHandler := api.NewRostersHandler(st, log.Logger)
	intentsHandler := api.NewIntentsHandler(dispatcher, reconciler.Reload, log.Logger)
	historyHandler := api.NewHistoryHandler(history, log.Logger)

	// Create router
	r := chi.NewRouter()

	// Add middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Register public routes (no auth required)
	r.Get("/health", healthHandler)
	r.Get("/metrics", metrics.Get().Handler())

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/ws", wsHandler.ServeHTTP)
		r.Get("/api/rosters", rostersHandler.GetRosters)
		r.Get("/api/queues", rostersHandler.GetQueues)
		r.Get("/api/history/agents/{agentKey}", historyHandler.GetStateChanges)
		r.Get("/api/history/calls", historyHandler.GetCalls)
		r.Get("/api/history/users/{userUuid}/calls", historyHandler.GetUserCalls)

		// Mutating intents need the supervisor role
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSupervisor)

			r.Post("/api/agents/{agentId}/pause", intentsHandler.SetPaused)
			r.Post("/api/agents/{agentId}/login", intentsHandler.Login)
			r.Post("/api/agents/{agentId}/logout", intentsHandler.Logout)
			r.Post("/api/agents/{agentId}/move", intentsHandler.MoveQueue)
			r.Post("/api/agents/{agentId}/supervise", intentsHandler.Supervise)
			r.Put("/api/users/{userUuid}/dnd", intentsHandler.SetDND)
			r.Put("/api/users/{userUuid}/forward", intentsHandler.SetForward)
			r.Post("/api/refresh", intentsHandler.Refresh)
		})

		// Admin-only maintenance
		r.Group(func(r chi.Router) {
			r.Use(api.RequireAdmin)
			r.Post("/api/admin/history/truncate", historyHandler.Truncate)
		})
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"acdboard"}`)
}
