// Package main is the entry point for the chat API server.
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
	"github.com/go-chi/cors"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/selimdilsadercan/iklim-chat-api/internal/chat"
	"github.com/selimdilsadercan/iklim-chat-api/internal/config"
	"github.com/selimdilsadercan/iklim-chat-api/internal/events"
	"github.com/selimdilsadercan/iklim-chat-api/internal/gateway"
	"github.com/selimdilsadercan/iklim-chat-api/internal/handler"
	"github.com/selimdilsadercan/iklim-chat-api/internal/history"
	"github.com/selimdilsadercan/iklim-chat-api/internal/middleware"
	"github.com/selimdilsadercan/iklim-chat-api/internal/store"
	"github.com/selimdilsadercan/iklim-chat-api/pkg/logger"
	"github.com/selimdilsadercan/iklim-chat-api/pkg/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting chat API server")

	ctx := context.Background()

	// Initialize tracing if enabled
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "iklim-chat-api", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open persistence store
	msgStore, err := newStore(cfg)
	if err != nil {
		log.Error("failed to open message store", zap.Error(err))
		os.Exit(1)
	}

	// Create completion gateway client
	gwClient, err := gateway.NewClient(gateway.Config{
		BaseURL:    cfg.GatewayBaseURL,
		APIKey:     cfg.GatewayAPIKey,
		ChatPath:   cfg.GatewayChatPath,
		ModelsPath: cfg.GatewayModelsPath,
		Timeout:    cfg.GatewayTimeout,
		KeepAlive:  cfg.GatewayKeepAlive,
	}, log)
	if err != nil {
		log.Error("failed to create gateway client", zap.Error(err))
		os.Exit(1)
	}
	if err := gwClient.RefreshModels(ctx); err != nil {
		// The selection chain still resolves through its fallbacks.
		log.Warn("initial model refresh failed", zap.Error(err))
	}

	// Connect dashboard event fan-out if configured
	var eventsClient *events.Client
	var publisher chat.EventPublisher
	if cfg.NATSURL != "" {
		eventsClient, err = events.Connect(events.Config{
			URL:   cfg.NATSURL,
			Token: cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer eventsClient.Close()

		p := events.NewPublisher(eventsClient)
		if err := p.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure stream", zap.Error(err))
			os.Exit(1)
		}
		publisher = p
	}

	// Initialize services
	sessions := history.NewSessionStore(cfg.WindowLimit)
	chatSvc := chat.NewService(msgStore, gwClient, sessions, publisher, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(eventsClient)
	chatHandler := handler.NewChatHandler(chatSvc, log)
	exportHandler := handler.NewExportHandler(chatSvc, log)
	personaHandler := handler.NewPersonaHandler()
	modelsHandler := handler.NewModelsHandler(gwClient, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/personas", personaHandler.List)
		r.Get("/models", modelsHandler.List)
		r.Post("/models/refresh", modelsHandler.Refresh)

		r.Route("/chat/{persona}", func(r chi.Router) {
			r.Post("/session", chatHandler.InitializeSession)
			r.Get("/messages", chatHandler.ListMessages)
			r.Post("/messages", chatHandler.Send)
			r.Get("/export", exportHandler.Export)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var result *multierror.Error
	if err := server.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, fmt.Errorf("server shutdown: %w", err))
	}
	if err := msgStore.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("closing store: %w", err))
	}
	if err := result.ErrorOrNil(); err != nil {
		log.Error("shutdown finished with errors", zap.Error(err))
	}

	log.Info("server stopped")
}

func newStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return store.NewPostgresStore(cfg.DatabaseURL, cfg.RunMigration)
	case "rpc":
		return store.NewRPCStore(cfg.RPCBaseURL, cfg.RPCAPIKey)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
