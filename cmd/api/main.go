// Package main is the entry point for the API server.
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
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pocketsage-ai/finance-copilot/internal/agent"
	"github.com/pocketsage-ai/finance-copilot/internal/bank"
	"github.com/pocketsage-ai/finance-copilot/internal/categorize"
	"github.com/pocketsage-ai/finance-copilot/internal/checkpoint"
	"github.com/pocketsage-ai/finance-copilot/internal/config"
	"github.com/pocketsage-ai/finance-copilot/internal/handler"
	"github.com/pocketsage-ai/finance-copilot/internal/intent"
	"github.com/pocketsage-ai/finance-copilot/internal/llm"
	"github.com/pocketsage-ai/finance-copilot/internal/middleware"
	natsclient "github.com/pocketsage-ai/finance-copilot/internal/nats"
	"github.com/pocketsage-ai/finance-copilot/internal/service"
	"github.com/pocketsage-ai/finance-copilot/internal/stream"
	"github.com/pocketsage-ai/finance-copilot/pkg/logger"
	"github.com/pocketsage-ai/finance-copilot/pkg/tracing"
)

func main() {
	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "finance-copilot", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Checkpoint store: Redis when configured, in-memory otherwise
	var store checkpoint.Store
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("invalid REDIS_URL", zap.Error(err))
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to Redis", zap.Error(err))
			os.Exit(1)
		}
		store = checkpoint.NewRedisStore(rdb, cfg.CheckpointTTL)
		log.Info("using Redis checkpoint store")
	} else {
		store = checkpoint.NewMemoryStore()
		log.Warn("REDIS_URL not set, checkpoints are in-memory only")
	}

	// Connect to NATS for the audit channel. The channel is optional:
	// without it routing decisions only go to logs.
	var audit service.AuditSink
	var nc *natsclient.Client
	nc, err = natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Warn("NATS unavailable, audit channel disabled", zap.Error(err))
		nc = nil
	} else {
		defer nc.Close()
		publisher := natsclient.NewAuditPublisher(nc)
		if err := publisher.EnsureStream(ctx); err != nil {
			log.Warn("failed to ensure audit stream, audit channel disabled", zap.Error(err))
		} else {
			audit = publisher
		}
	}

	// Initialize LLM client. A missing key leaves the client nil and the
	// service degraded: stub handlers still answer.
	var llmClient llm.Client
	if provider, apiKey, ok := llm.PickProvider(cfg.DefaultLLM, cfg.AnthropicAPIKey, cfg.OpenAIAPIKey); ok {
		llmClient, err = llm.NewClient(provider, apiKey)
		if err != nil {
			log.Warn("failed to create LLM client, LLM features disabled",
				zap.String("provider", string(provider)),
				zap.Error(err))
		}
	} else {
		log.Warn("no LLM API key configured, running in degraded mode")
	}

	// Bank aggregation provider
	var aggregator bank.Aggregator
	if cfg.AggregatorBaseURL != "" {
		aggregator = bank.NewClient(cfg.AggregatorBaseURL, cfg.AggregatorToken, cfg.AggregatorTimeout)
	}

	// Build the conversation graph
	engine := categorize.NewEngine(llmClient, categorize.Config{}, log)
	parser := intent.NewParser(llmClient, log)
	router := agent.NewRouter(llmClient, log)
	graph, err := agent.NewGraph(ctx, router, agent.Handlers{
		SmallTalk:  agent.NewSmallTalkHandler(llmClient),
		Spending:   agent.NewSpendingHandler(parser, aggregator, engine),
		Investment: agent.NewInvestmentHandler(),
		Onboarding: agent.NewOnboardingHandler(llmClient),
	}, log)
	if err != nil {
		log.Error("failed to build conversation graph", zap.Error(err))
		os.Exit(1)
	}

	// Initialize services
	turnSvc := service.NewTurnService(graph, store, audit, llmClient != nil, cfg.LLMTimeout, log)

	// Initialize handlers
	adapter := stream.NewAdapter(cfg.StreamChunkDelay)
	healthHandler := handler.NewHealthHandler(turnSvc, nc)
	chatHandler := handler.NewChatHandler(turnSvc, adapter, log)
	categorizeHandler := handler.NewCategorizeHandler(engine, aggregator, log)

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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
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

		r.Post("/chat", chatHandler.Chat)
		r.Post("/chat/stream", chatHandler.ChatStream)
		r.Post("/transactions/categorize", categorizeHandler.Categorize)
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

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
