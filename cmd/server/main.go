// fitcoach - BMI coaching chat server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/fitcoach/internal/api"
	"github.com/ashureev/fitcoach/internal/chat"
	"github.com/ashureev/fitcoach/internal/config"
	"github.com/ashureev/fitcoach/internal/convlog"
	"github.com/ashureev/fitcoach/internal/grpchealth"
	"github.com/ashureev/fitcoach/internal/identity"
	"github.com/ashureev/fitcoach/internal/metrics"
	"github.com/ashureev/fitcoach/internal/middleware"
	"github.com/ashureev/fitcoach/internal/store"
	"github.com/ashureev/fitcoach/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

const sweepInterval = time.Minute

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "grpc_port", cfg.GRPCPort, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	conversationLogger, err := convlog.New(convlog.Config{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	recorder := metrics.NewRecorder()

	// Initialize services.
	registry := chat.NewRegistry(chat.Config{
		Greeting:    cfg.Greeting,
		HistorySize: cfg.HistorySize,
		Observer:    recorder,
		Transcripts: repo,
		ConvLog:     conversationLogger,
		Lifecycle:   recorder,
		Timer:       recorder,
		Logger:      logger,
	})

	limiter := api.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	defer limiter.Stop()

	pacer := chat.NewPacer(chat.PacerConfig{
		Enabled:    cfg.Pacing.Enabled,
		ThinkPause: cfg.Pacing.ThinkPause,
		PerChar:    cfg.Pacing.PerChar,
		JitterMax:  cfg.Pacing.JitterMax,
		MaxDelay:   cfg.Pacing.MaxDelay,
	}, nil)

	// Initialize handlers.
	chatHandler := api.NewChatHandler(registry, repo, limiter)
	healthHandler := api.NewHealthHandler(repo)
	wsHandler := chat.NewWebSocketHandler(registry, pacer, cfg.AllowedOrigins(), cfg.IsDevelopment())
	wsHandler.SetLimiter(limiter)
	wsHandler.SetVisitorStore(repo)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins(), identity.SessionHeaderName))

	// Public routes.
	healthHandler.RegisterHealth(r)
	r.Handle("/metrics", recorder.Handler())
	api.BMIHandler{}.RegisterRoutes(r)

	// Conversation routes carry anonymous identity.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		chatHandler.RegisterRoutes(r)
		r.Get("/ws/chat", wsHandler.ServeHTTP)
	})

	// Serve the embedded chat page.
	r.Handle("/*", web.Handler())

	// Websocket connections are long-lived, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start idle sweeper.
	sweeperDone := chat.StartIdleSweeper(ctx, registry, repo, chat.SweeperConfig{
		Interval:  sweepInterval,
		IdleTTL:   cfg.SessionTTL,
		Retention: cfg.TranscriptRetention,
		OnEvict:   wsHandler.CloseConversation,
	})

	// Start gRPC health server.
	var healthServer *grpchealth.Server
	var healthDone <-chan struct{}
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			slog.Error("Failed to listen for gRPC", "port", cfg.GRPCPort, "error", err)
			os.Exit(1)
		}
		hcfg := grpchealth.DefaultConfig()
		hcfg.Logger = logger
		healthServer = grpchealth.New(repo, hcfg)
		healthDone = healthServer.Watch(ctx)
		go func() {
			if err := healthServer.Serve(lis); err != nil {
				slog.Error("gRPC health server failed", "error", err)
			}
		}()
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if healthServer != nil {
		healthServer.Stop()
		<-healthDone
	}
	<-sweeperDone

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully", "conversations", registry.Len())
}
