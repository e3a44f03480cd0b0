package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Aaryan2304/ai-support-system/internal/application/contextmgr"
	"github.com/Aaryan2304/ai-support-system/internal/application/router"
	"github.com/Aaryan2304/ai-support-system/internal/application/schema"
	"github.com/Aaryan2304/ai-support-system/internal/application/session"
	"github.com/Aaryan2304/ai-support-system/internal/application/specialist"
	"github.com/Aaryan2304/ai-support-system/internal/application/tools"
	"github.com/Aaryan2304/ai-support-system/internal/config"
	redisevents "github.com/Aaryan2304/ai-support-system/pkg/adapters/events/redis"
	"github.com/Aaryan2304/ai-support-system/pkg/adapters/llm"
	"github.com/Aaryan2304/ai-support-system/pkg/adapters/metrics/prometheus"
	redisstorage "github.com/Aaryan2304/ai-support-system/pkg/adapters/storage/redis"
	"github.com/Aaryan2304/ai-support-system/pkg/api/http"
	"github.com/Aaryan2304/ai-support-system/pkg/api/websocket"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting support engine",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	// Initialize Redis client
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// Initialize adapters
	repo := redisstorage.NewRepository(redisClient, cfg.Redis.RecordTTL, logger)

	publisher := redisevents.NewStreamsPublisher(redisClient, cfg.Redis.EventStreamMaxLen, logger)

	llmClient, err := llm.NewClient(&llm.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("failed to create LLM client", zap.Error(err))
	}

	metricsCollector := prometheus.NewCollector()

	// Initialize application components
	validator := schema.NewValidator()

	intentRouter := router.NewRouter(llmClient, validator, metricsCollector, logger, router.Config{
		ClassifyTimeout:     cfg.Router.ClassifyTimeout,
		ConfidenceThreshold: cfg.Router.ConfidenceThreshold,
		FallbackConfidence:  cfg.Router.FallbackConfidence,
		MaxTokens:           cfg.Router.MaxTokens,
	})

	registry := tools.NewRegistry(validator, repo, repo, metricsCollector, logger, cfg.Tools.ExecutionTimeout)
	for _, tool := range []tools.Tool{
		tools.NewGetOrderDetails(repo),
		tools.NewCancelOrder(repo),
		tools.NewGetInvoice(repo),
		tools.NewProcessRefund(repo, cfg.Tools.RefundApprovalThresholdCents),
	} {
		if err := registry.Register(tool); err != nil {
			logger.Fatal("failed to register tool", zap.Error(err))
		}
	}

	contextMgr := contextmgr.NewManager(llmClient, repo, metricsCollector, logger, contextmgr.Config{
		WindowSize:       cfg.Context.WindowSize,
		MaxMessages:      cfg.Context.MaxMessages,
		MaxTokens:        cfg.Context.MaxTokens,
		SummarizeTimeout: cfg.Context.SummarizeTimeout,
		SummaryMaxTokens: cfg.Context.SummaryMaxTokens,
	})

	dispatch := specialist.NewDispatch()

	sessionMgr := session.NewManager(
		intentRouter,
		dispatch,
		registry,
		contextMgr,
		llmClient,
		repo,
		publisher,
		metricsCollector,
		logger,
		session.Config{
			MaxToolCalls:    cfg.Session.MaxToolCalls,
			GenerateTimeout: cfg.Session.GenerateTimeout,
			MaxTokens:       cfg.Session.MaxTokens,
			EventBuffer:     cfg.Session.EventBuffer,
		},
	)

	// Initialize API server
	httpServer := http.NewServer(&http.Config{
		Port:       cfg.HTTPPort,
		Manager:    sessionMgr,
		Repository: repo,
		Logger:     logger,
	})

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(sessionMgr, logger)
	httpServer.SetupWebSocket(wsHandler)

	// Start server
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	logger.Info("support engine started",
		zap.Int("http_port", cfg.HTTPPort))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	// Shutdown components
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := sessionMgr.Shutdown(shutdownCtx); err != nil {
		logger.Error("session manager shutdown error", zap.Error(err))
	}

	if err := publisher.Close(); err != nil {
		logger.Error("event publisher close error", zap.Error(err))
	}

	if err := redisClient.Close(); err != nil {
		logger.Error("Redis close error", zap.Error(err))
	}

	logger.Info("support engine shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
