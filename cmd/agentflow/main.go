package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/agentflow/internal/application/chain"
	"github.com/aescanero/agentflow/internal/application/orchestrator"
	"github.com/aescanero/agentflow/internal/application/registry"
	"github.com/aescanero/agentflow/internal/application/workers"
	"github.com/aescanero/agentflow/internal/config"
	eventsmemory "github.com/aescanero/agentflow/pkg/adapters/events/memory"
	eventsredis "github.com/aescanero/agentflow/pkg/adapters/events/redis"
	"github.com/aescanero/agentflow/pkg/adapters/llm"
	"github.com/aescanero/agentflow/pkg/adapters/metrics/prometheus"
	storagememory "github.com/aescanero/agentflow/pkg/adapters/storage/memory"
	storageredis "github.com/aescanero/agentflow/pkg/adapters/storage/redis"
	"github.com/aescanero/agentflow/pkg/api/grpc"
	"github.com/aescanero/agentflow/pkg/api/http"
	"github.com/aescanero/agentflow/pkg/api/websocket"
	"github.com/aescanero/agentflow/pkg/ports"

	promclient "github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
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
	defer func() { _ = logger.Sync() }()

	logger.Info("starting agentflow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	// Initialize Redis client when a backend needs it
	var redisClient *goredis.Client
	if cfg.UsesRedis() {
		redisClient = newRedisClient(cfg.Redis)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// Initialize adapters
	eventBus := newEventBus(cfg, redisClient, logger)
	reportStorage := newReportStorage(cfg, redisClient, logger)
	metricsCollector := prometheus.NewCollector(promclient.DefaultRegisterer)

	unitFactory, err := llm.NewFactory(&llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.DefaultModel,
		Temperature: cfg.LLM.DefaultTemperature,
		MaxTokens:   cfg.LLM.DefaultMaxTokens,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("failed to create LLM factory", zap.Error(err))
	}

	roles := registry.New()
	for _, rs := range chain.DefaultRoles() {
		if err := roles.Register(rs.Role, unitFactory.NewUnit(rs.Role, rs.SystemPrompt)); err != nil {
			logger.Fatal("failed to register role", zap.String("role", rs.Role), zap.Error(err))
		}
	}
	logger.Info("roles registered",
		zap.Strings("roles", roles.Roles()),
		zap.String("provider", cfg.LLM.Provider))

	// Graph levels only run on the worker pool in parallel mode
	var workerPool *workers.Pool
	if cfg.Workflow.ParallelGraph {
		workerPool = workers.NewPool(
			cfg.Workers.PoolSize,
			metricsCollector,
			logger,
			cfg.Workers.HealthCheckInterval,
		)
		if err := workerPool.Start(); err != nil {
			logger.Fatal("failed to start worker pool", zap.Error(err))
		}
	}

	managerCfg := orchestrator.ManagerConfig{
		Registry:          roles,
		Policy:            orchestrator.FixedScoring(cfg.Workflow.SuccessConfidence, cfg.Workflow.FailureConfidence),
		EventBus:          eventBus,
		Storage:           reportStorage,
		Metrics:           metricsCollector,
		Logger:            logger,
		PipelineThreshold: cfg.Workflow.PipelineThreshold,
		GraphThreshold:    cfg.Workflow.GraphThreshold,
		Pool:              workerPool,
	}
	orchestratorMgr := orchestrator.NewManager(managerCfg)

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Port:           cfg.HTTPPort,
		Orchestrator:   orchestratorMgr,
		Pool:           workerPool,
		RequestTimeout: cfg.Timeouts.Request,
		Logger:         logger,
	})

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(eventBus, logger)
	httpServer.SetupWebSocket(wsHandler)

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:         cfg.GRPCPort,
		Orchestrator: orchestratorMgr,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("agentflow started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize),
		zap.Bool("parallel_graph", cfg.Workflow.ParallelGraph),
		zap.String("events_backend", cfg.Backends.Events),
		zap.String("storage_backend", cfg.Backends.Storage))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := orchestratorMgr.Shutdown(shutdownCtx); err != nil {
		logger.Error("orchestrator shutdown error", zap.Error(err))
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if workerPool != nil {
		if err := workerPool.Shutdown(shutdownCtx); err != nil {
			logger.Error("worker pool shutdown error", zap.Error(err))
		}
	}

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("agentflow shut down complete")
}

func newRedisClient(cfg config.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

func newEventBus(cfg *config.Config, client *goredis.Client, logger *zap.Logger) ports.EventBus {
	if cfg.Backends.Events == config.BackendRedis {
		return eventsredis.NewStreamsEventBus(client, cfg.Backends.StreamMaxLength, logger)
	}
	return eventsmemory.NewInMemoryEventBus()
}

func newReportStorage(cfg *config.Config, client *goredis.Client, logger *zap.Logger) ports.ReportStorage {
	if cfg.Backends.Storage == config.BackendRedis {
		return storageredis.NewReportStorage(client, cfg.Backends.ReportTTL, logger)
	}
	return storagememory.NewInMemoryReportStorage()
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
