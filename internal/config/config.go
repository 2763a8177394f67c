package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Backend names for events and report storage.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all configuration for the agentflow server
type Config struct {
	// Server configuration
	HTTPPort int    `env:"AGENTFLOW_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"AGENTFLOW_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Redis    RedisConfig
	Backends BackendConfig
	LLM      LLMConfig
	Workflow WorkflowConfig
	Workers  WorkerConfig
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// BackendConfig selects the event bus and report store implementations
type BackendConfig struct {
	Events          string        `env:"EVENTS_BACKEND" envDefault:"memory"`
	Storage         string        `env:"STORAGE_BACKEND" envDefault:"memory"`
	ReportTTL       time.Duration `env:"REPORT_TTL" envDefault:"24h"`
	StreamMaxLength int64         `env:"EVENTS_STREAM_MAX_LEN" envDefault:"10000"`
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"anthropic"`
	APIKey   string `env:"LLM_API_KEY"`

	// Default model settings
	DefaultModel       string  `env:"LLM_DEFAULT_MODEL" envDefault:"claude-sonnet-4-20250514"`
	DefaultTemperature float64 `env:"LLM_DEFAULT_TEMPERATURE" envDefault:"0.7"`
	DefaultMaxTokens   int     `env:"LLM_DEFAULT_MAX_TOKENS" envDefault:"4096"`
}

// WorkflowConfig holds scoring and classification settings
type WorkflowConfig struct {
	SuccessConfidence float64 `env:"WORKFLOW_SUCCESS_CONFIDENCE" envDefault:"0.9"`
	FailureConfidence float64 `env:"WORKFLOW_FAILURE_CONFIDENCE" envDefault:"0.2"`
	PipelineThreshold float64 `env:"WORKFLOW_PIPELINE_THRESHOLD" envDefault:"0.6"`
	GraphThreshold    float64 `env:"WORKFLOW_GRAPH_THRESHOLD" envDefault:"0.6"`
	ParallelGraph     bool    `env:"WORKFLOW_PARALLEL_GRAPH" envDefault:"false"`
}

// WorkerConfig holds worker pool configuration
type WorkerConfig struct {
	PoolSize            int           `env:"WORKER_POOL_SIZE" envDefault:"5"`
	HealthCheckInterval time.Duration `env:"WORKER_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	Request  time.Duration `env:"TIMEOUT_REQUEST" envDefault:"300s"` // 5 minutes
	Shutdown time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	// Validate backends
	for name, backend := range map[string]string{"events": c.Backends.Events, "storage": c.Backends.Storage} {
		if backend != BackendMemory && backend != BackendRedis {
			return fmt.Errorf("unsupported %s backend: %s (must be memory or redis)", name, backend)
		}
	}
	if c.UsesRedis() && c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	// Validate LLM config
	switch c.LLM.Provider {
	case "anthropic":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("LLM API key is required")
		}
	case "echo":
	default:
		return fmt.Errorf("unsupported LLM provider: %s (must be anthropic or echo)", c.LLM.Provider)
	}

	// Validate workflow scoring
	for name, v := range map[string]float64{
		"success confidence": c.Workflow.SuccessConfidence,
		"failure confidence": c.Workflow.FailureConfidence,
		"pipeline threshold": c.Workflow.PipelineThreshold,
		"graph threshold":    c.Workflow.GraphThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", name, v)
		}
	}

	// Validate worker config
	if c.Workers.PoolSize < 1 {
		return fmt.Errorf("worker pool size must be at least 1")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// UsesRedis reports whether any backend needs a Redis connection
func (c *Config) UsesRedis() bool {
	return c.Backends.Events == BackendRedis || c.Backends.Storage == BackendRedis
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
