package llm

import (
	"fmt"

	"github.com/aescanero/agentflow/pkg/adapters/llm/anthropic"
	"github.com/aescanero/agentflow/pkg/adapters/llm/echo"
	"github.com/aescanero/agentflow/pkg/domain"
	"go.uber.org/zap"
)

// Supported providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderEcho      = "echo"
)

// Config holds LLM client configuration
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Logger      *zap.Logger
}

// Factory creates one unit per role, sharing a single provider client.
type Factory struct {
	cfg    Config
	client *anthropic.Client
}

// NewFactory creates a unit factory for the configured provider
func NewFactory(cfg *Config) (*Factory, error) {
	f := &Factory{cfg: *cfg}

	switch cfg.Provider {
	case ProviderAnthropic:
		client, err := anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Logger:      cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		f.client = client
	case ProviderEcho:
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	return f, nil
}

// NewUnit creates the unit for role with the given system prompt
func (f *Factory) NewUnit(role, systemPrompt string) domain.Unit {
	if f.client != nil {
		return f.client.Unit(role, systemPrompt)
	}
	return echo.New(role)
}
