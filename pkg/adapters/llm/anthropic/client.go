// Package anthropic implements units backed by the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "claude-sonnet-4-20250514"

// MessageCreator is the subset of the SDK message service used by units.
type MessageCreator interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Config holds Anthropic client settings.
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Logger      *zap.Logger
}

// Client creates role units sharing one SDK client.
type Client struct {
	messages    MessageCreator
	model       string
	temperature float64
	maxTokens   int64
	logger      *zap.Logger
}

// NewClient creates an Anthropic client from cfg.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	sdkClient := sdk.NewClient(option.WithAPIKey(cfg.APIKey))
	return NewClientWithMessages(&sdkClient.Messages, cfg), nil
}

// NewClientWithMessages creates a client over an existing message service.
func NewClientWithMessages(messages MessageCreator, cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		messages:    messages,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		logger:      logger,
	}
}

// Unit returns a unit that answers as role using systemPrompt.
func (c *Client) Unit(role, systemPrompt string) *Unit {
	return &Unit{client: c, role: role, systemPrompt: systemPrompt}
}

// Unit sends each input as a single user message.
type Unit struct {
	client       *Client
	role         string
	systemPrompt string
}

// Execute calls the Messages API and returns the concatenated text blocks.
func (u *Unit) Execute(ctx context.Context, input string) (string, error) {
	params := sdk.MessageNewParams{
		Model:       sdk.Model(u.client.model),
		MaxTokens:   u.client.maxTokens,
		Temperature: sdk.Float(u.client.temperature),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(input)),
		},
	}
	if u.systemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: u.systemPrompt}}
	}

	start := time.Now()
	msg, err := u.client.messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("LLM call failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("LLM returned no text content")
	}

	u.client.logger.Debug("LLM call completed",
		zap.String("role", u.role),
		zap.String("model", u.client.model),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
		zap.Duration("latency", time.Since(start)))

	return sb.String(), nil
}
