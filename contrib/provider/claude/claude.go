// Package claude adapts the official Anthropic SDK to the provider.Invoker
// contract.
package claude

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/competeiq/tripartite/errors"
	"github.com/competeiq/tripartite/message"
	"github.com/competeiq/tripartite/provider"
)

// Config holds Claude provider configuration
type Config struct {
	APIKey      string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default Claude configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		MaxTokens:   4096,
		Temperature: 0.7,
	}
}

// Invoker implements provider.Invoker for Anthropic Claude models.
type Invoker struct {
	config *Config
	client anthropic.Client
}

// New creates a new Claude invoker using the official SDK
func New(config *Config) *Invoker {
	if config == nil {
		config = DefaultConfig("")
	}

	options := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
	}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}
	client := anthropic.NewClient(options...)

	return &Invoker{
		config: config,
		client: client,
	}
}

// Name implements provider.Invoker.
func (p *Invoker) Name() string { return "claude" }

// Invoke implements provider.Invoker.
func (p *Invoker) Invoke(ctx context.Context, msgs []*message.Message, model string) (*provider.Response, error) {
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}

	// Anthropic takes system prompts on the request, not in the message list.
	var systemPrompts []string
	conversation := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case message.RoleSystem:
			systemPrompts = append(systemPrompts, msg.Text())
		case message.RoleUser:
			conversation = append(conversation,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text())))
		case message.RoleAssistant:
			conversation = append(conversation,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Text())))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  conversation,
		MaxTokens: p.config.MaxTokens,
	}
	if len(systemPrompts) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: strings.Join(systemPrompts, "\n")},
		}
	}
	if p.config.Temperature > 0 {
		params.Temperature = param.NewOpt(p.config.Temperature)
	}

	started := time.Now()
	resp, err := p.client.Messages.New(ctx, params)
	latency := time.Since(started)
	if err != nil {
		return nil, &errors.TransportError{Provider: "claude", Err: err}
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, &errors.EmptyGenerationError{Provider: "claude", Model: model}
	}

	inputTokens := int(resp.Usage.InputTokens)
	outputTokens := int(resp.Usage.OutputTokens)

	return &provider.Response{
		Text:          text,
		Model:         model,
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		EstimatedCost: provider.EstimateCost(model, inputTokens, outputTokens),
		Latency:       latency,
	}, nil
}
