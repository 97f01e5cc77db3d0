// Package openai adapts the official OpenAI SDK to the provider.Invoker
// contract.
package openai

import (
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/competeiq/tripartite/errors"
	"github.com/competeiq/tripartite/message"
	"github.com/competeiq/tripartite/provider"
)

// Config holds OpenAI provider configuration
type Config struct {
	APIKey      string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default OpenAI configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		MaxTokens:   2000,
		Temperature: 0.7,
	}
}

// Invoker implements provider.Invoker for OpenAI chat models.
type Invoker struct {
	config *Config
	client openai.Client
}

// New creates a new OpenAI invoker using the official SDK
func New(config *Config) *Invoker {
	if config == nil {
		config = DefaultConfig("")
	}

	options := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}
	client := openai.NewClient(options...)

	return &Invoker{
		config: config,
		client: client,
	}
}

// Name implements provider.Invoker.
func (p *Invoker) Name() string { return "openai" }

// Invoke implements provider.Invoker. A single attempt: transport failures are
// surfaced as *errors.TransportError, empty completions as
// *errors.EmptyGenerationError.
func (p *Invoker) Invoke(ctx context.Context, msgs []*message.Message, model string) (*provider.Response, error) {
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}

	openAIMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case message.RoleSystem:
			openAIMessages = append(openAIMessages, openai.SystemMessage(msg.Text()))
		case message.RoleUser:
			openAIMessages = append(openAIMessages, openai.UserMessage(msg.Text()))
		case message.RoleAssistant:
			openAIMessages = append(openAIMessages, openai.AssistantMessage(msg.Text()))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages: openAIMessages,
		Model:    openai.ChatModel(model),
	}
	if p.config.Temperature > 0 {
		params.Temperature = param.NewOpt(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(p.config.MaxTokens)
	}

	started := time.Now()
	completion, err := p.client.Chat.Completions.New(ctx, params)
	latency := time.Since(started)
	if err != nil {
		return nil, &errors.TransportError{Provider: "openai", Err: err}
	}

	if len(completion.Choices) == 0 {
		return nil, &errors.EmptyGenerationError{Provider: "openai", Model: model}
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return nil, &errors.EmptyGenerationError{Provider: "openai", Model: model}
	}

	inputTokens := int(completion.Usage.PromptTokens)
	outputTokens := int(completion.Usage.CompletionTokens)

	return &provider.Response{
		Text:          text,
		Model:         model,
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		EstimatedCost: provider.EstimateCost(model, inputTokens, outputTokens),
		Latency:       latency,
	}, nil
}
