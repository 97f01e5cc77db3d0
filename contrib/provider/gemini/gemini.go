// Package gemini adapts the Google generative AI SDK to the provider.Invoker
// contract.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/competeiq/tripartite/errors"
	"github.com/competeiq/tripartite/message"
	"github.com/competeiq/tripartite/provider"
)

// Config holds Gemini provider configuration
type Config struct {
	APIKey      string
	MaxTokens   int32
	Temperature float32
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

// Invoker implements provider.Invoker for Google Gemini models.
type Invoker struct {
	config *Config
	client *genai.Client
}

// New creates a new Gemini invoker. The client holds a connection pool and
// should be closed with Close when the pipeline shuts down.
func New(ctx context.Context, config *Config) (*Invoker, error) {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key not configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client init failed: %w", err)
	}

	return &Invoker{config: config, client: client}, nil
}

// Name implements provider.Invoker.
func (p *Invoker) Name() string { return "gemini" }

// Close releases the underlying client.
func (p *Invoker) Close() error { return p.client.Close() }

// Invoke implements provider.Invoker.
func (p *Invoker) Invoke(ctx context.Context, msgs []*message.Message, model string) (*provider.Response, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}

	gm := p.client.GenerativeModel(model)
	gm.SetMaxOutputTokens(p.config.MaxTokens)
	gm.SetTemperature(p.config.Temperature)

	// System messages become the system instruction; the rest are flattened
	// into one user turn since the pipeline sends single-shot prompt sets.
	var systemParts []genai.Part
	var userText strings.Builder
	for _, msg := range msgs {
		switch msg.Role {
		case message.RoleSystem:
			systemParts = append(systemParts, genai.Text(msg.Text()))
		case message.RoleUser, message.RoleAssistant:
			if userText.Len() > 0 {
				userText.WriteString("\n\n")
			}
			userText.WriteString(msg.Text())
		}
	}
	if len(systemParts) > 0 {
		gm.SystemInstruction = &genai.Content{Parts: systemParts}
	}

	started := time.Now()
	resp, err := gm.GenerateContent(ctx, genai.Text(userText.String()))
	latency := time.Since(started)
	if err != nil {
		return nil, &errors.TransportError{Provider: "gemini", Err: err}
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break // first candidate only
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, &errors.EmptyGenerationError{Provider: "gemini", Model: model}
	}

	var inputTokens, outputTokens int
	if resp.UsageMetadata != nil {
		inputTokens = int(resp.UsageMetadata.PromptTokenCount)
		outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return &provider.Response{
		Text:          text,
		Model:         model,
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		EstimatedCost: provider.EstimateCost(model, inputTokens, outputTokens),
		Latency:       latency,
	}, nil
}
