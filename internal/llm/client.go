// Package llm provides the text generation backend used by the reply
// pipeline, built on langchaingo so the provider (OpenAI-compatible or
// Ollama) is a configuration choice.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-cast-agent/internal/config"
)

// ErrEmptyCompletion is returned when the provider answers with no text.
var ErrEmptyCompletion = errors.New("llm returned empty completion")

// Client generates text from a single prompt.
type Client struct {
	model       llms.Model
	provider    string
	modelName   string
	temperature float64
	maxTokens   int
}

// New builds a Client for cfg.Provider.
func New(cfg config.LLMConfig) (*Client, error) {
	var (
		model llms.Model
		err   error
	)
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		opts := []openai.Option{
			openai.WithModel(cfg.Model),
			openai.WithToken(cfg.APIKey),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err = openai.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s model: %w", cfg.Provider, err)
	}
	return NewWithModel(model, cfg), nil
}

// NewWithModel wraps an existing langchaingo model (tests, custom providers).
func NewWithModel(model llms.Model, cfg config.LLMConfig) *Client {
	return &Client{
		model:       model,
		provider:    cfg.Provider,
		modelName:   cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Generate sends prompt to the model and returns the completion text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("llm/Client").Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.String("llm.provider", c.provider),
			attribute.String("llm.model", c.modelName),
			attribute.Int("llm.prompt_chars", len(prompt)),
		),
	)
	defer span.End()

	opts := []llms.CallOption{llms.WithTemperature(c.temperature)}
	if c.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.maxTokens))
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt, opts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate")
		return "", fmt.Errorf("llm generate: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		span.SetStatus(codes.Error, "empty")
		return "", ErrEmptyCompletion
	}
	return out, nil
}
