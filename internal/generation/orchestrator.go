package generation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-cast-agent/internal/domain"
)

// Backend generates text from a prompt. It may fail.
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f BackendFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Orchestrator produces validated responses from templates and state.
type Orchestrator struct {
	Backend        Backend
	Policy         RetryPolicy
	MaxReplyLength int
}

// NewOrchestrator returns an Orchestrator using DefaultRetryPolicy(maxAttempts).
func NewOrchestrator(b Backend, maxAttempts, maxReplyLength int) *Orchestrator {
	return &Orchestrator{
		Backend:        b,
		Policy:         DefaultRetryPolicy(maxAttempts),
		MaxReplyLength: maxReplyLength,
	}
}

// Generate composes template with vars and runs GenerateWithRetries.
func (o *Orchestrator) Generate(ctx context.Context, template string, vars map[string]string) (domain.GeneratedResponse, error) {
	return o.GenerateWithRetries(ctx, ComposePrompt(template, vars))
}

// GenerateWithRetries calls the backend at most Policy.MaxAttempts times,
// stopping at the first output that parses. Backend errors and parse
// failures are both retried; after the last attempt the result wraps
// ErrExhausted and the last failure. A cancelled context stops early.
func (o *Orchestrator) GenerateWithRetries(ctx context.Context, prompt string) (domain.GeneratedResponse, error) {
	limit := o.Policy.attempts()
	ctx, span := otel.Tracer("generation/Orchestrator").Start(ctx, "GenerateWithRetries",
		trace.WithAttributes(attribute.Int("generation.max_attempts", limit)),
	)
	defer span.End()
	lg := zerolog.Ctx(ctx)

	current := prompt
	var lastErr error
	for attempt := 1; attempt <= limit; attempt++ {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			return domain.GeneratedResponse{}, err
		}
		span.SetAttributes(attribute.Int("generation.attempt", attempt))

		raw, err := o.Backend.Generate(ctx, current)
		if err != nil {
			attemptsTotal.WithLabelValues("backend_error").Inc()
			lg.Warn().Err(err).Int("attempt", attempt).Msg("generation backend failed")
			lastErr = err
			current = o.Policy.retryPrompt(prompt, attempt, err)
			continue
		}

		p, err := parse(raw, o.MaxReplyLength)
		if err != nil {
			attemptsTotal.WithLabelValues("parse_error").Inc()
			lg.Warn().Err(err).Int("attempt", attempt).Msg("generation output rejected")
			lastErr = err
			current = o.Policy.retryPrompt(prompt, attempt, err)
			continue
		}

		attemptsTotal.WithLabelValues("ok").Inc()
		if p.marker != "" && p.marker != p.resp.Action {
			lg.Info().
				Str("action", p.resp.Action).
				Str("inline_action", p.marker).
				Msg("inline action marker disagrees with action field; keeping field")
		}
		span.SetAttributes(attribute.String("generation.action", p.resp.Action))
		return p.resp, nil
	}

	span.SetStatus(codes.Error, "exhausted")
	return domain.GeneratedResponse{}, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, limit, lastErr)
}
