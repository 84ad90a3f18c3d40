// Package services – WebhookService
//
// This file implements the mention/reply pipeline run for every inbound
// webhook event: validation, dedup, classification, the durable
// already-responded check, conversation fetch, the evaluation and reply
// generation passes, and reply resolution through the action coordinator.
//
// Each request runs to a terminal state inside Handle. Failures the sender
// cannot act on (generation exhausted, publish failure) are logged and
// acknowledged as ok; invalid payloads, upstream fetch failures and panics
// in collaborators are returned as errors.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-cast-agent/internal/actions"
	"github.com/tbourn/go-cast-agent/internal/cache"
	"github.com/tbourn/go-cast-agent/internal/domain"
	"github.com/tbourn/go-cast-agent/internal/generation"
	"github.com/tbourn/go-cast-agent/internal/knowledge"
)

// AckStatus is the acknowledgment returned to the webhook sender.
type AckStatus string

// Acknowledgments.
const (
	AckOK               AckStatus = "ok"
	AckIgnoredDuplicate AckStatus = "ignored_duplicate"
)

// HistoryFetcher returns the flattened conversation of a thread.
type HistoryFetcher interface {
	GetHistory(ctx context.Context, threadHash string) ([]domain.ConversationMessage, error)
}

// ResponseGenerator fills template with vars and returns a validated response.
type ResponseGenerator interface {
	Generate(ctx context.Context, template string, vars map[string]string) (domain.GeneratedResponse, error)
}

// Resolver publishes at most one reply for an interaction.
type Resolver interface {
	Resolve(ctx context.Context, req actions.Request) (actions.Resolution, error)
}

// KnowledgeSource ranks knowledge snippets for a query.
type KnowledgeSource interface {
	Search(query string, k int) []knowledge.Snippet
}

type metadataUpdater interface {
	UpdateMetadata(ctx context.Context, id, metadata string) error
}

// WebhookService drives the reply pipeline. Knowledge and ActionNames are optional.
type WebhookService struct {
	Dedup      *cache.DedupCache
	Store      Store
	History    HistoryFetcher
	Generator  ResponseGenerator
	Resolver   Resolver
	Characters *CharacterStore
	Knowledge  KnowledgeSource

	// ActionNames lists the actions offered to the model.
	ActionNames func() []string

	AgentFID           int64
	ConversationBudget int
	MaxReplyLength     int
}

type interactionMetadata struct {
	Kind         string `json:"kind"`
	AuthorHandle string `json:"author_handle,omitempty"`
	ThreadHash   string `json:"thread_hash,omitempty"`
	ParentHash   string `json:"parent_hash,omitempty"`
	Channel      string `json:"channel,omitempty"`
	Evaluation   string `json:"evaluation,omitempty"`
	Action       string `json:"action,omitempty"`
	ReplyHash    string `json:"reply_hash,omitempty"`
}

// Handle runs the pipeline for ev and returns the acknowledgment. A panic in
// any collaborator is recovered and returned wrapping ErrPipelinePanic.
func (s *WebhookService) Handle(ctx context.Context, ev *domain.WebhookEvent) (ack AckStatus, err error) {
	tr := otel.Tracer("services/WebhookService")
	ctx, span := tr.Start(ctx, "Handle")
	defer span.End()
	defer func() {
		if rec := recover(); rec != nil {
			webhookEvents.WithLabelValues(OutcomeInternalError).Inc()
			zerolog.Ctx(ctx).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("webhook pipeline panic recovered")
			span.SetStatus(codes.Error, "panic")
			ack, err = "", fmt.Errorf("%w: %v", ErrPipelinePanic, rec)
		}
	}()

	if err := ev.Validate(); err != nil {
		webhookEvents.WithLabelValues(OutcomeInvalid).Inc()
		return "", errors.Join(ErrInvalidPayload, err)
	}
	c := ev.Cast
	span.SetAttributes(attribute.String("cast.hash", c.Hash), attribute.String("event.type", ev.Type))

	lg := zerolog.Ctx(ctx).With().Str("cast_hash", c.Hash).Logger()
	ctx = lg.WithContext(ctx)

	if ev.Type != domain.EventCastCreated {
		webhookEvents.WithLabelValues(OutcomeUnsupported).Inc()
		lg.Debug().Str("event_type", ev.Type).Msg("unsupported webhook event ignored")
		return AckOK, nil
	}

	dup := s.Dedup.IsDuplicate(ev)
	dedupEntries.Set(float64(s.Dedup.Len()))
	if dup {
		webhookEvents.WithLabelValues(OutcomeDuplicate).Inc()
		lg.Debug().Msg("duplicate webhook delivery ignored")
		return AckIgnoredDuplicate, nil
	}

	kind := Classify(c, s.AgentFID)
	if kind == "" {
		webhookEvents.WithLabelValues(OutcomeIgnored).Inc()
		lg.Debug().Msg("cast not addressed to agent")
		return AckOK, nil
	}
	span.SetAttributes(attribute.String("interaction.kind", kind))

	done, err := s.Store.HasResponded(ctx, c.Hash)
	if err != nil {
		return s.fail(span, "has responded", err)
	}
	if done {
		webhookEvents.WithLabelValues(OutcomeAlreadyResponded).Inc()
		lg.Info().Msg("cast already responded")
		return AckOK, nil
	}

	history, err := s.History.GetHistory(ctx, c.RoomID())
	if err != nil {
		webhookEvents.WithLabelValues(OutcomeUpstreamFailed).Inc()
		span.SetStatus(codes.Error, "conversation fetch")
		lg.Error().Err(err).Msg("conversation fetch failed")
		return "", fmt.Errorf("%w: %w", ErrUpstreamFetch, err)
	}

	meta := interactionMetadata{Kind: kind, ThreadHash: c.ThreadHash, ParentHash: c.ParentHash}
	if c.Author != nil {
		meta.AuthorHandle = c.Author.Handle
	}
	if c.Channel != nil {
		meta.Channel = c.Channel.ID
	}
	in := &domain.Interaction{
		RoomID:   c.RoomID(),
		AuthorID: strconv.FormatInt(c.Author.FID, 10),
		CastHash: c.Hash,
		Kind:     kind,
		Text:     c.Text,
		Metadata: encodeMetadata(meta),
	}
	if err := s.Store.RecordInteraction(ctx, in); err != nil {
		if errors.Is(err, ErrAlreadyResponded) {
			webhookEvents.WithLabelValues(OutcomeAlreadyResponded).Inc()
			lg.Info().Msg("concurrent delivery already recorded this cast")
			return AckOK, nil
		}
		return s.fail(span, "record interaction", err)
	}
	lg = lg.With().Str("interaction_id", in.ID).Logger()
	ctx = lg.WithContext(ctx)

	character := s.Characters.Current()
	st := promptState{
		character:   character,
		cast:        c,
		kind:        kind,
		history:     history,
		budget:      s.ConversationBudget,
		maxReplyLen: s.MaxReplyLength,
	}
	if s.ActionNames != nil {
		st.actionNames = s.ActionNames()
	}
	if s.Knowledge != nil {
		st.knowledge = s.Knowledge.Search(c.Text, knowledgeSnippets)
	}

	evalTpl, replyTpl := templatesFor(character)
	evaluation, err := s.Generator.Generate(ctx, evalTpl, st.vars())
	if err != nil {
		return s.abandon(ctx, span, "evaluation", err)
	}
	meta.Evaluation = evaluation.Text
	s.updateMetadata(ctx, in.ID, meta)

	st.evaluation = evaluation.Text
	candidate, err := s.Generator.Generate(ctx, replyTpl, st.vars())
	if err != nil {
		return s.abandon(ctx, span, "reply", err)
	}

	res, err := s.Resolver.Resolve(ctx, actions.Request{Interaction: in, Cast: c, Response: candidate})
	if err != nil {
		if errors.Is(err, actions.ErrPublish) {
			webhookEvents.WithLabelValues(OutcomePublishFailed).Inc()
			span.SetStatus(codes.Error, "publish")
			lg.Error().Err(err).Msg("reply publish failed; no reply sent")
			return AckOK, nil
		}
		return s.fail(span, "resolve", err)
	}

	switch {
	case res.Suppressed:
		webhookEvents.WithLabelValues(OutcomeSuppressed).Inc()
		lg.Info().Str("action", candidate.Action).Msg("reply suppressed by action")
	case res.Published:
		webhookEvents.WithLabelValues(OutcomeAnswered).Inc()
		meta.Action, meta.ReplyHash = candidate.Action, res.ReplyHash
		s.updateMetadata(ctx, in.ID, meta)
		lg.Info().Str("path", res.Path).Str("reply_hash", res.ReplyHash).Msg("interaction answered")
	default:
		webhookEvents.WithLabelValues(OutcomeAlreadyResponded).Inc()
		lg.Info().Msg("reply claimed elsewhere; nothing published")
	}
	return AckOK, nil
}

// abandon ends an interaction whose generation failed. Exhaustion is silent
// towards the sender.
func (s *WebhookService) abandon(ctx context.Context, span trace.Span, pass string, err error) (AckStatus, error) {
	lg := zerolog.Ctx(ctx)
	if errors.Is(err, generation.ErrExhausted) {
		webhookEvents.WithLabelValues(OutcomeGenerationFailed).Inc()
		span.SetStatus(codes.Error, "generation exhausted")
		lg.Warn().Err(err).Str("pass", pass).Msg("generation exhausted; interaction abandoned")
		return AckOK, nil
	}
	return s.fail(span, pass+" generation", err)
}

func (s *WebhookService) fail(span trace.Span, op string, err error) (AckStatus, error) {
	webhookEvents.WithLabelValues(OutcomeInternalError).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	return "", fmt.Errorf("%s: %w", op, err)
}

func (s *WebhookService) updateMetadata(ctx context.Context, id string, meta interactionMetadata) {
	u, ok := s.Store.(metadataUpdater)
	if !ok {
		return
	}
	if err := u.UpdateMetadata(ctx, id, encodeMetadata(meta)); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("update interaction metadata failed")
	}
}

func encodeMetadata(m interactionMetadata) string {
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func templatesFor(c *domain.Character) (evaluation, reply string) {
	evaluation, reply = generation.DefaultEvaluationTemplate, generation.DefaultReplyTemplate
	if c.Templates.Evaluation != "" {
		evaluation = c.Templates.Evaluation
	}
	if c.Templates.Reply != "" {
		reply = c.Templates.Reply
	}
	return evaluation, reply
}
