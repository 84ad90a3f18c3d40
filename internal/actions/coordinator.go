// Package actions decides who publishes the reply to an interaction: a
// pluggable action handler, or the default path with the candidate response.
//
// At most one reply is published per cast hash. An action publishes through
// the callback it is handed, which records a pending claim; the default path
// runs only when no claim exists once the action stage returns. Both paths
// also go through an optional durable claim-if-absent, so a claim that
// expired from memory, or a concurrent delivery of the same cast, cannot
// cause a second reply.
package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-cast-agent/internal/cache"
	"github.com/tbourn/go-cast-agent/internal/domain"
)

var (
	// ErrPublish wraps a failed reply submission.
	ErrPublish = errors.New("publish reply failed")

	// ErrAlreadyClaimed is returned by the publish callback when the cast
	// already has (or is getting) a reply.
	ErrAlreadyClaimed = errors.New("reply already claimed")

	// ErrSuppressed may be returned by an action to mean "handled, no reply".
	ErrSuppressed = errors.New("reply suppressed by action")
)

// Publisher creates a reply cast under parentHash and returns its hash.
type Publisher interface {
	PublishReply(ctx context.Context, text, parentHash string) (string, error)
}

// Claimer is a durable single-writer guard keyed by cast hash. ClaimResponse
// must fail with ErrAlreadyClaimed when a claim exists.
type Claimer interface {
	ClaimResponse(ctx context.Context, castHash, path string) error
	CompleteClaim(ctx context.Context, castHash, replyHash string) error
	ReleaseClaim(ctx context.Context, castHash string) error
}

// MemoryRecorder persists replies that were actually published.
type MemoryRecorder interface {
	RecordReplyMemory(ctx context.Context, m *domain.ReplyMemory) error
}

// Request is one interaction awaiting resolution.
type Request struct {
	Interaction *domain.Interaction
	Cast        *domain.Cast
	Response    domain.GeneratedResponse
}

// PublishFunc publishes text as the reply to the request's cast.
type PublishFunc func(ctx context.Context, text string) (replyHash string, err error)

// Stage runs side-effecting actions for a request. It may call publish.
type Stage interface {
	Run(ctx context.Context, req Request, publish PublishFunc) error
}

// Resolution reports what Resolve did.
type Resolution struct {
	Published  bool
	Path       string
	ReplyHash  string
	Suppressed bool
}

// Coordinator resolves interactions. Publisher and Claims are required;
// Durable, Memory and Stage may be nil.
type Coordinator struct {
	Publisher Publisher
	Claims    *cache.ClaimCache
	Durable   Claimer
	Memory    MemoryRecorder
	Stage     Stage
}

// Resolve runs the action stage and publishes the candidate response when
// no action claimed the cast. A PublishFailure is returned wrapping ErrPublish;
// nothing is persisted for a reply that was not sent.
func (c *Coordinator) Resolve(ctx context.Context, req Request) (Resolution, error) {
	if req.Cast == nil || req.Interaction == nil {
		return Resolution{}, errors.New("resolve: missing cast or interaction")
	}
	hash := req.Cast.Hash
	ctx, span := otel.Tracer("actions/Coordinator").Start(ctx, "Resolve",
		trace.WithAttributes(
			attribute.String("cast.hash", hash),
			attribute.String("response.action", req.Response.Action),
		),
	)
	defer span.End()
	lg := zerolog.Ctx(ctx)

	var (
		claimedHere bool
		actionReply string
	)
	defer func() {
		if claimedHere {
			c.Claims.Release(hash)
		}
	}()

	publish := func(ctx context.Context, text string) (string, error) {
		if c.Claims.IsClaimed(hash) {
			return "", ErrAlreadyClaimed
		}
		replyHash, err := c.publish(ctx, req, text, domain.PathAction)
		if err != nil {
			return "", err
		}
		claimedHere = c.Claims.Claim(hash) || claimedHere
		actionReply = replyHash
		return replyHash, nil
	}

	if c.Stage != nil && req.Response.HasAction() {
		err := c.Stage.Run(ctx, req, publish)
		switch {
		case errors.Is(err, ErrSuppressed):
			if actionReply == "" {
				lg.Info().Str("action", req.Response.Action).Msg("reply suppressed by action")
				return Resolution{Suppressed: true}, nil
			}
		case err != nil:
			lg.Warn().Err(err).Str("action", req.Response.Action).Msg("action failed; falling back to default reply")
		}
	}

	if actionReply != "" || c.Claims.IsClaimed(hash) {
		span.SetAttributes(attribute.String("reply.path", domain.PathAction))
		return Resolution{Published: actionReply != "", Path: domain.PathAction, ReplyHash: actionReply}, nil
	}

	replyHash, err := c.publish(ctx, req, req.Response.Text, domain.PathDefault)
	if errors.Is(err, ErrAlreadyClaimed) {
		lg.Info().Msg("reply already claimed; skipping default publish")
		return Resolution{}, nil
	}
	if err != nil {
		return Resolution{}, err
	}
	span.SetAttributes(attribute.String("reply.path", domain.PathDefault))
	return Resolution{Published: true, Path: domain.PathDefault, ReplyHash: replyHash}, nil
}

// publish takes the durable claim, sends the reply and records its memory.
// The durable claim is released unless the send succeeded.
func (c *Coordinator) publish(ctx context.Context, req Request, text, path string) (string, error) {
	hash := req.Cast.Hash
	lg := zerolog.Ctx(ctx)
	sent := false

	if c.Durable != nil {
		if err := c.Durable.ClaimResponse(ctx, hash, path); err != nil {
			if errors.Is(err, ErrAlreadyClaimed) {
				return "", ErrAlreadyClaimed
			}
			return "", fmt.Errorf("claim %s reply: %w", path, err)
		}
		// Runs on a failed send and on a panicking publisher alike.
		defer func() {
			if sent {
				return
			}
			if rerr := c.Durable.ReleaseClaim(context.WithoutCancel(ctx), hash); rerr != nil {
				lg.Error().Err(rerr).Msg("release response claim failed")
			}
		}()
	}

	replyHash, err := c.Publisher.PublishReply(ctx, text, hash)
	if err != nil {
		return "", fmt.Errorf("%w (%s path): %w", ErrPublish, path, err)
	}
	sent = true
	repliesPublished.WithLabelValues(path).Inc()

	if c.Durable != nil {
		if err := c.Durable.CompleteClaim(ctx, hash, replyHash); err != nil {
			lg.Warn().Err(err).Msg("complete response claim failed")
		}
	}

	action := domain.ActionNone
	if path == domain.PathAction {
		action = req.Response.Action
	}
	mem := &domain.ReplyMemory{
		InteractionID: req.Interaction.ID,
		RoomID:        req.Interaction.RoomID,
		ParentHash:    hash,
		ReplyHash:     replyHash,
		Text:          text,
		Action:        action,
		Path:          path,
	}
	if c.Memory != nil {
		if err := c.Memory.RecordReplyMemory(ctx, mem); err != nil {
			lg.Error().Err(err).Str("reply_hash", replyHash).Msg("record reply memory failed")
		}
	}
	lg.Info().Str("path", path).Str("reply_hash", replyHash).Msg("reply published")
	return replyHash, nil
}
