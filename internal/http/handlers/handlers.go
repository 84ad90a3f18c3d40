// Package handlers wires HTTP endpoints to the application services.
//
// Handlers are transport-thin: they decode input, call a service, and map the
// result to a response. Services are consumed through the interfaces below so
// tests can substitute stubs.
package handlers

import (
	"context"

	"github.com/tbourn/go-cast-agent/internal/domain"
	"github.com/tbourn/go-cast-agent/internal/services"
)

// WebhookService runs the reply pipeline for one inbound event.
type WebhookService interface {
	Handle(ctx context.Context, ev *domain.WebhookEvent) (services.AckStatus, error)
}

// InteractionService serves recorded interactions.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type InteractionService interface {
	// ListPage returns a page of interactions and the total count.
	ListPage(ctx context.Context, roomID string, page, pageSize int) ([]domain.Interaction, int64, error)
	// Get returns one interaction or services.ErrInteractionNotFound.
	Get(ctx context.Context, id string) (*domain.Interaction, error)
	// Replies returns the published replies of an interaction.
	Replies(ctx context.Context, id string) ([]domain.ReplyMemory, error)
	// ListETag and RepliesETag fingerprint the collections for If-None-Match.
	ListETag(ctx context.Context, roomID string) (string, error)
	RepliesETag(ctx context.Context, id string) (string, error)
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	webhook      WebhookService
	interactions InteractionService
}

// New constructs a Handlers bound to the given services.
func New(webhook WebhookService, interactions InteractionService) *Handlers {
	return &Handlers{webhook: webhook, interactions: interactions}
}
