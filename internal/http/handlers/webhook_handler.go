// Webhook HTTP handler.
//
//   - POST /webhook/mentions   (cast event ingestion)
//
// The body is a webhook event. The response is {"status": "ok"} or
// {"status": "ignored_duplicate"} on 200; {"error": "..."} on 400 for an
// invalid payload and on 500 when the conversation could not be fetched,
// persistence failed or a pipeline collaborator panicked. Generation and
// publish failures are acknowledged 200.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-cast-agent/internal/domain"
	"github.com/tbourn/go-cast-agent/internal/http/middleware"
	"github.com/tbourn/go-cast-agent/internal/services"
)

// WebhookAck is the success body of the webhook endpoint.
type WebhookAck struct {
	Status services.AckStatus `json:"status" example:"ok"`
}

// WebhookError is the failure body of the webhook endpoint.
type WebhookError struct {
	Error string `json:"error" example:"invalid webhook payload"`
}

// ReceiveWebhook godoc
// @ID          receiveWebhook
// @Summary     Ingest a cast event
// @Description Runs the reply pipeline for a cast.created event. Duplicate deliveries are acknowledged with ignored_duplicate.
// @Tags        Webhooks
// @Accept      json
// @Produce     json
//
// @Param       X-Neynar-Signature  header  string               false "hex HMAC-SHA512 of the body (required when a secret is configured)"
// @Param       body                body    domain.WebhookEvent  true  "Webhook event"
//
// @Success     200  {object}  handlers.WebhookAck
// @Failure     400  {object}  handlers.WebhookError  "Invalid payload"
// @Failure     401  {object}  handlers.WebhookError  "Bad signature"
// @Failure     500  {object}  handlers.WebhookError  "Upstream or internal failure"
// @Router      /webhook/mentions [post]
func (h *Handlers) ReceiveWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, WebhookError{Error: "request body unreadable"})
		return
	}
	var ev domain.WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, WebhookError{Error: services.ErrInvalidPayload.Error()})
		return
	}

	ack, err := h.webhook.Handle(c.Request.Context(), &ev)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, WebhookAck{Status: ack})
	case errors.Is(err, services.ErrInvalidPayload):
		c.AbortWithStatusJSON(http.StatusBadRequest, WebhookError{Error: err.Error()})
	case errors.Is(err, services.ErrUpstreamFetch):
		middleware.LoggerFrom(c).Error().Err(err).Msg("webhook upstream failure")
		c.AbortWithStatusJSON(http.StatusInternalServerError, WebhookError{Error: services.ErrUpstreamFetch.Error()})
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("webhook processing failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, WebhookError{Error: "internal error"})
	}
}
