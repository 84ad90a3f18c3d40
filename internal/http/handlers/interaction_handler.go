// Interaction HTTP handlers (operator API).
//
//   - GET /interactions                (list, paginated, ETag support)
//   - GET /interactions/{id}           (single interaction)
//   - GET /interactions/{id}/replies   (published replies, ETag support)
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-cast-agent/internal/domain"
	"github.com/tbourn/go-cast-agent/internal/services"
	"github.com/tbourn/go-cast-agent/internal/utils"
)

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListInteractionsResponse wraps a page of interactions.
type ListInteractionsResponse struct {
	Interactions []domain.Interaction `json:"interactions"`
	Pagination   Pagination           `json:"pagination"`
}

// ListRepliesResponse wraps the replies of an interaction.
type ListRepliesResponse struct {
	Replies []domain.ReplyMemory `json:"replies"`
}

// ListInteractions godoc
// @ID          listInteractions
// @Summary     List interactions (paginated)
// @Description Returns recorded interactions, newest first, optionally within one room (thread). Supports weak ETag via If-None-Match and may return 304.
// @Tags        Interactions
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"interactions::3:1700000000\")
// @Param       room_id        query   string  false "Thread hash"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListInteractionsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/v1/interactions [get]
func (h *Handlers) ListInteractions(c *gin.Context) {
	ctx := c.Request.Context()
	room := strings.TrimSpace(c.Query("room_id"))
	page, pageSize := utils.ParsePage(c.Query("page"), c.Query("page_size"))

	// ETag pre-check (best effort).
	if etag, err := h.interactions.ListETag(ctx, room); err == nil && notModified(c, etag) {
		return
	}

	items, total, err := h.interactions.ListPage(ctx, room, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	totalPages := utils.TotalPages(total, pageSize)
	ok(c, http.StatusOK, ListInteractionsResponse{
		Interactions: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetInteraction godoc
// @ID          getInteraction
// @Summary     Get an interaction
// @Tags        Interactions
// @Produce     json
//
// @Param       id  path  string  true  "Interaction ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.Interaction
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Interaction not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/v1/interactions/{id} [get]
func (h *Handlers) GetInteraction(c *gin.Context) {
	id, valid := interactionID(c)
	if !valid {
		return
	}
	in, err := h.interactions.Get(c.Request.Context(), id)
	if err != nil {
		failLookup(c, err)
		return
	}
	ok(c, http.StatusOK, in)
}

// ListReplies godoc
// @ID          listReplies
// @Summary     List the replies published for an interaction
// @Description Replies are returned oldest first. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Interactions
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       id             path    string  true  "Interaction ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.ListRepliesResponse
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Interaction not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/v1/interactions/{id}/replies [get]
func (h *Handlers) ListReplies(c *gin.Context) {
	id, valid := interactionID(c)
	if !valid {
		return
	}
	ctx := c.Request.Context()
	if etag, err := h.interactions.RepliesETag(ctx, id); err == nil && notModified(c, etag) {
		return
	}
	replies, err := h.interactions.Replies(ctx, id)
	if err != nil {
		failLookup(c, err)
		return
	}
	ok(c, http.StatusOK, ListRepliesResponse{Replies: replies})
}

func interactionID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "interaction id must be a UUID")
		return "", false
	}
	return id, true
}

func failLookup(c *gin.Context, err error) {
	if errors.Is(err, services.ErrInteractionNotFound) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "interaction not found")
		return
	}
	fail(c, http.StatusInternalServerError, ErrCodeGetFailed, err.Error())
}
