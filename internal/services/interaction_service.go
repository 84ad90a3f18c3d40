// Package services – InteractionService
//
// This file implements the read side of the operator API: paginated listing
// of recorded interactions, single lookups, the replies published for an
// interaction, and the collection fingerprints used as weak ETags.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-cast-agent/internal/domain"
	"github.com/tbourn/go-cast-agent/internal/repo"
	"github.com/tbourn/go-cast-agent/internal/utils"
)

// InteractionRepo defines the repository contract required by InteractionService.
type InteractionRepo interface {
	// GetInteraction fetches one interaction with its responded hashes.
	GetInteraction(ctx context.Context, db *gorm.DB, id string) (*domain.Interaction, error)

	// CountInteractions counts interactions, optionally within a room.
	CountInteractions(ctx context.Context, db *gorm.DB, roomID string) (int64, error)

	// ListInteractionsPage returns a page of interactions, newest first.
	ListInteractionsPage(ctx context.Context, db *gorm.DB, roomID string, offset, limit int) ([]domain.Interaction, error)

	// ListReplyMemories returns the replies of an interaction, oldest first.
	ListReplyMemories(ctx context.Context, db *gorm.DB, interactionID string) ([]domain.ReplyMemory, error)

	// InteractionsStats returns the count and latest update time.
	InteractionsStats(ctx context.Context, db *gorm.DB, roomID string) (int64, *time.Time, error)

	// RepliesStats returns the reply count and latest creation time.
	RepliesStats(ctx context.Context, db *gorm.DB, interactionID string) (int64, *time.Time, error)
}

// InteractionService serves recorded interactions to the operator API.
type InteractionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the interaction repository used by this service.
	Repo InteractionRepo
}

// NewInteractionService constructs an InteractionService.
func NewInteractionService(db *gorm.DB, r InteractionRepo) *InteractionService {
	return &InteractionService{DB: db, Repo: r}
}

// ListPage returns a page of interactions and the total count. An empty
// roomID lists every room.
func (s *InteractionService) ListPage(ctx context.Context, roomID string, page, pageSize int) ([]domain.Interaction, int64, error) {
	page, pageSize = utils.Clamp(page, pageSize)

	total, err := s.Repo.CountInteractions(ctx, s.DB, roomID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Interaction{}, 0, nil
	}

	items, err := s.Repo.ListInteractionsPage(ctx, s.DB, roomID, utils.Offset(page, pageSize), pageSize)
	return items, total, err
}

// Get returns one interaction or ErrInteractionNotFound.
func (s *InteractionService) Get(ctx context.Context, id string) (*domain.Interaction, error) {
	in, err := s.Repo.GetInteraction(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInteractionNotFound
	}
	return in, err
}

// Replies returns the reply memories of an existing interaction.
func (s *InteractionService) Replies(ctx context.Context, id string) ([]domain.ReplyMemory, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Repo.ListReplyMemories(ctx, s.DB, id)
}

// ListETag fingerprints the interaction collection of roomID.
func (s *InteractionService) ListETag(ctx context.Context, roomID string) (string, error) {
	count, maxTS, err := s.Repo.InteractionsStats(ctx, s.DB, roomID)
	if err != nil {
		return "", err
	}
	return weakETag("interactions:"+roomID, count, maxTS), nil
}

// RepliesETag fingerprints the replies of an interaction.
func (s *InteractionService) RepliesETag(ctx context.Context, id string) (string, error) {
	count, maxTS, err := s.Repo.RepliesStats(ctx, s.DB, id)
	if err != nil {
		return "", err
	}
	return weakETag("replies:"+id, count, maxTS), nil
}

func weakETag(key string, count int64, ts *time.Time) string {
	var unix int64
	if ts != nil {
		unix = ts.UnixNano()
	}
	return fmt.Sprintf(`W/"%s:%d:%d"`, key, count, unix)
}

// GormInteractionRepo adapts the repo package to InteractionRepo.
type GormInteractionRepo struct{}

func (GormInteractionRepo) GetInteraction(ctx context.Context, db *gorm.DB, id string) (*domain.Interaction, error) {
	return repo.GetInteraction(ctx, db, id)
}

func (GormInteractionRepo) CountInteractions(ctx context.Context, db *gorm.DB, roomID string) (int64, error) {
	return repo.CountInteractions(ctx, db, roomID)
}

func (GormInteractionRepo) ListInteractionsPage(ctx context.Context, db *gorm.DB, roomID string, offset, limit int) ([]domain.Interaction, error) {
	return repo.ListInteractionsPage(ctx, db, roomID, offset, limit)
}

func (GormInteractionRepo) ListReplyMemories(ctx context.Context, db *gorm.DB, interactionID string) ([]domain.ReplyMemory, error) {
	return repo.ListReplyMemories(ctx, db, interactionID)
}

func (GormInteractionRepo) InteractionsStats(ctx context.Context, db *gorm.DB, roomID string) (int64, *time.Time, error) {
	return repo.InteractionsStats(ctx, db, roomID)
}

func (GormInteractionRepo) RepliesStats(ctx context.Context, db *gorm.DB, interactionID string) (int64, *time.Time, error) {
	return repo.RepliesStats(ctx, db, interactionID)
}
