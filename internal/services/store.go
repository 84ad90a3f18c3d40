package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/go-cast-agent/internal/actions"
	"github.com/tbourn/go-cast-agent/internal/domain"
	"github.com/tbourn/go-cast-agent/internal/repo"
)

// Store is the persistence contract of the pipeline.
type Store interface {
	// HasResponded reports whether hash already belongs to an interaction.
	HasResponded(ctx context.Context, hash string) (bool, error)
	// RecordInteraction persists the interaction and claims its cast hash.
	// It returns ErrAlreadyResponded when the hash is taken.
	RecordInteraction(ctx context.Context, in *domain.Interaction) error
	// RecordReplyMemory persists a published reply.
	RecordReplyMemory(ctx context.Context, m *domain.ReplyMemory) error
}

// GormStore implements Store and actions.Claimer on top of the repo package.
type GormStore struct {
	DB *gorm.DB
}

// NewGormStore returns a GormStore using db.
func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{DB: db} }

// HasResponded implements Store.
func (s *GormStore) HasResponded(ctx context.Context, hash string) (bool, error) {
	return repo.HasResponded(ctx, s.DB, hash)
}

// RecordInteraction implements Store.
func (s *GormStore) RecordInteraction(ctx context.Context, in *domain.Interaction) error {
	err := repo.CreateInteraction(ctx, s.DB, in)
	if errors.Is(err, repo.ErrDuplicate) {
		return ErrAlreadyResponded
	}
	return err
}

// RecordReplyMemory implements Store.
func (s *GormStore) RecordReplyMemory(ctx context.Context, m *domain.ReplyMemory) error {
	return repo.CreateReplyMemory(ctx, s.DB, m)
}

// UpdateMetadata replaces an interaction's metadata document.
func (s *GormStore) UpdateMetadata(ctx context.Context, id, metadata string) error {
	return repo.UpdateInteractionMetadata(ctx, s.DB, id, metadata)
}

// ClaimResponse implements actions.Claimer. A held claim is reported with
// the path that owns it.
func (s *GormStore) ClaimResponse(ctx context.Context, castHash, path string) error {
	_, err := repo.ClaimResponse(ctx, s.DB, castHash, path)
	if !errors.Is(err, repo.ErrDuplicate) {
		return err
	}
	held, gerr := repo.GetClaim(ctx, s.DB, castHash)
	if gerr != nil {
		return actions.ErrAlreadyClaimed
	}
	return fmt.Errorf("%w (held by %s path)", actions.ErrAlreadyClaimed, held.Path)
}

// CompleteClaim implements actions.Claimer.
func (s *GormStore) CompleteClaim(ctx context.Context, castHash, replyHash string) error {
	return repo.CompleteClaim(ctx, s.DB, castHash, replyHash)
}

// ReleaseClaim implements actions.Claimer.
func (s *GormStore) ReleaseClaim(ctx context.Context, castHash string) error {
	return repo.ReleaseClaim(ctx, s.DB, castHash)
}

var (
	_ Store           = (*GormStore)(nil)
	_ actions.Claimer = (*GormStore)(nil)
)
