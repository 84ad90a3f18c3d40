// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for ReplyMemory,
// the record of replies the agent actually published.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-cast-agent/internal/domain"
)

// CreateReplyMemory inserts m, assigning an ID and CreatedAt when empty.
func CreateReplyMemory(ctx context.Context, db *gorm.DB, m *domain.ReplyMemory) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Action == "" {
		m.Action = domain.ActionNone
	}
	return db.WithContext(ctx).Omit("Interaction").Create(m).Error
}

// ListReplyMemories returns replies for an interaction ordered deterministically
// (CreatedAt ASC, ID ASC).
func ListReplyMemories(ctx context.Context, db *gorm.DB, interactionID string) ([]domain.ReplyMemory, error) {
	var out []domain.ReplyMemory
	err := db.WithContext(ctx).
		Where("interaction_id = ?", interactionID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// CountReplyMemories uses a raw COUNT so a missing table surfaces as an error.
func CountReplyMemories(ctx context.Context, db *gorm.DB, interactionID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM reply_memories WHERE interaction_id = ?", interactionID).
		Scan(&total).Error
	return total, err
}
