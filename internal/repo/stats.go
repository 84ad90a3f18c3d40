// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for ETag
// generation in the operator API.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-cast-agent/internal/domain"
)

// InteractionsStats returns the number of interactions (optionally scoped to
// a room) and the greatest UpdatedAt among them, or nil when there are none.
func InteractionsStats(ctx context.Context, db *gorm.DB, roomID string) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = interactionScope(ctx, db, roomID).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = interactionScope(ctx, db, roomID).Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// RepliesStats returns the number of reply memories for an interaction and
// the latest CreatedAt among them. Reply memories are append-only.
func RepliesStats(ctx context.Context, db *gorm.DB, interactionID string) (count int64, maxCreatedAt *time.Time, err error) {
	q := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.ReplyMemory{}).Where("interaction_id = ?", interactionID)
	}
	if err = q().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}
	var row struct {
		CreatedAt time.Time
	}
	if err = q().Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
