// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for Interaction and
// its responded-hash set.
//
// The responded_hashes table is the idempotency boundary of the pipeline: a
// cast hash that appears there has already been answered (or is being
// answered) and must never be processed again. CreateInteraction inserts the
// interaction and its hashes in one transaction, so a concurrent delivery that
// loses the race gets ErrDuplicate and nothing is written for it.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-cast-agent/internal/domain"
)

// HasResponded reports whether hash belongs to any interaction's responded set.
func HasResponded(ctx context.Context, db *gorm.DB, hash string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.RespondedHash{}).
		Where("hash = ?", hash).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

// CreateInteraction persists in together with a responded-hash row for its
// CastHash and for every extra hash. ID and timestamps are filled when empty.
// It returns ErrDuplicate if any hash is already recorded.
func CreateInteraction(ctx context.Context, db *gorm.DB, in *domain.Interaction, extra ...string) error {
	now := time.Now().UTC()
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	in.UpdatedAt = in.CreatedAt
	if strings.TrimSpace(in.Metadata) == "" {
		in.Metadata = "{}"
	}

	hashes := []domain.RespondedHash{{Hash: in.CastHash, InteractionID: in.ID, CreatedAt: now}}
	for _, h := range extra {
		if h = strings.TrimSpace(h); h != "" && h != in.CastHash {
			hashes = append(hashes, domain.RespondedHash{Hash: h, InteractionID: in.ID, CreatedAt: now})
		}
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A hash conflict rolls the interaction row back with it.
		row := *in
		row.RespondedHashes = nil
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Create(&hashes).Error
	})
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	in.RespondedHashes = hashes
	return nil
}

// GetInteraction fetches one interaction by ID, or ErrNotFound.
func GetInteraction(ctx context.Context, db *gorm.DB, id string) (*domain.Interaction, error) {
	var in domain.Interaction
	if err := db.WithContext(ctx).Where("id = ?", id).First(&in).Error; err != nil {
		return nil, err
	}
	return &in, nil
}

// UpdateInteractionMetadata replaces the metadata document of an interaction.
func UpdateInteractionMetadata(ctx context.Context, db *gorm.DB, id, metadata string) error {
	res := db.WithContext(ctx).
		Model(&domain.Interaction{}).
		Where("id = ?", id).
		Updates(map[string]any{"metadata": metadata, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func interactionScope(ctx context.Context, db *gorm.DB, roomID string) *gorm.DB {
	q := db.WithContext(ctx).Model(&domain.Interaction{})
	if roomID = strings.TrimSpace(roomID); roomID != "" {
		q = q.Where("room_id = ?", roomID)
	}
	return q
}

// CountInteractions returns the number of interactions, optionally scoped to a room.
func CountInteractions(ctx context.Context, db *gorm.DB, roomID string) (int64, error) {
	var total int64
	err := interactionScope(ctx, db, roomID).Count(&total).Error
	return total, err
}

// ListInteractionsPage returns interactions newest first, optionally scoped to a room.
func ListInteractionsPage(ctx context.Context, db *gorm.DB, roomID string, offset, limit int) ([]domain.Interaction, error) {
	var out []domain.Interaction
	err := interactionScope(ctx, db, roomID).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
