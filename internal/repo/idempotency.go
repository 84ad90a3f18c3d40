// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for ResponseClaim,
// the durable guard ensuring at most one reply is published per cast.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-cast-agent/internal/domain"
)

// ClaimResponse inserts a claim for castHash on behalf of path. It returns
// ErrDuplicate when another path already holds the claim.
func ClaimResponse(ctx context.Context, db *gorm.DB, castHash, path string) (*domain.ResponseClaim, error) {
	if strings.TrimSpace(castHash) == "" {
		return nil, ErrNotFound
	}
	rec := &domain.ResponseClaim{
		ID:        uuid.NewString(),
		CastHash:  castHash,
		Path:      path,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// GetClaim returns the claim for castHash or ErrNotFound.
func GetClaim(ctx context.Context, db *gorm.DB, castHash string) (*domain.ResponseClaim, error) {
	var rec domain.ResponseClaim
	err := db.WithContext(ctx).Where("cast_hash = ?", castHash).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CompleteClaim stores the published reply hash on an existing claim.
func CompleteClaim(ctx context.Context, db *gorm.DB, castHash, replyHash string) error {
	res := db.WithContext(ctx).
		Model(&domain.ResponseClaim{}).
		Where("cast_hash = ?", castHash).
		Update("reply_hash", replyHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReleaseClaim deletes the claim for castHash. Releasing a missing claim is a no-op.
func ReleaseClaim(ctx context.Context, db *gorm.DB, castHash string) error {
	return db.WithContext(ctx).
		Where("cast_hash = ?", castHash).
		Delete(&domain.ResponseClaim{}).Error
}
