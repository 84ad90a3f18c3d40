package domain

import "time"

// ResponseClaim is the durable single-writer record for replying to a cast.
// Exactly one row may exist per cast hash (unique index), so whichever publish
// path inserts it first owns the reply. A claim whose publish fails is deleted
// so the other path may still answer.
type ResponseClaim struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	CastHash  string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_claim_cast_hash"`
	Path      string    `gorm:"type:TEXT NOT NULL"`
	ReplyHash string    `gorm:"type:TEXT NOT NULL;default:''"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (ResponseClaim) TableName() string { return "response_claims" }
