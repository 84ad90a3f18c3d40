package domain

import "time"

// Interaction kinds.
const (
	KindMention = "mention"
	KindReply   = "reply"
)

// Interaction is the persisted record of a cast the agent decided to react to.
// It is created once per triggering cast hash and never deleted.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - RoomID: conversation identifier (thread hash); indexed for listing.
//   - AuthorID: FID of the cast author, as a decimal string.
//   - CastHash: the triggering cast.
//   - Kind: "mention" or "reply" (enforced by DB constraint).
//   - Text: the triggering cast text.
//   - Metadata: JSON document with classification and evaluation details.
//   - RespondedHashes: the idempotency boundary; see RespondedHash.
type Interaction struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	RoomID    string    `json:"room_id"    gorm:"type:varchar(80);not null;index:idx_room_interactions"`
	AuthorID  string    `json:"author_id"  gorm:"type:varchar(32);not null;index"`
	CastHash  string    `json:"cast_hash"  gorm:"type:varchar(80);not null"`
	Kind      string    `json:"kind"       gorm:"type:varchar(16);not null;check:kind IN ('mention','reply')"`
	Text      string    `json:"text"       gorm:"type:text;not null"`
	Metadata  string    `json:"metadata"   gorm:"type:text;not null;default:'{}'"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	RespondedHashes []RespondedHash `json:"responded_hashes,omitempty" gorm:"foreignKey:InteractionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Interaction.
func (Interaction) TableName() string { return "interactions" }

// RespondedHash is one member of an interaction's responded-hash set. The hash
// is the primary key, so a hash belongs to at most one interaction for the
// lifetime of the database.
type RespondedHash struct {
	Hash          string    `json:"hash"           gorm:"type:varchar(80);primaryKey"`
	InteractionID string    `json:"interaction_id" gorm:"type:char(36);not null;index"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName returns the database table name for RespondedHash.
func (RespondedHash) TableName() string { return "responded_hashes" }

// Reply publish paths.
const (
	PathAction  = "action"
	PathDefault = "default"
)

// ReplyMemory records a reply that was actually published.
type ReplyMemory struct {
	ID            string    `json:"id"             gorm:"type:char(36);primaryKey"`
	InteractionID string    `json:"interaction_id" gorm:"type:char(36);not null;index:idx_interaction_replies,priority:1"`
	RoomID        string    `json:"room_id"        gorm:"type:varchar(80);not null"`
	ParentHash    string    `json:"parent_hash"    gorm:"type:varchar(80);not null"`
	ReplyHash     string    `json:"reply_hash"     gorm:"type:varchar(80);not null"`
	Text          string    `json:"text"           gorm:"type:text;not null"`
	Action        string    `json:"action"         gorm:"type:varchar(64);not null;default:'NONE'"`
	Path          string    `json:"path"           gorm:"type:varchar(16);not null;check:path IN ('action','default')"`
	CreatedAt     time.Time `json:"created_at"     gorm:"index:idx_interaction_replies,priority:2"`

	Interaction Interaction `json:"-" gorm:"foreignKey:InteractionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ReplyMemory.
func (ReplyMemory) TableName() string { return "reply_memories" }
