// Package domain defines the types shared across the reply pipeline: the
// webhook payloads announcing casts, the conversation tree returned by the
// Farcaster API, the flattened conversation, the generated response, and the
// persistence models mapped with GORM.
package domain

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ActionNone is the action name meaning "no action requested".
const ActionNone = "NONE"

// EventCastCreated is the webhook event type announcing a new cast.
const EventCastCreated = "cast.created"

// Author identifies the account that wrote a cast.
type Author struct {
	FID         int64  `json:"fid"`
	Handle      string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"pfp_url"`
}

// Profile is an account referenced by a cast (mentions, parent author).
type Profile struct {
	FID    int64  `json:"fid"`
	Handle string `json:"username,omitempty"`
}

// Embed is a URL or cast reference attached to a cast.
type Embed struct {
	URL  string `json:"url,omitempty"`
	Cast *struct {
		Hash string `json:"hash"`
	} `json:"cast,omitempty"`
}

// Channel is the optional channel a cast was posted in.
type Channel struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Cast is a single social post as delivered by the platform.
type Cast struct {
	Hash              string    `json:"hash"`
	ThreadHash        string    `json:"thread_hash"`
	ParentHash        string    `json:"parent_hash"`
	ParentAuthor      *Profile  `json:"parent_author,omitempty"`
	Author            *Author   `json:"author"`
	Text              string    `json:"text"`
	Timestamp         string    `json:"timestamp"`
	Embeds            []Embed   `json:"embeds,omitempty"`
	MentionedProfiles []Profile `json:"mentioned_profiles,omitempty"`
	Channel           *Channel  `json:"channel,omitempty"`
}

// ParentAuthorFID returns the FID of the parent cast's author, if known.
func (c Cast) ParentAuthorFID() (int64, bool) {
	if c.ParentAuthor == nil || c.ParentAuthor.FID == 0 {
		return 0, false
	}
	return c.ParentAuthor.FID, true
}

// Mentions reports whether fid is among the mentioned profiles.
func (c Cast) Mentions(fid int64) bool {
	for _, p := range c.MentionedProfiles {
		if p.FID == fid {
			return true
		}
	}
	return false
}

// Time parses the cast timestamp. Unparseable or empty timestamps yield the zero time.
func (c Cast) Time() time.Time {
	ts := strings.TrimSpace(c.Timestamp)
	if ts == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.UTC()
	}
	if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC()
	}
	return time.Time{}
}

// RoomID is the conversation the cast belongs to: its thread, or itself when it starts one.
func (c Cast) RoomID() string {
	if c.ThreadHash != "" {
		return c.ThreadHash
	}
	return c.Hash
}

// WebhookEvent is the inbound notification. It is immutable as received.
type WebhookEvent struct {
	Type      string `json:"type"`
	CreatedAt int64  `json:"created_at,omitempty"`
	Cast      *Cast  `json:"cast"`
}

// ErrMalformedEvent is returned by Validate for structurally invalid events.
var ErrMalformedEvent = errors.New("malformed webhook event")

// UnmarshalJSON accepts the cast under either "cast" or "data"; the hosted
// webhook service uses the latter.
func (e *WebhookEvent) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type      string          `json:"type"`
		CreatedAt json.RawMessage `json:"created_at"`
		Cast      *Cast           `json:"cast"`
		Data      *Cast           `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Type = raw.Type
	e.Cast = raw.Cast
	if e.Cast == nil {
		e.Cast = raw.Data
	}
	e.CreatedAt = 0
	if len(raw.CreatedAt) > 0 {
		var n int64
		if json.Unmarshal(raw.CreatedAt, &n) == nil {
			e.CreatedAt = n
		}
	}
	return nil
}

// Validate checks the structural shape required by the pipeline: a type,
// a cast hash and a cast author.
func (e *WebhookEvent) Validate() error {
	switch {
	case e == nil:
		return ErrMalformedEvent
	case strings.TrimSpace(e.Type) == "":
		return errors.Join(ErrMalformedEvent, errors.New("missing type"))
	case e.Cast == nil || strings.TrimSpace(e.Cast.Hash) == "":
		return errors.Join(ErrMalformedEvent, errors.New("missing cast.hash"))
	case e.Cast.Author == nil:
		return errors.Join(ErrMalformedEvent, errors.New("missing cast.author"))
	}
	return nil
}

// CastNode is a cast with its nested replies, as returned by the
// conversation endpoint.
type CastNode struct {
	Cast
	DirectReplies []CastNode `json:"direct_replies,omitempty"`
}

// ConversationMessage is one flattened entry of a thread. Read-only once built.
type ConversationMessage struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// GeneratedResponse is the validated output of a generation pass.
type GeneratedResponse struct {
	Text   string `json:"text"`
	Action string `json:"action"`
}

// HasAction reports whether an action other than NONE was requested.
func (r GeneratedResponse) HasAction() bool {
	return r.Action != "" && r.Action != ActionNone
}
