// Package conversation fetches a cast thread and flattens it into the
// ordered message list used to build prompts.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tbourn/go-cast-agent/internal/domain"
)

// DefaultBudget is the default character budget of a rendered conversation.
const DefaultBudget = 1000

// ErrEmptyThread is returned when the thread hash is blank.
var ErrEmptyThread = errors.New("empty thread hash")

// Fetcher returns the nested cast tree rooted at hash.
type Fetcher interface {
	FetchConversation(ctx context.Context, hash string) (*domain.CastNode, error)
}

// Aggregator loads threads through a Fetcher.
type Aggregator struct {
	fetcher Fetcher
}

// NewAggregator returns an Aggregator backed by f.
func NewAggregator(f Fetcher) *Aggregator { return &Aggregator{fetcher: f} }

// GetHistory fetches the thread and returns its messages in pre-order.
// Fetch failures are returned wrapped; the caller decides how to surface them.
func (a *Aggregator) GetHistory(ctx context.Context, threadHash string) ([]domain.ConversationMessage, error) {
	threadHash = strings.TrimSpace(threadHash)
	if threadHash == "" {
		return nil, ErrEmptyThread
	}
	root, err := a.fetcher.FetchConversation(ctx, threadHash)
	if err != nil {
		return nil, fmt.Errorf("fetch conversation %s: %w", threadHash, err)
	}
	return Flatten(root), nil
}

// Flatten walks the tree depth first: a node, then each direct reply's
// subtree in the order given. Ordering is structural, not chronological.
func Flatten(root *domain.CastNode) []domain.ConversationMessage {
	if root == nil {
		return nil
	}
	var out []domain.ConversationMessage
	var walk func(n *domain.CastNode)
	walk = func(n *domain.CastNode) {
		out = append(out, messageOf(&n.Cast))
		for i := range n.DirectReplies {
			walk(&n.DirectReplies[i])
		}
	}
	walk(root)
	return out
}

func messageOf(c *domain.Cast) domain.ConversationMessage {
	m := domain.ConversationMessage{
		ID:        c.Hash,
		Text:      c.Text,
		Timestamp: c.Time(),
	}
	if c.Author != nil {
		m.Author = AuthorName(c.Author)
		m.AvatarURL = c.Author.AvatarURL
	}
	return m
}

// AuthorName is the label used for an author in rendered conversations.
func AuthorName(a *domain.Author) string {
	switch {
	case a == nil:
		return ""
	case a.Handle != "":
		return a.Handle
	case a.DisplayName != "":
		return a.DisplayName
	default:
		return "fid:" + strconv.FormatInt(a.FID, 10)
	}
}

// Render formats messages as "author: text" lines and keeps at most budget
// characters from the start. A budget <= 0 disables truncation.
func Render(msgs []domain.ConversationMessage, budget int) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Author)
		b.WriteString(": ")
		b.WriteString(m.Text)
	}
	s := b.String()
	if budget <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= budget {
		return s
	}
	return string(r[:budget])
}
