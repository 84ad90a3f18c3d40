package services

import (
	"strconv"
	"strings"

	"github.com/tbourn/go-cast-agent/internal/conversation"
	"github.com/tbourn/go-cast-agent/internal/domain"
	"github.com/tbourn/go-cast-agent/internal/generation"
	"github.com/tbourn/go-cast-agent/internal/knowledge"
)

const knowledgeSnippets = 3

// promptState is the input of template substitution for one interaction.
type promptState struct {
	character   *domain.Character
	cast        *domain.Cast
	kind        string
	history     []domain.ConversationMessage
	budget      int
	maxReplyLen int
	actionNames []string
	knowledge   []knowledge.Snippet
	evaluation  string
}

func (st promptState) vars() map[string]string {
	c := st.character
	author := ""
	if st.cast.Author != nil {
		author = conversation.AuthorName(st.cast.Author)
	}
	actions := "NONE"
	if len(st.actionNames) > 0 {
		actions = strings.Join(append(append([]string(nil), st.actionNames...), domain.ActionNone), ", ")
	}
	return map[string]string{
		"agentName":      c.Name,
		"agentHandle":    c.Handle,
		"bio":            generation.JoinLines(c.Bio),
		"lore":           generation.JoinLines(c.Lore),
		"topics":         generation.JoinLines(c.Topics),
		"adjectives":     strings.Join(c.Adjectives, ", "),
		"style":          generation.JoinLines(c.Style),
		"knowledge":      knowledge.Render(st.knowledge),
		"conversation":   conversation.Render(st.history, st.budget),
		"castText":       st.cast.Text,
		"castHash":       st.cast.Hash,
		"authorHandle":   author,
		"kind":           st.kind,
		"maxReplyLength": strconv.Itoa(st.maxReplyLen),
		"actionNames":    actions,
		"evaluation":     st.evaluation,
	}
}
