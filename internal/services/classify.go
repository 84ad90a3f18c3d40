package services

import "github.com/tbourn/go-cast-agent/internal/domain"

// Classify returns KindMention when agentFID is mentioned, KindReply when the
// parent cast is the agent's, and "" when the cast is not addressed to the
// agent. Casts authored by the agent itself are never addressed to it.
func Classify(c *domain.Cast, agentFID int64) string {
	if c == nil {
		return ""
	}
	if c.Author != nil && c.Author.FID == agentFID {
		return ""
	}
	if c.Mentions(agentFID) {
		return domain.KindMention
	}
	if fid, ok := c.ParentAuthorFID(); ok && fid == agentFID {
		return domain.KindReply
	}
	return ""
}
