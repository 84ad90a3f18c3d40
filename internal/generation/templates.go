package generation

// DefaultEvaluationTemplate asks for a short assessment of the thread before
// a reply is written. Its output is stored with the interaction and passed to
// the reply prompt as {{evaluation}}.
const DefaultEvaluationTemplate = `# Task: assess the conversation for {{agentName}} (@{{agentHandle}}).

About {{agentName}}:
{{bio}}

Conversation so far:
{{conversation}}

New cast from @{{authorHandle}}:
{{castText}}

In one or two sentences, describe what @{{authorHandle}} wants from {{agentName}} and whether a reply is useful.

Respond with a single fenced JSON block:
` + "```json" + `
{"text": "<your assessment>", "action": "NONE"}
` + "```"

// DefaultReplyTemplate produces the candidate reply.
const DefaultReplyTemplate = `# Task: write a reply as {{agentName}} (@{{agentHandle}}).

About {{agentName}}:
{{bio}}

Background:
{{lore}}

Topics {{agentName}} cares about:
{{topics}}

{{agentName}} is {{adjectives}}.

Style:
{{style}}

Relevant knowledge:
{{knowledge}}

Conversation so far:
{{conversation}}

Assessment:
{{evaluation}}

Reply to this cast from @{{authorHandle}}:
{{castText}}

Keep the reply under {{maxReplyLength}} characters. If an action fits, set "action" to its name (one of: {{actionNames}}); otherwise use "NONE".

Respond with a single fenced JSON block:
` + "```json" + `
{"text": "<reply text>", "action": "NONE"}
` + "```"
