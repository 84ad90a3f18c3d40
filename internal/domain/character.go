package domain

// Character is the agent persona used to fill prompt templates. Values are
// treated as immutable; a new persona is installed by swapping the pointer.
type Character struct {
	Name       string   `json:"name"`
	Handle     string   `json:"username"`
	Bio        []string `json:"bio"`
	Lore       []string `json:"lore"`
	Topics     []string `json:"topics"`
	Adjectives []string `json:"adjectives"`
	Style      []string `json:"style"`

	Templates Templates `json:"templates"`
}

// Templates optionally override the built-in prompt templates.
type Templates struct {
	Evaluation string `json:"evaluation,omitempty"`
	Reply      string `json:"reply,omitempty"`
}
