package extraction

// Wire schemas for the two extraction modes. Each mode has exactly one
// schema type; the JSON field sets below are part of the contract with the
// language-model service and mirror the enums in the prompts.

// documentSchema is the response shape for whole-document extraction.
type documentSchema struct {
	Summary          string                 `json:"summary"`
	Domains          []string               `json:"domains"`
	Entities         []documentEntitySchema `json:"entities"`
	TopicsNotCovered []string               `json:"topics_not_covered"`
}

type documentEntitySchema struct {
	Name              string `json:"name"`
	Type              string `json:"type"`
	Domain            string `json:"domain"`
	Description       string `json:"description,omitempty"`
	Relationship      string `json:"relationship,omitempty"`
	Priority          string `json:"priority,omitempty"`
	Date              string `json:"date,omitempty"`
	NeedsConfirmation bool   `json:"needs_confirmation"`
}

// turnSchema is the response shape for conversational-turn extraction.
type turnSchema struct {
	Entities []turnEntitySchema `json:"entities"`
	Memories []turnMemorySchema `json:"memories"`
}

type turnEntitySchema struct {
	Name              string  `json:"name"`
	Type              string  `json:"type"`
	Domain            string  `json:"domain"`
	Description       string  `json:"description,omitempty"`
	Relationship      string  `json:"relationship,omitempty"`
	Priority          string  `json:"priority,omitempty"`
	Confidence        float64 `json:"confidence"`
	NeedsConfirmation bool    `json:"needs_confirmation"`
}

type turnMemorySchema struct {
	Content    string   `json:"content"`
	Importance float64  `json:"importance"`
	Tags       []string `json:"tags,omitempty"`
	Entities   []string `json:"entities,omitempty"`
}
