package domain

// MemoryActionSource records who originated a remembered fact, used by
// the validation rule in §7: a user-referring claim sourced from
// ai_observed/ai_inferred with no evidence is rejected.
type MemoryActionSource string

const (
	SourceUserStated  MemoryActionSource = "user_stated"
	SourceAIObserved  MemoryActionSource = "ai_observed"
	SourceAIInferred  MemoryActionSource = "ai_inferred"
	SourceAIReflection MemoryActionSource = "ai_reflection"
)

// MemoryActionKind is the closed sum of action variants the structured
// response may request. "forget" is parsed but treated as an unknown
// action: selective deletion is out of scope.
type MemoryActionKind string

const (
	ActionRemember MemoryActionKind = "remember"
	ActionLink     MemoryActionKind = "link"
	ActionForget   MemoryActionKind = "forget"
)

// MemoryAction is one structured instruction from the LLM's response to
// create, link, or (unsupported) forget a record.
type MemoryAction struct {
	Action      MemoryActionKind   `json:"action"`
	Content     string             `json:"content"`
	Importance  float64            `json:"importance"`
	Alignment   float64            `json:"alignment_with_values"`
	Reason      string             `json:"reason"`
	Emotion     string             `json:"emotion"`
	Source      MemoryActionSource `json:"source"`
	Evidence    string             `json:"evidence,omitempty"`
	LinksTo     []string           `json:"links_to,omitempty"`
	ContentKind string             `json:"content_kind,omitempty"`
}

// EmotionalResonanceInput is the top-level emotional_resonance object in
// the structured response, before the pure-function calculation runs.
type EmotionalResonanceInput struct {
	Importance float64 `json:"importance"`
	Alignment  float64 `json:"alignment_with_values"`
	Reason     string  `json:"reason"`
}

// StructuredResponse is the full JSON object the LLM is required to
// reply with.
type StructuredResponse struct {
	Answer              string                  `json:"answer"`
	ExperientialNote    string                  `json:"experiential_note"`
	EmotionalResonance  EmotionalResonanceInput `json:"emotional_resonance"`
	MemoryActions       []MemoryAction          `json:"memory_actions"`
	UnresolvedQuestions []string                `json:"unresolved_questions"`

	// Degraded is set when the raw LLM output could not be parsed as
	// JSON; Answer then holds the regex-recovered answer string or the raw
	// text, and every other field is zero-valued, per the tolerant-parsing
	// contract.
	Degraded bool `json:"-"`
}
