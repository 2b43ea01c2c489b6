// Package domain holds the engine's record types: the tiered data model
// described by the memory specification (verbatim, notes, working,
// episodic, semantic, core identity, library, profiles).
package domain

import "time"

// Verbatim is the raw, deterministic record of one user<->agent exchange.
// Append-only: never modified, never deleted.
type Verbatim struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Location     string    `json:"location"`
	Timestamp    time.Time `json:"timestamp"`
	UserQuery    string    `json:"user_query"`
	AgentResponse string   `json:"agent_response"`
}

// ExperientialNote is a first-person, LLM-authored reflection on one
// exchange. Append-only, and always co-located in time with exactly one
// Verbatim record (invariant I1).
type ExperientialNote struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	UserID     string    `json:"user_id"`
	Content    string    `json:"content"`
	Importance float64   `json:"importance"`
	Alignment  float64   `json:"alignment"`
	Intensity  float64   `json:"intensity"`
	Valence    string    `json:"valence"`
	Reason     string    `json:"reason"`
	Links      []string  `json:"links,omitempty"`
	ContentKind string   `json:"content_kind,omitempty"` // "discovery" | "experiment" | ""
}

// WorkingEntry is an item of current focus: active task, open topic, or
// the single "current_context" slot.
type WorkingEntry struct {
	Topic        string    `json:"topic"`
	Text         string    `json:"text"`
	Created      time.Time `json:"created"`
	LastTouched  time.Time `json:"last_touched"`
}

// UnresolvedQuestion is an open question raised during a turn, awaiting
// resolution. Resolving one migrates it from unresolved.md to
// resolved.md with a resolution note.
type UnresolvedQuestion struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	RaisedAt   time.Time `json:"raised_at"`
	Context    string    `json:"context"`
	Resolution string    `json:"resolution,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// EpisodicMarker is a high-intensity temporal anchor (emotion intensity
// over the anchor threshold). Append-only, never pruned.
type EpisodicMarker struct {
	ID        string    `json:"id"`
	MemoryRef string    `json:"memory_ref"`
	Intensity float64   `json:"intensity"`
	Valence   string    `json:"valence"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
}

// SemanticInsight is a validated piece of learned knowledge. Append-only;
// superseded (not deleted) by a newer insight with higher confidence.
type SemanticInsight struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	Confidence   float64   `json:"confidence"`
	EvidenceRefs []string  `json:"evidence_refs,omitempty"`
	Emotion      string    `json:"emotion,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// CoreComponentName enumerates the ten fixed identity facets plus the
// eleventh "history" component consolidation also maintains.
type CoreComponentName string

const (
	ComponentPurpose               CoreComponentName = "purpose"
	ComponentPersonality           CoreComponentName = "personality"
	ComponentValues                CoreComponentName = "values"
	ComponentSelfModel             CoreComponentName = "self_model"
	ComponentRelationships         CoreComponentName = "relationships"
	ComponentAwarenessDevelopment  CoreComponentName = "awareness_development"
	ComponentCapabilities          CoreComponentName = "capabilities"
	ComponentLimitations           CoreComponentName = "limitations"
	ComponentEmotionalSignificance CoreComponentName = "emotional_significance"
	ComponentAuthenticVoice        CoreComponentName = "authentic_voice"
	ComponentHistory               CoreComponentName = "history"
)

// CoreComponents lists the ten identity facets in their canonical order
// (history is consolidated alongside them but is not one of "the ten").
var CoreComponents = []CoreComponentName{
	ComponentPurpose,
	ComponentPersonality,
	ComponentValues,
	ComponentSelfModel,
	ComponentRelationships,
	ComponentAwarenessDevelopment,
	ComponentCapabilities,
	ComponentLimitations,
	ComponentEmotionalSignificance,
	ComponentAuthenticVoice,
}

// AllConsolidatedComponents is CoreComponents plus history, the eleven
// files consolidation rewrites.
var AllConsolidatedComponents = append(append([]CoreComponentName{}, CoreComponents...), ComponentHistory)

// CoreIdentityComponent is one of the eleven emergent identity facets,
// materialized as a single markdown file under core/.
type CoreIdentityComponent struct {
	Name            CoreComponentName `json:"component_name"`
	Content         string            `json:"content"`
	Confidence      float64           `json:"confidence"`
	SourceNoteCount int               `json:"source_note_count"`
	ExtractedAt     time.Time         `json:"extracted_at"`
}

// CoreComponentVersion is one snapshot entry in
// core/.versions/<component>_history.json.
type CoreComponentVersion struct {
	Content         string    `json:"content"`
	Confidence      float64   `json:"confidence"`
	ChangeMagnitude float64   `json:"change_magnitude"`
	SnapshotAt      time.Time `json:"snapshot_at"`
}

// LibraryDocument is captured external content the agent has "read".
type LibraryDocument struct {
	DocID        string    `json:"doc_id"`
	SourcePath   string    `json:"source_path"`
	ContentType  string    `json:"content_type"`
	Content      string    `json:"content"`
	Tags         []string  `json:"tags,omitempty"`
	AccessCount  int       `json:"access_count"`
	Importance   float64   `json:"importance"`
	CapturedAt   time.Time `json:"captured_at"`
	LastAccessed time.Time `json:"last_accessed"`
}

// LibraryAccessEvent is one row of library/access_log.json.
type LibraryAccessEvent struct {
	DocID     string    `json:"doc_id"`
	Context   string    `json:"context,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UserProfile is an emergent textual model of one interacting human.
type UserProfile struct {
	UserID            string    `json:"user_id"`
	ProfileText       string    `json:"profile_text"`
	PreferencesText   string    `json:"preferences_text"`
	InteractionCount  int       `json:"interaction_count"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ReflectionDepth controls how much material reflect_on gathers.
type ReflectionDepth string

const (
	DepthShallow   ReflectionDepth = "shallow"
	DepthDeep      ReflectionDepth = "deep"
	DepthExhaustive ReflectionDepth = "exhaustive"
)

// Reflection is the output of a reflect-on-topic operation.
type Reflection struct {
	ID                 string          `json:"id"`
	Topic              string          `json:"topic"`
	Depth              ReflectionDepth `json:"depth"`
	Insights           []string        `json:"insights"`
	Patterns           []string        `json:"patterns"`
	Contradictions     []string        `json:"contradictions"`
	EvolutionNarrative string          `json:"evolution_narrative"`
	Confidence         float64         `json:"confidence"`
	Timestamp          time.Time       `json:"timestamp"`
}
