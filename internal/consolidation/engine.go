// Package consolidation implements the LLM-driven process that turns
// raw experiential notes into the eleven core identity files, on a
// daily/weekly/monthly schedule or on demand, plus the sibling
// reflect_on operation.
package consolidation

import (
	"context"
	"fmt"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"memoria/internal/domain"
	"memoria/internal/fsstore"
	"memoria/internal/ids"
	"memoria/internal/llmport"
	"memoria/internal/responsehandler"
	"memoria/internal/tiers"
)

// noteWindow is how many of the most recent experiential notes feed one
// consolidation pass, keyed by cadence. Monthly consumes every note on
// disk; noteWindowAll is a sentinel for that.
const noteWindowAll = -1

func noteWindow(mode domain.ConsolidationMode) int {
	switch mode {
	case domain.ModeDaily:
		return 30
	case domain.ModeWeekly:
		return 100
	case domain.ModeMonthly:
		return noteWindowAll
	default:
		return 30
	}
}

// Engine runs consolidation and reflection.
type Engine struct {
	store    *fsstore.Store
	llm      llmport.Client
	semantic *tiers.SemanticManager
	library  *tiers.LibraryManager
	profiles *tiers.ProfileManager
	logger   *zap.Logger
}

func New(store *fsstore.Store, llm llmport.Client, semantic *tiers.SemanticManager, library *tiers.LibraryManager, profiles *tiers.ProfileManager, logger *zap.Logger) *Engine {
	return &Engine{store: store, llm: llm, semantic: semantic, library: library, profiles: profiles, logger: logger}
}

// RunResult reports what one consolidation pass actually changed, for
// logging and for tests.
type RunResult struct {
	Mode    domain.ConsolidationMode
	Updated []domain.CoreComponentName
	Skipped []domain.CoreComponentName
}

// Run consolidates every one of the eleven core components for one
// cadence. It does not check or advance the schedule — callers decide
// when a mode is due (see Due) and persist the schedule after Run
// succeeds.
func (e *Engine) Run(ctx context.Context, mode domain.ConsolidationMode, at time.Time) (RunResult, error) {
	result := RunResult{Mode: mode}

	notes, err := e.recentNotes(noteWindow(mode))
	if err != nil {
		return result, fmt.Errorf("consolidation: load notes: %w", err)
	}
	if len(notes) == 0 {
		return result, nil
	}

	for _, component := range domain.AllConsolidatedComponents {
		updated, err := e.consolidateComponent(ctx, component, notes, at)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn("consolidate component failed", zap.String("component", string(component)), zap.Error(err))
			}
			result.Skipped = append(result.Skipped, component)
			continue
		}
		if updated {
			result.Updated = append(result.Updated, component)
		} else {
			result.Skipped = append(result.Skipped, component)
		}
	}
	return result, nil
}

func (e *Engine) consolidateComponent(ctx context.Context, component domain.CoreComponentName, notes []string, at time.Time) (bool, error) {
	system, user := buildComponentPrompt(component, notes)
	raw, err := e.llm.Generate(ctx, system, user)
	if err != nil {
		return false, err
	}
	extraction, ok := parseComponentResponse(raw)
	if !ok {
		return false, fmt.Errorf("consolidation: unparseable response for %s", component)
	}
	if extraction.Confidence < confidenceGate {
		return false, nil
	}

	newContent := applyLimitationsRewrite(component, renderComponentContent(extraction))

	oldBytes, err := e.store.ReadFile(e.store.CorePath(string(component)))
	if err != nil {
		return false, err
	}
	oldContent := string(oldBytes)
	magnitude := changeMagnitude(oldContent, newContent)
	if magnitude == 0 {
		return false, nil
	}

	if oldContent != "" {
		if err := snapshotVersion(e.store, component, oldContent, extraction.Confidence, magnitude, at); err != nil {
			return false, err
		}
	}

	body := fmt.Sprintf("# %s\n\n**Confidence**: %.2f\n**Extracted**: %s\n**Source Notes**: %d\n\n%s\n",
		strings.Title(strings.ReplaceAll(string(component), "_", " ")), extraction.Confidence, at.UTC().Format(time.RFC3339), len(notes), newContent)
	if err := e.store.WriteFile(e.store.CorePath(string(component)), []byte(body)); err != nil {
		return false, err
	}
	return true, nil
}

// recentNotes returns the text of up to n most recently written
// experiential notes (noteWindowAll for every note on disk), oldest
// first, matching the order consolidation prompts expect.
func (e *Engine) recentNotes(n int) ([]string, error) {
	paths, err := e.store.WalkFiles(e.store.NotesDir())
	if err != nil {
		return nil, err
	}
	if n != noteWindowAll && len(paths) > n {
		paths = paths[len(paths)-n:]
	}
	notes := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := e.store.ReadFile(p)
		if err != nil {
			continue
		}
		notes = append(notes, string(data))
	}
	return notes, nil
}

// recentVerbatimForUser loads every verbatim exchange recorded for
// userID, oldest first, truncated to the most recent maxChars of
// combined text so profile generation never mixes another user's
// interactions into the prompt.
func (e *Engine) recentVerbatimForUser(userID string, maxChars int) (string, error) {
	paths, err := e.store.WalkFiles(e.store.VerbatimUserDir(userID))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, p := range paths {
		data, err := e.store.ReadFile(p)
		if err != nil {
			continue
		}
		b.Write(data)
		b.WriteString("\n")
	}
	text := b.String()
	if len(text) > maxChars {
		text = text[len(text)-maxChars:]
	}
	return text, nil
}

// reflectConfidenceFeedbackGate and reflectMinInsightsFeedback gate
// reflect_on's feedback into core components: confidence above 0.8 and
// at least 2 insights.
const (
	reflectConfidenceFeedbackGate = 0.8
	reflectMinInsightsFeedback    = 2
)

var depthBudget = map[domain.ReflectionDepth]int{
	domain.DepthShallow:    5,
	domain.DepthDeep:       20,
	domain.DepthExhaustive: noteWindowAll,
}

const reflectSystemPrompt = `You are reflecting on one topic across an agent's accumulated memories. Respond with a single JSON object: {"insights": [string], "patterns": [string], "contradictions": [string], "evolution_narrative": string, "confidence": number between 0 and 1}.`

type reflectionExtraction struct {
	Insights           []string `json:"insights"`
	Patterns           []string `json:"patterns"`
	Contradictions     []string `json:"contradictions"`
	EvolutionNarrative string   `json:"evolution_narrative"`
	Confidence         float64  `json:"confidence"`
}

// ReflectOn gathers memories relevant to topic at the depth's budget,
// asks the LLM for insights/patterns/contradictions/an evolution
// narrative, and appends the reflection to reflections.json. When
// confidence is above 0.8 with at least two insights, each insight is
// also appended to the semantic tier; core component files are not
// modified.
func (e *Engine) ReflectOn(ctx context.Context, topic string, depth domain.ReflectionDepth, at time.Time) (domain.Reflection, error) {
	budget, ok := depthBudget[depth]
	if !ok {
		budget = depthBudget[domain.DepthShallow]
	}
	notes, err := e.recentNotes(budget)
	if err != nil {
		return domain.Reflection{}, err
	}
	topicNotes := filterByTopic(notes, topic)
	if len(topicNotes) == 0 {
		topicNotes = notes
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\nMemories:\n", topic)
	for i, n := range topicNotes {
		fmt.Fprintf(&b, "\n--- memory %d ---\n%s\n", i+1, n)
	}
	if docs, err := e.library.Search(topic); err == nil && len(docs) > 0 {
		b.WriteString("\nRelated library documents:\n")
		for _, d := range docs {
			fmt.Fprintf(&b, "- %s\n", d.SourcePath)
		}
	}

	raw, err := e.llm.Generate(ctx, reflectSystemPrompt, b.String())
	if err != nil {
		return domain.Reflection{}, err
	}
	extraction, ok := parseReflection(raw)
	if !ok {
		return domain.Reflection{}, fmt.Errorf("consolidation: unparseable reflection response")
	}

	reflection := domain.Reflection{
		ID:                 ids.New("reflection", at),
		Topic:              topic,
		Depth:              depth,
		Insights:           extraction.Insights,
		Patterns:           extraction.Patterns,
		Contradictions:     extraction.Contradictions,
		EvolutionNarrative: extraction.EvolutionNarrative,
		Confidence:         extraction.Confidence,
		Timestamp:          at,
	}

	if err := e.persistReflection(reflection); err != nil {
		return domain.Reflection{}, fmt.Errorf("consolidation: persist reflection: %w", err)
	}

	if extraction.Confidence > reflectConfidenceFeedbackGate && len(extraction.Insights) >= reflectMinInsightsFeedback {
		for _, insight := range extraction.Insights {
			if _, err := e.semantic.AppendInsight(insight, extraction.Confidence, []string{reflection.ID}, "", at); err != nil && e.logger != nil {
				e.logger.Warn("reflect_on feedback insight write failed", zap.Error(err))
			}
		}
	}

	return reflection, nil
}

// persistReflection appends r to reflections.json, the append-only log
// of reflect_on outputs.
func (e *Engine) persistReflection(r domain.Reflection) error {
	data, err := e.store.ReadFile(e.store.ReflectionsPath())
	if err != nil {
		return err
	}
	var all []domain.Reflection
	if len(data) > 0 {
		if err := gojson.Unmarshal(data, &all); err != nil {
			return fmt.Errorf("parse reflections.json: %w", err)
		}
	}
	all = append(all, r)
	out, err := gojson.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	return e.store.WriteFile(e.store.ReflectionsPath(), out)
}

func parseReflection(raw string) (reflectionExtraction, bool) {
	cleaned := responsehandler.CleanFences(raw)
	candidate := responsehandler.ExtractJSON(cleaned)
	if candidate == "" {
		candidate = cleaned
	}
	var out reflectionExtraction
	if err := gojson.Unmarshal([]byte(candidate), &out); err != nil {
		return reflectionExtraction{}, false
	}
	if len(out.Insights) == 0 && out.EvolutionNarrative == "" {
		return reflectionExtraction{}, false
	}
	return out, true
}

// profileVerbatimCharBudget caps how much of one user's verbatim history
// is sent to the LLM for profile/preferences generation.
const profileVerbatimCharBudget = 3000

const profileSystemPrompt = `You build a third-person behavioral profile of one user from an agent's notes about interacting with them. Respond with a single JSON object: {"profile": string}.`
const preferencesSystemPrompt = `You extract a user's stated and inferred preferences from an agent's notes about interacting with them. Respond with a single JSON object: {"preferences": string}.`

type profileExtraction struct {
	Profile string `json:"profile"`
}

type preferencesExtraction struct {
	Preferences string `json:"preferences"`
}

// GenerateProfile runs the two fixed-prompt LLM calls profile generation
// uses once a user crosses the interaction threshold, and writes the
// result through ProfileManager.
func (e *Engine) GenerateProfile(ctx context.Context, userID string, interactionCount int, at time.Time) (domain.UserProfile, error) {
	verbatimText, err := e.recentVerbatimForUser(userID, profileVerbatimCharBudget)
	if err != nil {
		return domain.UserProfile{}, err
	}

	var b strings.Builder
	b.WriteString(verbatimText)

	profileRaw, err := e.llm.Generate(ctx, profileSystemPrompt, b.String())
	if err != nil {
		return domain.UserProfile{}, err
	}
	var profileOut profileExtraction
	if candidate := responsehandler.ExtractJSON(responsehandler.CleanFences(profileRaw)); candidate != "" {
		_ = gojson.Unmarshal([]byte(candidate), &profileOut)
	}

	prefsRaw, err := e.llm.Generate(ctx, preferencesSystemPrompt, b.String())
	if err != nil {
		return domain.UserProfile{}, err
	}
	var prefsOut preferencesExtraction
	if candidate := responsehandler.ExtractJSON(responsehandler.CleanFences(prefsRaw)); candidate != "" {
		_ = gojson.Unmarshal([]byte(candidate), &prefsOut)
	}

	profile := domain.UserProfile{
		UserID:           userID,
		ProfileText:      profileOut.Profile,
		PreferencesText:  prefsOut.Preferences,
		InteractionCount: interactionCount,
		UpdatedAt:        at,
	}
	if err := e.profiles.Write(profile); err != nil {
		return domain.UserProfile{}, err
	}
	return profile, nil
}

func filterByTopic(notes []string, topic string) []string {
	if strings.TrimSpace(topic) == "" {
		return notes
	}
	needle := strings.ToLower(topic)
	var out []string
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n), needle) {
			out = append(out, n)
		}
	}
	return out
}
