package consolidation

import (
	"fmt"
	"regexp"
	"strings"

	gojson "github.com/goccy/go-json"

	"memoria/internal/domain"
	"memoria/internal/responsehandler"
)

// confidenceGate is the minimum confidence a component extraction must
// clear before its file is rewritten.
const confidenceGate = 0.3

// componentInstructions gives each of the ten facets a short,
// component-specific extraction angle; history has no entry here and
// gets the generic instruction in buildComponentPrompt. Doc density is uneven on
// purpose — some components need more framing than others.
var componentInstructions = map[domain.CoreComponentName]string{
	domain.ComponentPurpose:               "What is this agent's purpose, as evidenced by the notes below? State it in the agent's own voice.",
	domain.ComponentPersonality:           "What personality traits, tendencies, and communication style does this agent exhibit?",
	domain.ComponentValues:                "What values does this agent consistently act on or defend?",
	domain.ComponentSelfModel:             "How does this agent understand its own nature, capabilities, and limits?",
	domain.ComponentRelationships:         "What patterns characterize this agent's relationships with the people it talks to?",
	domain.ComponentAwarenessDevelopment:  "How has this agent's self-awareness changed over the period covered by these notes?",
	domain.ComponentCapabilities:          "What can this agent reliably do, based on demonstrated behavior in these notes?",
	domain.ComponentLimitations:           "What can this agent not yet do, or what does it consistently struggle with?",
	domain.ComponentEmotionalSignificance: "What has been emotionally significant to this agent, and why?",
	domain.ComponentAuthenticVoice:        "What makes this agent's voice distinctly its own, as opposed to generic?",
}

// componentSystemPrompt is fixed across components; only the instruction
// and note excerpts vary.
const componentSystemPrompt = `You are the consolidation process of a memory-augmented agent. You read raw experiential notes and extract a stable, evidence-grounded statement for one facet of the agent's identity. Respond with a single JSON object: {"insights": [string], "patterns": [string], "summary": string, "confidence": number between 0 and 1}. confidence reflects how well-supported the summary is by the notes, not how interesting it is.`

func buildComponentPrompt(component domain.CoreComponentName, notes []string) (system, user string) {
	instruction := componentInstructions[component]
	if instruction == "" {
		instruction = fmt.Sprintf("Summarize the %s facet of this agent's identity based on the notes below.", component)
	}
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\nNotes:\n")
	for i, n := range notes {
		fmt.Fprintf(&b, "\n--- note %d ---\n%s\n", i+1, n)
	}
	return componentSystemPrompt, b.String()
}

type componentExtraction struct {
	Insights   []string `json:"insights"`
	Patterns   []string `json:"patterns"`
	Summary    string   `json:"summary"`
	Confidence float64  `json:"confidence"`
}

func parseComponentResponse(raw string) (componentExtraction, bool) {
	cleaned := responsehandler.CleanFences(raw)
	candidate := responsehandler.ExtractJSON(cleaned)
	if candidate == "" {
		candidate = cleaned
	}
	var out componentExtraction
	if err := gojson.Unmarshal([]byte(candidate), &out); err != nil {
		return componentExtraction{}, false
	}
	if strings.TrimSpace(out.Summary) == "" {
		return componentExtraction{}, false
	}
	return out, true
}

// cannotPhrase captures "cannot" plus the word that follows it, so the
// replacement function can skip cases that already say "cannot yet".
// Go's RE2 engine has no lookahead, so the "not already yet" check has
// to happen in ReplaceAllStringFunc instead of the pattern itself.
var cannotPhrase = regexp.MustCompile(`(?i)\bcannot\s+(\S+)`)

// applyLimitationsRewrite is invariant I7's single allowed
// post-processing rule: "cannot X" always reads as "cannot yet X" in the
// limitations component, so the file never states a limit as permanent.
func applyLimitationsRewrite(component domain.CoreComponentName, text string) string {
	if component != domain.ComponentLimitations {
		return text
	}
	return cannotPhrase.ReplaceAllStringFunc(text, func(match string) string {
		loc := cannotPhrase.FindStringSubmatch(match)
		if len(loc) < 2 {
			return match
		}
		if strings.EqualFold(loc[1], "yet") {
			return match
		}
		idx := strings.IndexFunc(match, func(r rune) bool { return r == ' ' })
		if idx < 0 {
			return match
		}
		return match[:idx] + " yet" + match[idx:]
	})
}

func renderComponentContent(e componentExtraction) string {
	var b strings.Builder
	b.WriteString(e.Summary)
	if len(e.Insights) > 0 {
		b.WriteString("\n\n## Insights\n")
		for _, i := range e.Insights {
			b.WriteString("- " + i + "\n")
		}
	}
	if len(e.Patterns) > 0 {
		b.WriteString("\n## Patterns\n")
		for _, p := range e.Patterns {
			b.WriteString("- " + p + "\n")
		}
	}
	return b.String()
}
