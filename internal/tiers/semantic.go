package tiers

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"memoria/internal/domain"
	"memoria/internal/fsstore"
	"memoria/internal/ids"
)

// SemanticManager owns critical_insights.md, concepts.md,
// concepts_history.md, and concepts_graph.json.
type SemanticManager struct {
	store *fsstore.Store
}

func NewSemanticManager(store *fsstore.Store) *SemanticManager {
	return &SemanticManager{store: store}
}

// AppendInsight appends a validated insight to critical_insights.md and
// concepts_history.md (the structured append-only log this manager reads
// back from), then refreshes the concepts.md rollup.
func (m *SemanticManager) AppendInsight(content string, confidence float64, evidenceRefs []string, emo string, at time.Time) (domain.SemanticInsight, error) {
	insight := domain.SemanticInsight{
		ID:           ids.New("insight", at),
		Content:      content,
		Confidence:   confidence,
		EvidenceRefs: evidenceRefs,
		Emotion:      emo,
		Timestamp:    at,
	}

	block := insightBlock(insight)

	if err := m.store.AppendSection(m.store.SemanticPath("critical_insights.md"), "# Critical Insights\n\n", []byte(block)); err != nil {
		return domain.SemanticInsight{}, err
	}
	if err := m.store.AppendSection(m.store.SemanticPath("concepts_history.md"), "# Concepts History\n\n", []byte(block)); err != nil {
		return domain.SemanticInsight{}, err
	}

	all, err := m.allInsights()
	if err != nil {
		return domain.SemanticInsight{}, err
	}
	if err := m.writeConceptsRollup(all); err != nil {
		return domain.SemanticInsight{}, err
	}
	return insight, nil
}

func insightBlock(insight domain.SemanticInsight) string {
	return fmt.Sprintf("## %s\n**ID**: `%s`\n**Confidence**: %.3f\n**Emotion**: %s\n**Evidence**: %s\n**Timestamp**: %s\n\n%s\n\n---\n\n",
		insight.Timestamp.UTC().Format("2006-01-02"), insight.ID, insight.Confidence, insight.Emotion,
		strings.Join(insight.EvidenceRefs, ", "), insight.Timestamp.UTC().Format(time.RFC3339), insight.Content)
}

// TopConfidence returns the n highest-confidence insights.
func (m *SemanticManager) TopConfidence(n int) ([]domain.SemanticInsight, error) {
	all, err := m.allInsights()
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Confidence > all[j].Confidence })
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// ByTopic returns insights whose content mentions topic (a coarse
// substring filter; semantic retrieval over these goes through the
// vector index, not this manager).
func (m *SemanticManager) ByTopic(topic string) ([]domain.SemanticInsight, error) {
	all, err := m.allInsights()
	if err != nil {
		return nil, err
	}
	topic = strings.ToLower(topic)
	var out []domain.SemanticInsight
	for _, i := range all {
		if strings.Contains(strings.ToLower(i.Content), topic) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *SemanticManager) allInsights() ([]domain.SemanticInsight, error) {
	data, err := m.store.ReadFile(m.store.SemanticPath("concepts_history.md"))
	if err != nil {
		return nil, err
	}
	return parseInsightBlocks(string(data)), nil
}

func parseInsightBlocks(content string) []domain.SemanticInsight {
	if content == "" {
		return nil
	}
	var out []domain.SemanticInsight
	for _, blk := range strings.Split(content, "\n---\n") {
		blk = strings.TrimSpace(blk)
		if !strings.HasPrefix(blk, "## ") {
			continue
		}
		lines := strings.Split(blk, "\n")
		var insight domain.SemanticInsight
		var bodyLines []string
		inBody := false
		for _, line := range lines[1:] {
			switch {
			case strings.HasPrefix(line, "**ID**: `"):
				insight.ID = strings.TrimSuffix(strings.TrimPrefix(line, "**ID**: `"), "`")
			case strings.HasPrefix(line, "**Confidence**: "):
				insight.Confidence, _ = strconv.ParseFloat(strings.TrimPrefix(line, "**Confidence**: "), 64)
			case strings.HasPrefix(line, "**Emotion**: "):
				insight.Emotion = strings.TrimPrefix(line, "**Emotion**: ")
			case strings.HasPrefix(line, "**Evidence**: "):
				raw := strings.TrimPrefix(line, "**Evidence**: ")
				if raw != "" {
					for _, ref := range strings.Split(raw, ", ") {
						if ref != "" {
							insight.EvidenceRefs = append(insight.EvidenceRefs, ref)
						}
					}
				}
			case strings.HasPrefix(line, "**Timestamp**: "):
				insight.Timestamp, _ = time.Parse(time.RFC3339, strings.TrimPrefix(line, "**Timestamp**: "))
				inBody = true
			default:
				if inBody {
					bodyLines = append(bodyLines, line)
				}
			}
		}
		insight.Content = strings.TrimSpace(strings.Join(bodyLines, "\n"))
		if insight.ID != "" {
			out = append(out, insight)
		}
	}
	return out
}

func (m *SemanticManager) writeConceptsRollup(all []domain.SemanticInsight) error {
	sort.Slice(all, func(i, j int) bool { return all[i].Confidence > all[j].Confidence })
	top := all
	if len(top) > 20 {
		top = top[:20]
	}
	var b strings.Builder
	b.WriteString("# Concepts\n\nTop validated insights by confidence.\n\n")
	for _, i := range top {
		b.WriteString(fmt.Sprintf("- (%.2f) %s\n", i.Confidence, i.Content))
	}
	return m.store.WriteFile(m.store.SemanticPath("concepts.md"), []byte(b.String()))
}

// ConceptGraph rebuilds concepts_graph.json as an adjacency map linking
// evidence_refs that co-occur within the same insight,
// deriving concept relations from shared context rather than NLP.
func (m *SemanticManager) ConceptGraph() (map[string][]string, error) {
	all, err := m.allInsights()
	if err != nil {
		return nil, err
	}
	graph := map[string]map[string]struct{}{}
	addEdge := func(a, b string) {
		if a == b {
			return
		}
		if graph[a] == nil {
			graph[a] = map[string]struct{}{}
		}
		graph[a][b] = struct{}{}
	}
	for _, insight := range all {
		refs := insight.EvidenceRefs
		for i := range refs {
			for j := range refs {
				if i == j {
					continue
				}
				addEdge(refs[i], refs[j])
			}
		}
	}
	out := make(map[string][]string, len(graph))
	for k, neighbors := range graph {
		list := make([]string, 0, len(neighbors))
		for n := range neighbors {
			list = append(list, n)
		}
		sort.Strings(list)
		out[k] = list
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := m.store.WriteFile(m.store.SemanticPath("concepts_graph.json"), data); err != nil {
		return nil, err
	}
	return out, nil
}
