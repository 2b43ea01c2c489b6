package consolidation

import (
	"encoding/json"
	"time"

	"memoria/internal/domain"
	"memoria/internal/fsstore"
)

// changeMagnitude is a normalized Levenshtein distance in [0,1]: 0 means
// identical content, 1 means nothing in common. Ported in spirit from
// the Python implementation's difflib-based ratio, using edit distance
// directly since stdlib has no diff-ratio primitive.
func changeMagnitude(oldText, newText string) float64 {
	if oldText == newText {
		return 0
	}
	a, b := []rune(oldText), []rune(newText)
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	dist := levenshtein(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	return float64(dist) / float64(maxLen)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// snapshotVersion appends the component's previous content to
// core/.versions/<component>_history.json before the new content
// overwrites it, so every consolidation run is reversible by inspection.
func snapshotVersion(store *fsstore.Store, component domain.CoreComponentName, oldContent string, oldConfidence, magnitude float64, at time.Time) error {
	path := store.CoreVersionsPath(string(component))
	data, err := store.ReadFile(path)
	if err != nil {
		return err
	}
	var versions []domain.CoreComponentVersion
	if len(data) > 0 {
		if err := json.Unmarshal(data, &versions); err != nil {
			return err
		}
	}
	versions = append(versions, domain.CoreComponentVersion{
		Content:         oldContent,
		Confidence:      oldConfidence,
		ChangeMagnitude: magnitude,
		SnapshotAt:      at,
	})
	out, err := json.MarshalIndent(versions, "", "  ")
	if err != nil {
		return err
	}
	return store.WriteFile(path, out)
}
