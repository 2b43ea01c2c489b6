// Package llmport defines the engine's outbound boundary to a chat
// completion provider, a single-string interface the memory pipeline
// layers its structured-JSON contract on top of.
package llmport

import "context"

// Client generates a raw completion for a prompt. Callers are
// responsible for parsing the response; this interface has no opinion
// about structure.
type Client interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
