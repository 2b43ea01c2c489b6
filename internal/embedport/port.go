// Package embedport defines the engine's outbound boundary to an
// embedding provider, used by the memory engine and the reconstruction
// pipeline to turn memory content and queries into vectors for the
// vector index.
package embedport

import "context"

// Client produces an embedding vector for a piece of text.
type Client interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
