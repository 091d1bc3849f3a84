// Package embeddings produces vector representations for text, used by the
// knowledge-base and long-term-memory indexes.
package embeddings

import "context"

// Provider embeds a single text into a vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HealthPinger is optionally implemented by providers to expose a health
// check. Returns nil when healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
