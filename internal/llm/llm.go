// Package llm wraps a text completion backend used for intent
// classification fallback and guidance drafting. Callers stay decoupled
// from the transport through the Provider interface.
package llm

import "context"

// Provider produces a completion for a system/user prompt pair.
type Provider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// HealthPinger is implemented by providers that can report liveness.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
