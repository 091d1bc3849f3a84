// Package kb retrieves advice content from the knowledge base. Two
// collections are kept: national guidance that applies everywhere, and
// bureau-specific local guidance (opening hours, drop-in sessions,
// local schemes).
package kb

import (
	"context"

	"github.com/adviceline/concierge/internal/model"
)

const (
	ClassNationalAdvice = "NationalAdvice"
	ClassLocalAdvice    = "LocalAdvice"
)

// Retriever answers advice queries against one of the KB collections.
type Retriever interface {
	SearchNational(ctx context.Context, query string, topK int) ([]model.KBResult, error)
	SearchLocal(ctx context.Context, query string, topK int) ([]model.KBResult, error)
}

// Ingester adds documents to the KB. Used by the admin CLI and seeders.
type Ingester interface {
	UpsertNational(ctx context.Context, docID string, vec []float32, payload map[string]interface{}) error
	UpsertLocal(ctx context.Context, docID string, vec []float32, payload map[string]interface{}) error
}
