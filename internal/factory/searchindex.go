package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/adviceline/concierge/internal/config"
	emb "github.com/adviceline/concierge/internal/embeddings"
	"github.com/adviceline/concierge/internal/kb"
	"github.com/adviceline/concierge/internal/memory"
)

// NewKBRetriever creates the Weaviate-backed advice retriever. Schema
// bootstrap runs async with a short timeout; the retriever degrades to
// empty results while Weaviate is unreachable.
func NewKBRetriever(ctx context.Context, cfg *config.Config, embedder emb.Provider, log zerolog.Logger) (kb.Retriever, error) {
	if cfg.WeaviateURL == "" {
		return nil, fmt.Errorf("weaviate URL not configured")
	}
	r, err := kb.NewWeaviateRetriever(cfg.WeaviateURL, embedder, cfg.SearchAlpha)
	if err != nil {
		return nil, err
	}

	go func() {
		bctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.CollaboratorTimeoutSeconds)*time.Second)
		defer cancel()
		if err := kb.BootstrapWeaviate(bctx, cfg.WeaviateURL); err != nil {
			log.Warn().Err(err).Str("url", cfg.WeaviateURL).Msg("kb bootstrap failed")
		} else {
			log.Debug().Str("url", cfg.WeaviateURL).Msg("kb bootstrap completed")
		}
	}()

	return r, nil
}

// NewMemoryStore creates the Weaviate-backed long-term memory store.
func NewMemoryStore(ctx context.Context, cfg *config.Config, embedder emb.Provider, log zerolog.Logger) (memory.Store, error) {
	if cfg.WeaviateURL == "" {
		return nil, fmt.Errorf("weaviate URL not configured")
	}
	s, err := memory.NewWeaviateStore(cfg.WeaviateURL, embedder, cfg.SearchAlpha)
	if err != nil {
		return nil, err
	}

	go func() {
		bctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.CollaboratorTimeoutSeconds)*time.Second)
		defer cancel()
		if err := memory.BootstrapWeaviate(bctx, cfg.WeaviateURL); err != nil {
			log.Warn().Err(err).Str("url", cfg.WeaviateURL).Msg("memory bootstrap failed")
		} else {
			log.Debug().Str("url", cfg.WeaviateURL).Msg("memory bootstrap completed")
		}
	}()

	return s, nil
}
