package factory

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/adviceline/concierge/internal/config"
	emb "github.com/adviceline/concierge/internal/embeddings"
	"github.com/adviceline/concierge/internal/embeddings/ollama"
)

// NewEmbeddingProvider creates the embedding provider. An async warmup
// embed detects a missing model early without blocking startup.
func NewEmbeddingProvider(ctx context.Context, cfg *config.Config, log zerolog.Logger) emb.Provider {
	provider := ollama.New(cfg.OllamaURL, cfg.EmbedModel)

	go func() {
		warmupCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.CollaboratorTimeoutSeconds)*time.Second)
		defer cancel()

		if vec, err := provider.Embed(warmupCtx, "factory-warmup-check"); err != nil || len(vec) == 0 {
			log.Warn().Err(err).Int("vec_len", len(vec)).
				Str("model", cfg.EmbedModel).
				Msg("embedding provider warmup failed")
		} else {
			log.Debug().Str("model", cfg.EmbedModel).Msg("embedding provider warmup completed")
		}
	}()

	return provider
}
