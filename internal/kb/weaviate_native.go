package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	gql "github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/adviceline/concierge/internal/embeddings"
	"github.com/adviceline/concierge/internal/model"
)

// weavNative backs Retriever with Weaviate hybrid search. Queries are
// embedded locally and combined with BM25 using the configured alpha.
type weavNative struct {
	client   *weaviate.Client
	embedder embeddings.Provider
	baseURL  string // host:port without scheme
	alpha    float32
}

// NewWeaviateRetriever constructs a Retriever backed by Weaviate at baseURL.
// baseURL should be host:port (without scheme), e.g. "localhost:8081".
func NewWeaviateRetriever(baseURL string, embedder embeddings.Provider, alpha float32) (Retriever, error) {
	cfg := weaviate.Config{Scheme: "http", Host: baseURL}
	cl, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &weavNative{client: cl, embedder: embedder, baseURL: baseURL, alpha: alpha}, nil
}

func (w *weavNative) SearchNational(ctx context.Context, query string, topK int) ([]model.KBResult, error) {
	return w.search(ctx, ClassNationalAdvice, query, topK)
}

func (w *weavNative) SearchLocal(ctx context.Context, query string, topK int) ([]model.KBResult, error) {
	return w.search(ctx, ClassLocalAdvice, query, topK)
}

func (w *weavNative) search(ctx context.Context, class, query string, topK int) ([]model.KBResult, error) {
	log.Debug().Str("class", class).Str("query", query).Int("topK", topK).Msg("kb search starting")

	vec, err := w.embedder.Embed(ctx, query)
	if err != nil {
		log.Error().Err(err).Str("class", class).Msg("kb query embedding failed")
		return nil, err
	}

	hy := (&gql.HybridArgumentBuilder{}).
		WithQuery(query).
		WithVector(vec).
		WithAlpha(w.alpha).
		WithProperties([]string{"content", "title"})

	req := w.client.GraphQL().Get().
		WithClassName(class).
		WithHybrid(hy).
		WithLimit(topK).
		WithFields(
			gql.Field{Name: "content"},
			gql.Field{Name: "title"},
			gql.Field{Name: "source"},
			gql.Field{Name: "_additional", Fields: []gql.Field{{Name: "score"}}},
		)

	resp, err := req.Do(ctx)
	if err != nil {
		log.Error().Err(err).Str("class", class).Msg("kb graphql query failed")
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("kb graphql: %s", formatGraphQLErrors(resp.Errors))
	}

	getData, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	raw, ok := getData[class].([]interface{})
	if !ok {
		return []model.KBResult{}, nil
	}

	out := make([]model.KBResult, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		var score float64
		if add, ok := m["_additional"].(map[string]interface{}); ok {
			switch v := add["score"].(type) {
			case float64:
				score = v
			case string:
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					score = f
				}
			}
		}
		content, _ := m["content"].(string)
		source, _ := m["source"].(string)
		out = append(out, model.KBResult{Content: content, Score: score, Source: source})
	}
	log.Debug().Int("resultCount", len(out)).Str("class", class).Msg("kb search completed")
	return out, nil
}

// UpsertNational implements Ingester.
func (w *weavNative) UpsertNational(ctx context.Context, docID string, vec []float32, payload map[string]interface{}) error {
	return w.upsert(ctx, ClassNationalAdvice, docID, vec, payload)
}

// UpsertLocal implements Ingester.
func (w *weavNative) UpsertLocal(ctx context.Context, docID string, vec []float32, payload map[string]interface{}) error {
	return w.upsert(ctx, ClassLocalAdvice, docID, vec, payload)
}

func (w *weavNative) upsert(ctx context.Context, class, docID string, vec []float32, payload map[string]interface{}) error {
	if w == nil || w.client == nil {
		return nil
	}
	_, err := w.client.Data().Creator().WithClassName(class).WithID(docID).WithProperties(payload).WithVector(vec).Do(ctx)
	return err
}

// HealthPing calls GET http://<baseURL>/v1/meta and expects 200 OK.
func (w *weavNative) HealthPing(ctx context.Context) error {
	if w == nil || w.baseURL == "" {
		return fmt.Errorf("weaviate baseURL missing")
	}
	url := w.baseURL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/v1/meta", nil)
	if err != nil {
		return err
	}
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weaviate status %d", resp.StatusCode)
	}
	return nil
}

func formatGraphQLErrors(errs interface{}) string {
	if b, err := json.Marshal(errs); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", errs)
}
