// Package kbtool holds the admin operations behind cmd/kbtool: raw
// hybrid queries for debugging relevance, and bulk seeding of advice
// documents into the knowledge base.
package kbtool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	filters "github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	gql "github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/adviceline/concierge/internal/embeddings/ollama"
	"github.com/adviceline/concierge/internal/kb"
)

// Query performs a hybrid search and returns the raw JSON response, so
// scores and matched fields stay visible. If category is set, national
// results are filtered to it; bureau likewise scopes local results.
func Query(baseURL, ollamaURL, embedModel, class, category, bureau, query string, topK int, alpha float32) ([]byte, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if topK <= 0 {
		topK = 5
	}

	emb := ollama.New(ollamaURL, embedModel)
	vec, err := emb.Embed(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}

	cfg := weaviate.Config{Scheme: "http", Host: baseURL}
	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("weaviate client: %w", err)
	}

	hy := (&gql.HybridArgumentBuilder{}).
		WithQuery(query).
		WithVector(vec).
		WithAlpha(alpha)

	fields := []gql.Field{
		{Name: "docId"},
		{Name: "title"},
		{Name: "content"},
		{Name: "source"},
		{Name: "_additional", Fields: []gql.Field{{Name: "score"}}},
	}
	switch class {
	case kb.ClassNationalAdvice:
		fields = append(fields, gql.Field{Name: "category"})
	case kb.ClassLocalAdvice:
		fields = append(fields, gql.Field{Name: "bureau"})
	default:
		return nil, fmt.Errorf("unknown class %q", class)
	}

	builder := client.GraphQL().Get().WithClassName(class).WithHybrid(hy).WithLimit(topK).WithFields(fields...)

	if category != "" {
		where := filters.Where().WithPath([]string{"category"}).WithOperator(filters.Equal).WithValueText(category)
		builder = builder.WithWhere(where)
	}
	if bureau != "" {
		where := filters.Where().WithPath([]string{"bureau"}).WithOperator(filters.Equal).WithValueText(bureau)
		builder = builder.WithWhere(where)
	}

	resp, err := builder.Do(context.Background())
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("marshal response indent failed; falling back to compact")
		return json.Marshal(resp)
	}
	return out, nil
}

// Document is one advice article in a seed file.
type Document struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category,omitempty"`
	Bureau   string `json:"bureau,omitempty"`
	Source   string `json:"source"`
}

// Seed reads a JSON array of documents from path, embeds each one and
// upserts it into the given class. It stops on the first failure so a
// partial seed is visible in the count.
func Seed(baseURL, ollamaURL, embedModel, class, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	emb := ollama.New(ollamaURL, embedModel)
	retriever, err := kb.NewWeaviateRetriever(baseURL, emb, 0.6)
	if err != nil {
		return 0, err
	}
	ingester, ok := retriever.(kb.Ingester)
	if !ok {
		return 0, fmt.Errorf("retriever does not support ingestion")
	}

	ctx := context.Background()
	for i, doc := range docs {
		if doc.Content == "" {
			return i, fmt.Errorf("document %d has no content", i)
		}
		vec, err := emb.Embed(ctx, doc.Content)
		if err != nil {
			return i, fmt.Errorf("embed document %d: %w", i, err)
		}
		payload := map[string]interface{}{
			"docId":        uuid.NewString(),
			"title":        doc.Title,
			"content":      doc.Content,
			"source":       doc.Source,
			"creationTime": time.Now().UTC().Format(time.RFC3339),
		}
		switch class {
		case kb.ClassNationalAdvice:
			payload["category"] = doc.Category
			err = ingester.UpsertNational(ctx, payload["docId"].(string), vec, payload)
		case kb.ClassLocalAdvice:
			payload["bureau"] = doc.Bureau
			err = ingester.UpsertLocal(ctx, payload["docId"].(string), vec, payload)
		default:
			return i, fmt.Errorf("unknown class %q", class)
		}
		if err != nil {
			return i, fmt.Errorf("upsert document %d: %w", i, err)
		}
	}
	return len(docs), nil
}
