package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	filters "github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	gql "github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/adviceline/concierge/internal/embeddings"
)

// weavStore backs Store with Weaviate. Recall with a query merges a
// user-scoped hybrid search with a creationTime-sorted listing; recall
// without one returns the listing alone.
type weavStore struct {
	client   *weaviate.Client
	embedder embeddings.Provider
	alpha    float32
}

// NewWeaviateStore constructs a Store against Weaviate at baseURL
// (host:port, no scheme).
func NewWeaviateStore(baseURL string, embedder embeddings.Provider, alpha float32) (Store, error) {
	cfg := weaviate.Config{Scheme: "http", Host: baseURL}
	cl, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &weavStore{client: cl, embedder: embedder, alpha: alpha}, nil
}

// BootstrapWeaviate ensures the UserMemory class exists.
func BootstrapWeaviate(ctx context.Context, baseURL string) error {
	cfg := weaviate.Config{Scheme: "http", Host: baseURL}
	cl, err := weaviate.NewClient(cfg)
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	cls := &models.Class{
		Class:      ClassUserMemory,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "factId", DataType: []string{"uuid"}},
			{Name: "userId", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "category", DataType: []string{"text"}},
			{Name: "creationTime", DataType: []string{"date"}},
		},
	}
	ex, gerr := cl.Schema().ClassGetter().WithClassName(cls.Class).Do(cctx)
	if gerr == nil && ex != nil {
		return nil
	}
	if err := cl.Schema().ClassCreator().WithClass(cls).Do(cctx); err != nil {
		return fmt.Errorf("create class %s: %w", cls.Class, err)
	}
	return nil
}

func (w *weavStore) Remember(ctx context.Context, userID, content, category string) error {
	if content == "" {
		return nil
	}
	exists, err := w.contentExists(ctx, userID, content)
	if err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("memory dedupe check failed, writing anyway")
	} else if exists {
		log.Debug().Str("userId", userID).Msg("memory fact already stored, skipping")
		return nil
	}

	vec, err := w.embedder.Embed(ctx, content)
	if err != nil {
		return err
	}
	payload := map[string]interface{}{
		"factId":       uuid.NewString(),
		"userId":       userID,
		"content":      content,
		"category":     category,
		"creationTime": time.Now().UTC().Format(time.RFC3339),
	}
	_, err = w.client.Data().Creator().WithClassName(ClassUserMemory).WithProperties(payload).WithVector(vec).Do(ctx)
	return err
}

func (w *weavStore) contentExists(ctx context.Context, userID, content string) (bool, error) {
	where := filters.Where().WithOperator(filters.And).WithOperands([]*filters.WhereBuilder{
		filters.Where().WithPath([]string{"userId"}).WithOperator(filters.Equal).WithValueText(userID),
		filters.Where().WithPath([]string{"content"}).WithOperator(filters.Equal).WithValueText(content),
	})
	resp, err := w.client.GraphQL().Get().
		WithClassName(ClassUserMemory).
		WithWhere(where).
		WithLimit(1).
		WithFields(gql.Field{Name: "factId"}).
		Do(ctx)
	if err != nil {
		return false, err
	}
	if len(resp.Errors) > 0 {
		return false, fmt.Errorf("memory graphql: %s", formatErrors(resp.Errors))
	}
	getData, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return false, nil
	}
	arr, ok := getData[ClassUserMemory].([]interface{})
	return ok && len(arr) > 0, nil
}

// Recall combines two best-effort lookups: a hybrid semantic search for
// the query and a recency-sorted listing, so a fact stored moments ago
// still surfaces even when its wording doesn't score. Results are
// concatenated semantic-first with exact-content duplicates dropped.
// Only when both lookups fail does Recall return an error.
func (w *weavStore) Recall(ctx context.Context, userID, query string, topK int) ([]Fact, error) {
	var semantic []Fact
	var semErr error
	if query != "" {
		semantic, semErr = w.fetch(ctx, userID, query, topK)
		if semErr != nil {
			log.Warn().Err(semErr).Str("userId", userID).Msg("semantic recall failed")
		}
	}

	recent, recErr := w.fetch(ctx, userID, "", topK)
	if recErr != nil {
		log.Warn().Err(recErr).Str("userId", userID).Msg("recency recall failed")
		if query != "" && semErr == nil {
			return semantic, nil
		}
		if semErr != nil {
			return nil, semErr
		}
		return nil, recErr
	}

	return mergeFacts(semantic, recent), nil
}

// fetch issues one lookup: hybrid search when query is set, otherwise a
// recency-sorted listing. Both are scoped to the user.
func (w *weavStore) fetch(ctx context.Context, userID, query string, topK int) ([]Fact, error) {
	where := filters.Where().WithPath([]string{"userId"}).WithOperator(filters.Equal).WithValueText(userID)

	req := w.client.GraphQL().Get().
		WithClassName(ClassUserMemory).
		WithWhere(where).
		WithLimit(topK).
		WithFields(
			gql.Field{Name: "factId"},
			gql.Field{Name: "userId"},
			gql.Field{Name: "content"},
			gql.Field{Name: "category"},
			gql.Field{Name: "creationTime"},
			gql.Field{Name: "_additional", Fields: []gql.Field{{Name: "score"}}},
		)

	if query != "" {
		vec, err := w.embedder.Embed(ctx, query)
		if err != nil {
			return nil, err
		}
		hy := (&gql.HybridArgumentBuilder{}).
			WithQuery(query).
			WithVector(vec).
			WithAlpha(w.alpha).
			WithProperties([]string{"content"})
		req = req.WithHybrid(hy)
	} else {
		req = req.WithSort(gql.Sort{Path: []string{"creationTime"}, Order: gql.Desc})
	}

	resp, err := req.Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("memory graphql: %s", formatErrors(resp.Errors))
	}
	getData, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	raw, ok := getData[ClassUserMemory].([]interface{})
	if !ok {
		return []Fact{}, nil
	}

	out := make([]Fact, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		f := Fact{
			FactID:   str(m["factId"]),
			UserID:   str(m["userId"]),
			Content:  str(m["content"]),
			Category: str(m["category"]),
		}
		if ts, err := time.Parse(time.RFC3339, str(m["creationTime"])); err == nil {
			f.CreationTime = ts
		}
		if add, ok := m["_additional"].(map[string]interface{}); ok {
			switch v := add["score"].(type) {
			case float64:
				f.Score = v
			case string:
				f.Score, _ = strconv.ParseFloat(v, 64)
			}
		}
		out = append(out, f)
	}
	return out, nil
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func formatErrors(errs interface{}) string {
	if b, err := json.Marshal(errs); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", errs)
}
