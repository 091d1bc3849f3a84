package kb

import (
	"context"
	"fmt"
	"time"

	weaviate "github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// BootstrapWeaviate ensures the advice classes exist. Vectors are
// supplied by the service, so the vectorizer stays off.
func BootstrapWeaviate(ctx context.Context, baseURL string) error {
	cfg := weaviate.Config{Scheme: "http", Host: baseURL}
	cl, err := weaviate.NewClient(cfg)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	national := &models.Class{
		Class:      ClassNationalAdvice,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "docId", DataType: []string{"uuid"}},
			{Name: "title", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "category", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"text"}},
			{Name: "creationTime", DataType: []string{"date"}},
		},
	}

	local := &models.Class{
		Class:      ClassLocalAdvice,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "docId", DataType: []string{"uuid"}},
			{Name: "title", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
			{Name: "bureau", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"text"}},
			{Name: "creationTime", DataType: []string{"date"}},
		},
	}

	if err := ensureClass(cctx, cl, national); err != nil {
		return fmt.Errorf("bootstrap %s: %w", national.Class, err)
	}
	if err := ensureClass(cctx, cl, local); err != nil {
		return fmt.Errorf("bootstrap %s: %w", local.Class, err)
	}
	return nil
}

func ensureClass(ctx context.Context, cl *weaviate.Client, desired *models.Class) error {
	ex, err := cl.Schema().ClassGetter().WithClassName(desired.Class).Do(ctx)
	if err == nil && ex != nil {
		return nil
	}
	if err := cl.Schema().ClassCreator().WithClass(desired).Do(ctx); err != nil {
		return fmt.Errorf("create class %s: %w", desired.Class, err)
	}
	return nil
}
