package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Provider embeds text via the Ollama embeddings HTTP API.
type Provider struct {
	client *resty.Client
	model  string
}

// New builds a Provider against baseURL (scheme optional; http assumed).
func New(baseURL, model string) *Provider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	c := resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second)
	return &Provider{client: c, model: model}
}

type embReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embResp struct {
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error"`
}

func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return []float32{0}, nil
	}

	var out embResp
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(embReq{Model: p.model, Prompt: text}).
		SetResult(&out).
		Post("/api/embeddings")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ollama embeddings status %d", resp.StatusCode())
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ollama embeddings error: %s", out.Error)
	}

	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// HealthPing checks /api/tags for the configured model's presence.
func (p *Provider) HealthPing(ctx context.Context) error {
	var data struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	resp, err := p.client.R().SetContext(ctx).SetResult(&data).Get("/api/tags")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("ollama status %d", resp.StatusCode())
	}
	want := baseModelName(p.model)
	for _, m := range data.Models {
		if baseModelName(m.Name) == want {
			return nil
		}
	}
	return fmt.Errorf("model %s not found", want)
}

// baseModelName strips a ":tag" suffix so "llama3.1:8b" matches "llama3.1".
func baseModelName(name string) string {
	return strings.Split(name, ":")[0]
}
