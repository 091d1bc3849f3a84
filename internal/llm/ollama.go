package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Ollama calls the Ollama /api/generate endpoint with streaming disabled.
type Ollama struct {
	client *resty.Client
	model  string
}

// NewOllama builds a completion client against baseURL.
func NewOllama(baseURL, model string, timeout time.Duration) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := resty.New().SetBaseURL(baseURL).SetTimeout(timeout)
	return &Ollama{client: c, model: model}
}

type generateReq struct {
	Model  string `json:"model"`
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResp struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

func (o *Ollama) Complete(ctx context.Context, system, prompt string) (string, error) {
	var out generateResp
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(generateReq{Model: o.model, System: system, Prompt: prompt, Stream: false}).
		SetResult(&out).
		Post("/api/generate")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("ollama generate status %d", resp.StatusCode())
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama generate error: %s", out.Error)
	}
	return strings.TrimSpace(out.Response), nil
}

// HealthPing verifies the server responds on /api/tags.
func (o *Ollama) HealthPing(ctx context.Context) error {
	resp, err := o.client.R().SetContext(ctx).Get("/api/tags")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("ollama status %d", resp.StatusCode())
	}
	return nil
}
