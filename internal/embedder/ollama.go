package embedder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ollama embeds through a local Ollama server's /api/embeddings endpoint.
type ollama struct {
	client  *http.Client
	baseURL string
	model   string
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

func newOllama(baseURL, model string) *ollama {
	return &ollama{client: newHTTPClient(), baseURL: baseURL, model: model}
}

func (o *ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp ollamaResponse
	req := ollamaRequest{Model: o.model, Prompt: text}
	if err := postJSON(ctx, o.client, o.baseURL+"/api/embeddings", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}

	if len(resp.Embedding) == 0 {
		return nil, errors.New("ollama returned an empty embedding")
	}

	return resp.Embedding, nil
}
