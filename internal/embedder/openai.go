package embedder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// openai embeds through any OpenAI-compatible /embeddings endpoint.
type openai struct {
	client  *http.Client
	apiKey  string
	baseURL string
	model   string
}

type openaiRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openaiResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newOpenAI(apiKey, baseURL, model string) *openai {
	return &openai{client: newHTTPClient(), apiKey: apiKey, baseURL: baseURL, model: model}
}

func (o *openai) Embed(ctx context.Context, text string) ([]float32, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+o.apiKey)

	var resp openaiResponse
	req := openaiRequest{Model: o.model, Input: text}
	if err := postJSON(ctx, o.client, o.baseURL+"/embeddings", header, req, &resp); err != nil {
		return nil, fmt.Errorf("embedding api: %w", err)
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("embedding api: %s", resp.Error.Message)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("no embedding in response")
	}

	return resp.Data[0].Embedding, nil
}
