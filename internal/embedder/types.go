package embedder

import "context"

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Config struct {
	Provider  string
	BaseURL   string
	Model     string
	APIKey    string
	CacheSize int
}
