package vector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// QdrantStore talks to the Qdrant REST API. Payloads use the
// {"content", "metadata": {...}} layout so collections written by LangChain
// clients remain searchable.
type QdrantStore struct {
	client     *http.Client
	apiBase    string
	apiKey     string
	collection string
	dimension  int
	embedder   Embedder
}

type QdrantConfig struct {
	Address    string
	APIKey     string
	Collection string
	Dimension  int
	Timeout    time.Duration
}

type qdrantPayload struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

type qdrantPoint struct {
	ID      string        `json:"id"`
	Vector  []float32     `json:"vector"`
	Payload qdrantPayload `json:"payload"`
}

type qdrantCondition struct {
	Key   string `json:"key"`
	Match struct {
		Value string `json:"value"`
	} `json:"match"`
}

type qdrantSearchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
	Filter      *struct {
		Must []qdrantCondition `json:"must"`
	} `json:"filter,omitempty"`
}

func NewQdrant(cfg QdrantConfig, embedder Embedder) (*QdrantStore, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("qdrant address is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant collection is required")
	}

	address := strings.TrimRight(cfg.Address, "/")
	if !strings.HasPrefix(address, "http://") && !strings.HasPrefix(address, "https://") {
		address = "http://" + address
	}

	if cfg.Dimension <= 0 {
		cfg.Dimension = 3072
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &QdrantStore{
		client:     &http.Client{Timeout: cfg.Timeout},
		apiBase:    address,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		embedder:   embedder,
	}, nil
}

// EnsureCollection creates the collection if it doesn't exist.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	var exists struct {
		Result struct {
			Exists bool `json:"exists"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, "/exists", nil, &exists); err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists.Result.Exists {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, "", body, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	return nil
}

func (s *QdrantStore) Search(ctx context.Context, query string, filter Filter, k int) ([]Chunk, error) {
	if k <= 0 {
		return nil, nil
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	req := qdrantSearchRequest{
		Vector:      embedding,
		Limit:       k,
		WithPayload: true,
	}
	if must := mustConditions(filter); len(must) > 0 {
		req.Filter = &struct {
			Must []qdrantCondition `json:"must"`
		}{Must: must}
	}

	var result struct {
		Result []struct {
			Payload qdrantPayload `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, "/points/search", req, &result); err != nil {
		return nil, fmt.Errorf("search %s: %w", s.collection, err)
	}

	chunks := make([]Chunk, 0, len(result.Result))
	for _, r := range result.Result {
		chunks = append(chunks, Chunk{PageContent: r.Payload.Content, Metadata: r.Payload.Metadata})
	}

	return chunks, nil
}

func (s *QdrantStore) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]qdrantPoint, 0, len(chunks))
	for _, c := range chunks {
		embedding, err := s.embedder.Embed(ctx, c.PageContent)
		if err != nil {
			return fmt.Errorf("embed chunk: %w", err)
		}
		points = append(points, qdrantPoint{
			ID:      uuid.NewString(),
			Vector:  embedding,
			Payload: qdrantPayload{Content: c.PageContent, Metadata: c.Metadata},
		})
	}

	body := map[string]any{"points": points}
	if err := s.do(ctx, http.MethodPut, "/points?wait=true", body, nil); err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}

	return nil
}

func mustConditions(f Filter) []qdrantCondition {
	var must []qdrantCondition
	add := func(key, value string) {
		if value == "" {
			return
		}
		var c qdrantCondition
		c.Key = key
		c.Match.Value = value
		must = append(must, c)
	}
	add("metadata.userId", f.UserID)
	add("metadata.sourceId", f.SourceID)
	return must
}

func (s *QdrantStore) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	url := fmt.Sprintf("%s/collections/%s%s", s.apiBase, s.collection, path)
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status=%d, body=%s", resp.StatusCode, string(b))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
