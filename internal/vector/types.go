package vector

import (
	"context"
	"encoding/json"
)

// Metadata is a fixed struct so two equal chunks always serialize the same way.
type Metadata struct {
	UserID   string `json:"userId"`
	SourceID string `json:"sourceId,omitempty"`
}

type Chunk struct {
	PageContent string   `json:"pageContent"`
	Metadata    Metadata `json:"metadata"`
}

// Key is the canonical identity used for deduplication.
func (c Chunk) Key() string {
	b, _ := json.Marshal(c)
	return string(b)
}

// Filter restricts a search by exact metadata match. Empty fields match anything.
type Filter struct {
	UserID   string
	SourceID string
}

func (f Filter) Matches(m Metadata) bool {
	if f.UserID != "" && f.UserID != m.UserID {
		return false
	}
	if f.SourceID != "" && f.SourceID != m.SourceID {
		return false
	}
	return true
}

// Store is one similarity-searchable collection.
type Store interface {
	Search(ctx context.Context, query string, filter Filter, k int) ([]Chunk, error)
	Upsert(ctx context.Context, chunks []Chunk) error
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Render serializes search hits for inclusion in a prompt.
func Render(chunks []Chunk) string {
	if chunks == nil {
		chunks = []Chunk{}
	}
	b, _ := json.Marshal(chunks)
	return string(b)
}
