package vector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

// ChromemStore is an in-process collection backed by chromem-go. Nothing
// survives a restart, which suits tests and single-node demos.
type ChromemStore struct {
	col      *chromem.Collection
	embedder Embedder
}

func NewChromem(db *chromem.DB, collection string, embedder Embedder) (*ChromemStore, error) {
	// we supply embeddings ourselves, so no embedding func
	col, err := db.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{col: col, embedder: embedder}, nil
}

func (s *ChromemStore) Search(ctx context.Context, query string, filter Filter, k int) ([]Chunk, error) {
	// chromem-go requires nResults <= collection size
	if count := s.col.Count(); k > count {
		k = count
	}
	if k <= 0 {
		return nil, nil
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.col.QueryEmbedding(ctx, embedding, k, whereClause(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	chunks := make([]Chunk, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, Chunk{
			PageContent: r.Content,
			Metadata: Metadata{
				UserID:   r.Metadata["userId"],
				SourceID: r.Metadata["sourceId"],
			},
		})
	}

	return chunks, nil
}

func (s *ChromemStore) Upsert(ctx context.Context, chunks []Chunk) error {
	for _, c := range chunks {
		embedding, err := s.embedder.Embed(ctx, c.PageContent)
		if err != nil {
			return fmt.Errorf("embed chunk: %w", err)
		}

		metadata := map[string]string{"userId": c.Metadata.UserID}
		if c.Metadata.SourceID != "" {
			metadata["sourceId"] = c.Metadata.SourceID
		}

		err = s.col.AddDocument(ctx, chromem.Document{
			ID:        uuid.NewString(),
			Content:   c.PageContent,
			Embedding: embedding,
			Metadata:  metadata,
		})
		if err != nil {
			return fmt.Errorf("add document: %w", err)
		}
	}

	return nil
}

func whereClause(f Filter) map[string]string {
	where := map[string]string{}
	if f.UserID != "" {
		where["userId"] = f.UserID
	}
	if f.SourceID != "" {
		where["sourceId"] = f.SourceID
	}
	if len(where) == 0 {
		return nil
	}
	return where
}
