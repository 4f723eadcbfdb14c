package vector

import (
	"context"
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	"github.com/google/uuid"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS vector_chunks (
    id TEXT PRIMARY KEY,
    collection TEXT NOT NULL,
    user_id TEXT NOT NULL,
    source_id TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    embedding BLOB NOT NULL,
    created_at DATETIME DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_vector_chunks_scope ON vector_chunks(collection, user_id, source_id);
`

// Exact cosine ranking over the filtered rows. Filtering before ranking keeps
// k results even when most of the collection belongs to other users.
const querySearchChunks = `
SELECT content, user_id, source_id
FROM vector_chunks
WHERE collection = ?
  AND (? = '' OR user_id = ?)
  AND (? = '' OR source_id = ?)
ORDER BY vec_distance_cosine(embedding, ?) ASC, rowid ASC
LIMIT ?`

const queryInsertChunk = `
INSERT INTO vector_chunks (id, collection, user_id, source_id, content, embedding)
VALUES (?, ?, ?, ?, ?, ?)`

// SQLiteStore keeps one collection in the shared SQLite database using
// sqlite-vec distance functions.
type SQLiteStore struct {
	db         *sql.DB
	collection string
	embedder   Embedder
}

func NewSQLite(db *sql.DB, collection string, embedder Embedder) (*SQLiteStore, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("migrate vector store: %w", err)
	}

	return &SQLiteStore{db: db, collection: collection, embedder: embedder}, nil
}

func (s *SQLiteStore) Search(ctx context.Context, query string, filter Filter, k int) ([]Chunk, error) {
	if k <= 0 {
		return nil, nil
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, querySearchChunks,
		s.collection,
		filter.UserID, filter.UserID,
		filter.SourceID, filter.SourceID,
		blob, k,
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.collection, err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.PageContent, &c.Metadata.UserID, &c.Metadata.SourceID); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}

	return chunks, rows.Err()
}

func (s *SQLiteStore) Upsert(ctx context.Context, chunks []Chunk) error {
	for _, c := range chunks {
		embedding, err := s.embedder.Embed(ctx, c.PageContent)
		if err != nil {
			return fmt.Errorf("embed chunk: %w", err)
		}

		blob, err := sqlite_vec.SerializeFloat32(embedding)
		if err != nil {
			return err
		}

		_, err = s.db.ExecContext(ctx, queryInsertChunk,
			uuid.NewString(), s.collection,
			c.Metadata.UserID, c.Metadata.SourceID,
			c.PageContent, blob,
		)
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	return nil
}
