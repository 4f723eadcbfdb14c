package vector

import (
	"context"
	"database/sql"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

type Config struct {
	Provider     string
	QdrantURL    string
	QdrantAPIKey string
	Dimensions   int
}

// New opens the named collection on the configured backend. db is only used
// by the sqlite provider.
func New(ctx context.Context, cfg Config, db *sql.DB, embedder Embedder, collection string) (Store, error) {
	switch cfg.Provider {
	case "sqlite":
		return NewSQLite(db, collection, embedder)
	case "memory":
		return NewChromem(chromem.NewDB(), collection, embedder)
	case "qdrant":
		store, err := NewQdrant(QdrantConfig{
			Address:    cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: collection,
			Dimension:  cfg.Dimensions,
		}, embedder)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureCollection(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown vector provider: %s", cfg.Provider)
	}
}
