package profile

import (
	"context"
	"database/sql"
)

// Store owns the ordered list of facts known about each user. Facts are only
// ever appended; no dedup is attempted.
type Store interface {
	Facts(ctx context.Context, userID string) ([]string, error)
	AppendFact(ctx context.Context, userID, fact string) error
}

// New returns a Postgres store when databaseURL is set, otherwise a store on
// the shared SQLite handle.
func New(ctx context.Context, databaseURL string, db *sql.DB) (Store, error) {
	if databaseURL != "" {
		return NewPostgres(ctx, databaseURL)
	}
	return NewSQLite(db)
}
