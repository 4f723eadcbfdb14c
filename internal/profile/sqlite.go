package profile

import (
	"context"
	"database/sql"
	"fmt"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS user_facts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    fact TEXT NOT NULL,
    created_at DATETIME DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_user_facts_user ON user_facts(user_id, id);
`

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("migrate profile store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Facts(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT fact FROM user_facts WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	var facts []string
	for rows.Next() {
		var fact string
		if err := rows.Scan(&fact); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		facts = append(facts, fact)
	}

	return facts, rows.Err()
}

// AppendFact is a single insert, so concurrent turns never lose each
// other's facts.
func (s *SQLiteStore) AppendFact(ctx context.Context, userID, fact string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO user_facts (user_id, fact) VALUES (?, ?)`, userID, fact); err != nil {
		return fmt.Errorf("append fact: %w", err)
	}
	return nil
}
