package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store keeps the chat transcript of each (user, source) pair.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS chat_messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    source_id TEXT NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at DATETIME DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_chat ON chat_messages(user_id, source_id, id);
`

// createdAtColumn renders the timestamp as RFC3339 text regardless of how
// the driver maps DATETIME columns.
const createdAtColumn = `strftime('%Y-%m-%dT%H:%M:%SZ', created_at)`

// NewStore creates a transcript store using the provided database connection
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate conversation store: %w", err)
	}
	return &Store{db: db}, nil
}

// Append records messages in order within one transaction, so a turn's user
// and assistant messages land together or not at all.
func (s *Store) Append(ctx context.Context, userID, sourceID string, messages ...Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range messages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_messages (user_id, source_id, role, content) VALUES (?, ?, ?, ?)`,
			userID, sourceID, m.Role, m.Content,
		); err != nil {
			return fmt.Errorf("append message: %w", err)
		}
	}

	return tx.Commit()
}

// Recent returns the latest limit messages in chronological order.
func (s *Store) Recent(ctx context.Context, userID, sourceID string, limit int) ([]Message, error) {
	messages, err := s.query(ctx, `
		SELECT role, content, ` + createdAtColumn + ` FROM (
			SELECT id, role, content, created_at
			FROM chat_messages
			WHERE user_id = ? AND source_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`,
		userID, sourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	return messages, nil
}

func (s *Store) All(ctx context.Context, userID, sourceID string) ([]Message, error) {
	messages, err := s.query(ctx, `
		SELECT role, content, ` + createdAtColumn + `
		FROM chat_messages
		WHERE user_id = ? AND source_id = ?
		ORDER BY id ASC`,
		userID, sourceID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	return messages, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		var createdAt string
		if err := rows.Scan(&m.Role, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		messages = append(messages, m)
	}

	return messages, rows.Err()
}
