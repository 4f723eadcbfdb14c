package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS graph_nodes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner TEXT NOT NULL,
    label TEXT NOT NULL,
    name TEXT NOT NULL,
    properties TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME DEFAULT (datetime('now')),
    UNIQUE(owner, label, name)
);

CREATE TABLE IF NOT EXISTS graph_edges (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_id INTEGER NOT NULL REFERENCES graph_nodes(id),
    target_id INTEGER NOT NULL REFERENCES graph_nodes(id),
    relation TEXT NOT NULL,
    properties TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME DEFAULT (datetime('now')),
    UNIQUE(source_id, target_id, relation)
);

CREATE INDEX IF NOT EXISTS idx_graph_edges_source ON graph_edges(source_id);
CREATE INDEX IF NOT EXISTS idx_graph_edges_target ON graph_edges(target_id);
`

const (
	userLabel = "User"

	queryInsertNode = `
INSERT INTO graph_nodes (owner, label, name, properties) VALUES (?, ?, ?, ?)
ON CONFLICT(owner, label, name) DO NOTHING`

	queryGetNodeID = `SELECT id FROM graph_nodes WHERE owner = ? AND label = ? AND name = ?`

	queryInsertEdge = `
INSERT INTO graph_edges (source_id, target_id, relation, properties) VALUES (?, ?, ?, ?)
ON CONFLICT(source_id, target_id, relation) DO NOTHING`

	queryOwnerNodes = `SELECT id, label, name, properties FROM graph_nodes WHERE owner = ?`

	queryOwnerEdges = `
SELECT e.source_id, e.target_id, e.relation
FROM graph_edges e
JOIN graph_nodes n ON n.id = e.source_id
WHERE n.owner = ?
ORDER BY e.id`
)

// SQLiteStore keeps each user's graph as owner-scoped rows in the shared
// SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("migrate graph store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

type storedNode struct {
	id         int64
	label      string
	name       string
	properties map[string]any
}

type storedEdge struct {
	sourceID int64
	targetID int64
	relation string
}

func (s *SQLiteStore) Subgraph(ctx context.Context, userID string) ([]Record, error) {
	nodes, edges, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	user, ok := findUser(nodes, userID)
	if !ok {
		return nil, nil
	}

	return traverse(user, nodes, edges), nil
}

func (s *SQLiteStore) Touch(ctx context.Context, userID string) ([]Record, error) {
	if _, err := s.mergeUser(ctx, s.db, userID); err != nil {
		return nil, err
	}

	nodes, edges, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	user, ok := findUser(nodes, userID)
	if !ok {
		return nil, fmt.Errorf("user node %s missing after merge", userID)
	}

	records := traverse(user, nodes, edges)
	if len(records) == 0 {
		records = []Record{{User: user.properties, Keys: recordKeys}}
	}

	return records, nil
}

func (s *SQLiteStore) Apply(ctx context.Context, userID string, m *Mutation) error {
	if err := m.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	userNodeID, err := s.mergeUser(ctx, tx, userID)
	if err != nil {
		return err
	}

	for _, rel := range m.Relations {
		sourceID := userNodeID
		if rel.From != nil {
			sourceID, err = mergeNode(ctx, tx, userID, *rel.From)
			if err != nil {
				return err
			}
		}

		targetID, err := mergeNode(ctx, tx, userID, rel.To)
		if err != nil {
			return err
		}

		props, err := json.Marshal(rel.Properties.settable())
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, queryInsertEdge, sourceID, targetID, rel.Type, string(props)); err != nil {
			return fmt.Errorf("merge edge %s: %w", rel.Type, err)
		}
	}

	return tx.Commit()
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) mergeUser(ctx context.Context, q execQuerier, userID string) (int64, error) {
	props, _ := json.Marshal(map[string]any{"id": userID})
	return upsertNode(ctx, q, userID, userLabel, userID, string(props))
}

func mergeNode(ctx context.Context, q execQuerier, owner string, n Node) (int64, error) {
	props := n.Properties.settable()
	props["name"] = n.Name

	b, err := json.Marshal(props)
	if err != nil {
		return 0, err
	}

	return upsertNode(ctx, q, owner, n.Label, n.Name, string(b))
}

func upsertNode(ctx context.Context, q execQuerier, owner, label, name, props string) (int64, error) {
	if _, err := q.ExecContext(ctx, queryInsertNode, owner, label, name, props); err != nil {
		return 0, fmt.Errorf("merge node %s: %w", label, err)
	}

	var id int64
	if err := q.QueryRowContext(ctx, queryGetNodeID, owner, label, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup node %s: %w", label, err)
	}

	return id, nil
}

func (s *SQLiteStore) load(ctx context.Context, owner string) (map[int64]*storedNode, []storedEdge, error) {
	rows, err := s.db.QueryContext(ctx, queryOwnerNodes, owner)
	if err != nil {
		return nil, nil, err
	}

	nodes := make(map[int64]*storedNode)
	for rows.Next() {
		var n storedNode
		var props string
		if err := rows.Scan(&n.id, &n.label, &n.name, &props); err != nil {
			rows.Close()
			return nil, nil, err
		}
		if err := json.Unmarshal([]byte(props), &n.properties); err != nil {
			n.properties = map[string]any{"name": n.name}
		}
		nodes[n.id] = &n
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, queryOwnerEdges, owner)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var edges []storedEdge
	for rows.Next() {
		var e storedEdge
		if err := rows.Scan(&e.sourceID, &e.targetID, &e.relation); err != nil {
			return nil, nil, err
		}
		edges = append(edges, e)
	}

	return nodes, edges, rows.Err()
}

func findUser(nodes map[int64]*storedNode, userID string) (*storedNode, bool) {
	for _, n := range nodes {
		if n.label == userLabel && n.name == userID {
			return n, true
		}
	}
	return nil, false
}

// traverse walks edges in both directions from the user node. Each reachable
// node yields one record carrying the relationship types of the first path
// that reached it. Edges between already reached nodes are emitted afterwards
// so every stored relationship in the component is read back.
func traverse(user *storedNode, nodes map[int64]*storedNode, edges []storedEdge) []Record {
	adjacent := make(map[int64][]int)
	for i, e := range edges {
		adjacent[e.sourceID] = append(adjacent[e.sourceID], i)
		if e.targetID != e.sourceID {
			adjacent[e.targetID] = append(adjacent[e.targetID], i)
		}
	}

	paths := map[int64][]string{user.id: nil}
	emitted := make([]bool, len(edges))
	queue := []int64{user.id}
	var records []Record

	emit := func(node *storedNode, path []string) {
		records = append(records, Record{
			User:          user.properties,
			Node:          node.properties,
			Relationships: path,
			Keys:          recordKeys,
		})
	}

	for len(queue) > 0 && len(records) < maxRecords {
		cur := queue[0]
		queue = queue[1:]

		for _, i := range adjacent[cur] {
			e := edges[i]
			next := e.targetID
			if next == cur {
				next = e.sourceID
			}
			if _, seen := paths[next]; seen {
				continue
			}

			node, ok := nodes[next]
			if !ok {
				continue
			}

			path := append(append([]string{}, paths[cur]...), e.relation)
			paths[next] = path
			emitted[i] = true
			emit(node, path)
			if len(records) >= maxRecords {
				break
			}
			queue = append(queue, next)
		}
	}

	for i, e := range edges {
		if len(records) >= maxRecords {
			break
		}
		if emitted[i] {
			continue
		}
		prefix, fromReached := paths[e.sourceID]
		_, toReached := paths[e.targetID]
		node, ok := nodes[e.targetID]
		if !fromReached || !toReached || !ok {
			continue
		}
		emit(node, append(append([]string{}, prefix...), e.relation))
	}

	return records
}
