package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const (
	querySubgraph = `
MATCH (u:User {id: $userId})-[r*1..]-(n)
RETURN u, r, n
LIMIT $limit`

	queryTouch = `
MERGE (u:User {id: $userId})
WITH u
OPTIONAL MATCH (u)-[r*1..]-(n)
RETURN u, r, n
LIMIT $limit`
)

type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Neo4jStore keeps user graphs in Neo4j. Entity nodes carry an owner
// property so two users mentioning the same place get separate nodes.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewNeo4j(ctx context.Context, cfg Neo4jConfig) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connect neo4j: %w", err)
	}

	return &Neo4jStore{driver: driver, database: cfg.Database}, nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) Subgraph(ctx context.Context, userID string) ([]Record, error) {
	return s.read(ctx, neo4j.AccessModeRead, querySubgraph, userID)
}

func (s *Neo4jStore) Touch(ctx context.Context, userID string) ([]Record, error) {
	return s.read(ctx, neo4j.AccessModeWrite, queryTouch, userID)
}

func (s *Neo4jStore) Apply(ctx context.Context, userID string, m *Mutation) error {
	if err := m.Validate(); err != nil {
		return err
	}

	query, params := compileMutation(userID, m)

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: s.database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return fmt.Errorf("apply graph mutation: %w", err)
	}

	if _, err := result.Consume(ctx); err != nil {
		return fmt.Errorf("apply graph mutation: %w", err)
	}

	return nil
}

func (s *Neo4jStore) read(ctx context.Context, mode neo4j.AccessMode, query, userID string) ([]Record, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, map[string]any{
		"userId": userID,
		"limit":  maxRecords,
	})
	if err != nil {
		return nil, fmt.Errorf("query user graph: %w", err)
	}

	rows, err := result.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("read user graph: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, convertRecord(row))
	}

	return records, nil
}

func convertRecord(row *neo4j.Record) Record {
	rec := Record{Keys: row.Keys}

	if v, ok := row.Get("u"); ok {
		if node, ok := v.(neo4j.Node); ok {
			rec.User = nodeProps(node)
		}
	}

	if v, ok := row.Get("n"); ok {
		if node, ok := v.(neo4j.Node); ok {
			rec.Node = nodeProps(node)
		}
	}

	if v, ok := row.Get("r"); ok {
		if rels, ok := v.([]any); ok {
			for _, r := range rels {
				if rel, ok := r.(neo4j.Relationship); ok {
					rec.Relationships = append(rec.Relationships, rel.Type)
				}
			}
		}
	}

	return rec
}

func nodeProps(node neo4j.Node) map[string]any {
	props := make(map[string]any, len(node.Props))
	for k, v := range node.Props {
		if k != "owner" {
			props[k] = v
		}
	}
	return props
}

// compileMutation turns a validated mutation into one parameterized MERGE
// statement. Labels and relationship types cannot be parameters in Cypher, so
// they are interpolated only after passing the identifier check.
func compileMutation(userID string, m *Mutation) (string, map[string]any) {
	var sb strings.Builder
	params := map[string]any{"userId": userID}

	sb.WriteString("MERGE (u:User {id: $userId})\n")

	mergeNode := func(alias string, n Node) {
		params[alias+"_name"] = n.Name
		fmt.Fprintf(&sb, "MERGE (%s:`%s` {name: $%s_name, owner: $userId})\n", alias, n.Label, alias)
		if props := n.Properties.settable(); len(props) > 0 {
			params[alias+"_props"] = props
			fmt.Fprintf(&sb, "ON CREATE SET %s += $%s_props\n", alias, alias)
		}
	}

	for i, rel := range m.Relations {
		source := "u"
		if rel.From != nil {
			source = fmt.Sprintf("f%d", i)
			mergeNode(source, *rel.From)
		}

		target := fmt.Sprintf("t%d", i)
		mergeNode(target, rel.To)

		alias := fmt.Sprintf("r%d", i)
		fmt.Fprintf(&sb, "MERGE (%s)-[%s:`%s`]->(%s)\n", source, alias, rel.Type, target)
		if props := rel.Properties.settable(); len(props) > 0 {
			params[alias+"_props"] = props
			fmt.Fprintf(&sb, "ON CREATE SET %s += $%s_props\n", alias, alias)
		}
	}

	return sb.String(), params
}
