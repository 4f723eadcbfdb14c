package graph

import (
	"context"
	"encoding/json"
	"strings"
)

// maxRecords bounds how much of a graph is read back into a prompt.
const maxRecords = 200

// Record is one row of a user's subgraph: the user node, one connected node
// and the relationship types on the path between them.
type Record struct {
	User          map[string]any
	Node          map[string]any
	Relationships []string
	Keys          []string
}

var recordKeys = []string{"u", "r", "n"}

type Store interface {
	// Subgraph reads everything reachable from the user node. A user that
	// has never been written yields no records.
	Subgraph(ctx context.Context, userID string) ([]Record, error)
	// Touch creates the user node if needed and returns its subgraph. A user
	// without connections yields a single record holding only the user node.
	Touch(ctx context.Context, userID string) ([]Record, error)
	// Apply merges the mutation into the user's graph. Re-applying the same
	// mutation changes nothing.
	Apply(ctx context.Context, userID string, m *Mutation) error
}

// Format renders records in the line format the prompts expect. An empty
// result renders as the empty string.
func Format(records []Record) string {
	var sb strings.Builder

	for _, r := range records {
		if r.User != nil {
			sb.WriteString("User node: " + marshal(r.User) + " \n")
		}
		if r.Node != nil {
			sb.WriteString("Connected nodes: " + marshal(r.Node) + " \n")
		}
		if len(r.Relationships) > 0 {
			sb.WriteString("Relationships: " + strings.Join(r.Relationships, ", ") + " \n")
		}
		sb.WriteString("Available keys: " + strings.Join(r.Keys, ",") + "\n")
	}

	return sb.String()
}

func marshal(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
