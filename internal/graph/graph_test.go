package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/bowerhall/notebook/internal/sqlitedb"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sqlitedb.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLite(db)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func trekking() *Mutation {
	return &Mutation{Relations: []Relation{{
		Type:       "traveledTo",
		To:         Node{Label: "Place", Name: "Manali"},
		Properties: Properties{"event": "Trekking", "season": "Summer"},
	}}}
}

func TestParseMutation(t *testing.T) {
	raw := "Here you go:\n```json\n" + `{"relations":[{"type":"traveledTo","to":{"label":"Place","name":"Manali"},"properties":{"event":"Trekking","year":2023,"solo":true}}]}` + "\n```"

	m, err := ParseMutation(raw)
	if err != nil {
		t.Fatalf("failed to parse mutation: %v", err)
	}

	if len(m.Relations) != 1 {
		t.Fatalf("expected 1 relation, got %d", len(m.Relations))
	}
	rel := m.Relations[0]
	if rel.From != nil {
		t.Error("expected relation from the user")
	}
	if rel.To.Label != "Place" || rel.To.Name != "Manali" {
		t.Errorf("unexpected target %+v", rel.To)
	}
	if rel.Properties["year"] != "2023" || rel.Properties["solo"] != "true" {
		t.Errorf("scalar properties not normalized: %v", rel.Properties)
	}
}

func TestParseMutationRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no json", "MERGE (u:User {id: $userId}) DETACH DELETE u"},
		{"label injection", `{"relations":[{"type":"likes","to":{"label":"Place}) DETACH DELETE (x","name":"a"}}]}`},
		{"relation injection", `{"relations":[{"type":"likes]->() DELETE","to":{"label":"Place","name":"a"}}]}`},
		{"user label", `{"relations":[{"type":"is","to":{"label":"User","name":"someone-else"}}]}`},
		{"missing name", `{"relations":[{"type":"likes","to":{"label":"Food"}}]}`},
		{"bad property key", `{"relations":[{"type":"likes","to":{"label":"Food","name":"x"},"properties":{"a b":"c"}}]}`},
		{"nested property", `{"relations":[{"type":"likes","to":{"label":"Food","name":"x"},"properties":{"a":{"b":1}}}]}`},
		{"unknown field", `{"relations":[],"query":"MATCH (n) DELETE n"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMutation(tt.raw)
			if !errors.Is(err, ErrInvalidMutation) {
				t.Errorf("expected ErrInvalidMutation, got %v", err)
			}
		})
	}
}

func TestSQLiteSubgraphUnknownUser(t *testing.T) {
	store := newSQLiteStore(t)

	records, err := store.Subgraph(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("subgraph failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
	if Format(records) != "" {
		t.Error("expected empty rendering for a new user")
	}
}

func TestSQLiteTouchCreatesUser(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	records, err := store.Touch(ctx, "u1")
	if err != nil {
		t.Fatalf("touch failed: %v", err)
	}
	if len(records) != 1 || records[0].Node != nil {
		t.Fatalf("expected a single user-only record, got %+v", records)
	}

	got := Format(records)
	want := "User node: {\"id\":\"u1\"} \nAvailable keys: u,r,n\n"
	if got != want {
		t.Errorf("unexpected rendering:\n%q\nwant\n%q", got, want)
	}

	// touching again must not duplicate the user node
	if _, err := store.Touch(ctx, "u1"); err != nil {
		t.Fatalf("touch failed: %v", err)
	}
	var count int
	store.db.QueryRow(`SELECT COUNT(*) FROM graph_nodes WHERE label = 'User'`).Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 user node, got %d", count)
	}
}

func TestSQLiteApplyIdempotent(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := store.Apply(ctx, "u1", trekking()); err != nil {
			t.Fatalf("apply failed: %v", err)
		}
	}

	var nodes, edges int
	store.db.QueryRow(`SELECT COUNT(*) FROM graph_nodes WHERE label = 'Place' AND name = 'Manali'`).Scan(&nodes)
	store.db.QueryRow(`SELECT COUNT(*) FROM graph_edges`).Scan(&edges)
	if nodes != 1 {
		t.Errorf("expected 1 Manali node, got %d", nodes)
	}
	if edges != 1 {
		t.Errorf("expected 1 edge, got %d", edges)
	}

	records, err := store.Subgraph(ctx, "u1")
	if err != nil {
		t.Fatalf("subgraph failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	got := Format(records)
	for _, want := range []string{
		`User node: {"id":"u1"}`,
		`Connected nodes: {"name":"Manali"}`,
		"Relationships: traveledTo",
		"Available keys: u,r,n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in rendering:\n%s", want, got)
		}
	}
}

func TestSQLiteApplyScopesByUser(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	store.Apply(ctx, "u1", trekking())
	store.Apply(ctx, "u2", trekking())

	records, err := store.Subgraph(ctx, "u2")
	if err != nil {
		t.Fatalf("subgraph failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected u2 to see only its own node, got %d records", len(records))
	}
	if records[0].User["id"] != "u2" {
		t.Errorf("expected u2 user node, got %v", records[0].User)
	}
}

func TestSQLiteApplyMultiHop(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	m := &Mutation{Relations: []Relation{
		{Type: "traveledTo", To: Node{Label: "Place", Name: "Manali"}},
		{From: &Node{Label: "Place", Name: "Manali"}, Type: "locatedIn", To: Node{Label: "State", Name: "Himachal"}},
	}}
	if err := store.Apply(ctx, "u1", m); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	records, err := store.Subgraph(ctx, "u1")
	if err != nil {
		t.Fatalf("subgraph failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if got := strings.Join(records[1].Relationships, ","); got != "traveledTo,locatedIn" {
		t.Errorf("expected path traveledTo,locatedIn, got %s", got)
	}
}

func TestSQLiteSubgraphKeepsCycleEdges(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	m := &Mutation{Relations: []Relation{
		{Type: "traveledTo", To: Node{Label: "Place", Name: "Manali"}},
		{Type: "traveledWith", To: Node{Label: "Person", Name: "Rahul"}},
		{From: &Node{Label: "Person", Name: "Rahul"}, Type: "livesIn", To: Node{Label: "Place", Name: "Manali"}},
	}}
	if err := store.Apply(ctx, "u1", m); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	records, err := store.Subgraph(ctx, "u1")
	if err != nil {
		t.Fatalf("subgraph failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	got := Format(records)
	for _, want := range []string{
		"Relationships: traveledTo \n",
		"Relationships: traveledWith \n",
		"Relationships: traveledWith, livesIn \n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in rendering:\n%s", want, got)
		}
	}
}

func TestSQLiteApplyRejectsInvalid(t *testing.T) {
	store := newSQLiteStore(t)

	bad := &Mutation{Relations: []Relation{{Type: "bad type", To: Node{Label: "Place", Name: "x"}}}}
	if err := store.Apply(context.Background(), "u1", bad); !errors.Is(err, ErrInvalidMutation) {
		t.Errorf("expected ErrInvalidMutation, got %v", err)
	}
}

func TestCompileMutation(t *testing.T) {
	m := trekking()
	m.Relations = append(m.Relations, Relation{
		From: &Node{Label: "Place", Name: "Manali"},
		Type: "locatedIn",
		To:   Node{Label: "State", Name: "Himachal", Properties: Properties{"name": "ignored", "country": "India"}},
	})

	query, params := compileMutation("u1", m)

	for _, want := range []string{
		"MERGE (u:User {id: $userId})",
		"MERGE (t0:`Place` {name: $t0_name, owner: $userId})",
		"MERGE (u)-[r0:`traveledTo`]->(t0)",
		"ON CREATE SET r0 += $r0_props",
		"MERGE (f1:`Place` {name: $f1_name, owner: $userId})",
		"MERGE (f1)-[r1:`locatedIn`]->(t1)",
		"ON CREATE SET t1 += $t1_props",
	} {
		if !strings.Contains(query, want) {
			t.Errorf("expected %q in query:\n%s", want, query)
		}
	}

	if strings.Contains(query, "Manali") || strings.Contains(query, "u1") {
		t.Errorf("values must be parameters, not query text:\n%s", query)
	}

	if params["userId"] != "u1" || params["t0_name"] != "Manali" {
		t.Errorf("unexpected params %v", params)
	}
	props := params["t1_props"].(map[string]any)
	if _, ok := props["name"]; ok {
		t.Error("reserved key name must not be settable")
	}
	if props["country"] != "India" {
		t.Errorf("expected country property, got %v", props)
	}
}

func TestConvertRecord(t *testing.T) {
	row := &neo4j.Record{
		Keys: []string{"u", "r", "n"},
		Values: []any{
			neo4j.Node{Labels: []string{"User"}, Props: map[string]any{"id": "u1"}},
			[]any{neo4j.Relationship{Type: "watchedMovie"}},
			neo4j.Node{Labels: []string{"Movie"}, Props: map[string]any{"title": "Interstellar", "owner": "u1"}},
		},
	}

	rec := convertRecord(row)
	if rec.User["id"] != "u1" {
		t.Errorf("unexpected user %v", rec.User)
	}
	if _, ok := rec.Node["owner"]; ok {
		t.Error("owner should be hidden from rendering")
	}
	if len(rec.Relationships) != 1 || rec.Relationships[0] != "watchedMovie" {
		t.Errorf("unexpected relationships %v", rec.Relationships)
	}

	empty := convertRecord(&neo4j.Record{
		Keys:   []string{"u", "r", "n"},
		Values: []any{neo4j.Node{Props: map[string]any{"id": "u1"}}, nil, nil},
	})
	if empty.Node != nil || len(empty.Relationships) != 0 {
		t.Errorf("optional match nulls should stay empty, got %+v", empty)
	}
}
