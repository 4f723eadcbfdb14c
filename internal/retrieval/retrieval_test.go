package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bowerhall/notebook/internal/llm"
	"github.com/bowerhall/notebook/internal/vector"
)

func chunk(content string) vector.Chunk {
	return vector.Chunk{PageContent: content, Metadata: vector.Metadata{UserID: "u1", SourceID: "s1"}}
}

func contents(chunks []vector.Chunk) string {
	var parts []string
	for _, c := range chunks {
		parts = append(parts, c.PageContent)
	}
	return strings.Join(parts, ",")
}

func TestRerank(t *testing.T) {
	a, b, c, d := chunk("A"), chunk("B"), chunk("C"), chunk("D")

	tests := []struct {
		name  string
		k     int
		lists [][]vector.Chunk
		want  string
	}{
		{"overlap wins", 3, [][]vector.Chunk{{a, b, c}, {b, c, d}}, "B,C,A"},
		{"ties by first index", 3, [][]vector.Chunk{{a, b}, {c, d}}, "A,B,C"},
		{"fewer than k", 3, [][]vector.Chunk{{a}, {a}}, "A"},
		{"empty", 3, [][]vector.Chunk{nil, nil}, ""},
		{"k zero", 0, [][]vector.Chunk{{a, b}}, ""},
		{"duplicates inside a pass", 2, [][]vector.Chunk{{a, b, b}, {a}}, "A,B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := contents(Rerank(tt.k, tt.lists...))
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestRerankKeysIncludeMetadata(t *testing.T) {
	a := chunk("A")
	other := vector.Chunk{PageContent: "A", Metadata: vector.Metadata{UserID: "u1", SourceID: "s2"}}

	got := Rerank(3, []vector.Chunk{a, other})
	if len(got) != 2 {
		t.Errorf("chunks from different sources are distinct, got %d", len(got))
	}
}

type fakeLLM struct {
	replies []string
	errs    []error
	prompts []string
}

func (f *fakeLLM) Chat(ctx context.Context, systemPrompt string, messages []llm.Message) (string, error) {
	i := len(f.prompts)
	f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "", nil
}

type fakeSources struct {
	results map[string][]vector.Chunk
	queries []string
	filters []vector.Filter
	err     error
}

func (f *fakeSources) Search(ctx context.Context, query string, filter vector.Filter, k int) ([]vector.Chunk, error) {
	f.queries = append(f.queries, query)
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func (f *fakeSources) Upsert(ctx context.Context, chunks []vector.Chunk) error {
	return nil
}

func TestRetrieve(t *testing.T) {
	a, b, c, d := chunk("A"), chunk("B"), chunk("C"), chunk("D")
	model := &fakeLLM{replies: []string{"what is an async function", "what is an async function in javascript"}}
	sources := &fakeSources{results: map[string][]vector.Chunk{
		"what is an async function":               {a, b, c},
		"what is an async function in javascript": {b, c, d},
	}}

	r := NewRefiner(Deps{LLM: model, Sources: sources})
	got, err := r.Retrieve(context.Background(), "u1", "s1", "wht is asyn fn")
	if err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}

	if contents(got) != "B,C,A" {
		t.Errorf("expected B,C,A, got %s", contents(got))
	}

	for _, f := range sources.filters {
		if f != (vector.Filter{UserID: "u1", SourceID: "s1"}) {
			t.Errorf("expected user and source filter, got %+v", f)
		}
	}

	if !strings.Contains(model.prompts[1], "wht is asyn fn") || !strings.Contains(model.prompts[1], `"pageContent":"A"`) {
		t.Errorf("critique prompt should carry the original query and first pass chunks:\n%s", model.prompts[1])
	}
}

func TestRetrieveRewriteFallbacks(t *testing.T) {
	model := &fakeLLM{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	sources := &fakeSources{}

	r := NewRefiner(Deps{LLM: model, Sources: sources})
	if _, err := r.Retrieve(context.Background(), "u1", "s1", "raw message"); err != nil {
		t.Fatalf("retrieve failed: %v", err)
	}

	if len(sources.queries) != 2 || sources.queries[0] != "raw message" || sources.queries[1] != "raw message" {
		t.Errorf("expected both passes to fall back to the raw message, got %v", sources.queries)
	}

	model = &fakeLLM{replies: []string{"refined", "  "}}
	sources = &fakeSources{}
	NewRefiner(Deps{LLM: model, Sources: sources}).Retrieve(context.Background(), "u1", "s1", "raw")

	if sources.queries[1] != "refined" {
		t.Errorf("expected empty second rewrite to fall back to the refined query, got %q", sources.queries[1])
	}
}

func TestRetrieveSearchFailure(t *testing.T) {
	r := NewRefiner(Deps{LLM: &fakeLLM{}, Sources: &fakeSources{err: errors.New("qdrant down")}})

	if _, err := r.Retrieve(context.Background(), "u1", "s1", "hi"); err == nil {
		t.Error("expected search failure to be returned")
	}
}
