// Package retrieval fetches source chunks for a message through two rounds of
// query rewriting and merges the results.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/bowerhall/notebook/internal/llm"
	"github.com/bowerhall/notebook/internal/logger"
	"github.com/bowerhall/notebook/internal/observability"
	"github.com/bowerhall/notebook/internal/vector"
)

const rewritePrompt = `You are an expert query writer. Fix all the typos and add more context to the query so it can fetch more
relevant data.
Output should be a single string holding the query, for example: 'What is asynchronous function'

user query :- %s`

const critiquePrompt = `You are an expert query writer. Check the quality of the relevant chunks and find the least relevant one,
then optimize the query so the quality of the chunks improves. The query should keep the meaning of the user's original query
so the user gets the most accurate answer.
Output should be a single string holding the optimized query, for example: 'What is asynchronous functions in javascript'

user's original query :- %s
user's query with fixed typos and more context :- %s
relevant chunks fetched :- %s`

const (
	defaultTopK = 3
	defaultKeep = 3
)

type Deps struct {
	LLM llm.LLM
	// Sources is the collection holding document chunks.
	Sources vector.Store
	Metrics *observability.Metrics
	TopK    int
	Keep    int
}

type Refiner struct {
	llm     llm.LLM
	sources vector.Store
	metrics *observability.Metrics
	topK    int
	keep    int
}

func NewRefiner(deps Deps) *Refiner {
	r := &Refiner{
		llm:     deps.LLM,
		sources: deps.Sources,
		metrics: deps.Metrics,
		topK:    deps.TopK,
		keep:    deps.Keep,
	}
	if r.topK <= 0 {
		r.topK = defaultTopK
	}
	if r.keep <= 0 {
		r.keep = defaultKeep
	}
	return r
}

// Retrieve returns the chunks of one source most relevant to message. A
// failed rewrite falls back to the previous query; a failed search is
// returned as an error.
func (r *Refiner) Retrieve(ctx context.Context, userID, sourceID, message string) ([]vector.Chunk, error) {
	defer r.metrics.ObserveStage("retrieve", time.Now())

	filter := vector.Filter{UserID: userID, SourceID: sourceID}

	refined := r.rewrite(ctx, fmt.Sprintf(rewritePrompt, message), message)

	first, err := r.sources.Search(ctx, refined, filter, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search sources: %w", err)
	}

	refined2 := r.rewrite(ctx, fmt.Sprintf(critiquePrompt, message, refined, vector.Render(first)), refined)

	second, err := r.sources.Search(ctx, refined2, filter, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search sources: %w", err)
	}

	chunks := Rerank(r.keep, first, second)
	logger.Debug("sources retrieved", "user", userID, "source", sourceID, "first", len(first), "second", len(second), "kept", len(chunks))

	return chunks, nil
}

func (r *Refiner) rewrite(ctx context.Context, prompt, fallback string) string {
	query, err := llm.Complete(ctx, r.llm, prompt)
	if err != nil {
		logger.Warn("query rewrite failed", "error", err)
		return fallback
	}
	if query == "" {
		return fallback
	}
	return query
}
