// Package memory decides what a chat turn teaches about the user, commits it
// to the fact list or the episodic graph and vector memory, and reads that
// knowledge back for the next turn.
package memory

import (
	"context"

	"github.com/bowerhall/notebook/internal/graph"
	"github.com/bowerhall/notebook/internal/llm"
	"github.com/bowerhall/notebook/internal/logger"
	"github.com/bowerhall/notebook/internal/observability"
	"github.com/bowerhall/notebook/internal/profile"
	"github.com/bowerhall/notebook/internal/vector"
)

const (
	// NoContext replaces the episodic block whenever reading memory fails.
	NoContext = "No context as of now"

	NoVectorMemory = "No relevant information found in vector memory."
	NoGraphMemory  = "No relevant information and relationships found in graph map."

	defaultTopK = 3
)

// Turn is one user message and the assistant reply to it.
type Turn struct {
	User      string
	Assistant string
}

type Deps struct {
	// LLM runs classification, compression and graph extraction.
	LLM llm.LLM
	// Vector is the memory collection, separate from document sources.
	Vector  vector.Store
	Graph   graph.Store
	Profile profile.Store
	Metrics *observability.Metrics
	// TopK bounds memory search hits; zero means 3.
	TopK int
}

type Manager struct {
	llm     llm.LLM
	vector  vector.Store
	graph   graph.Store
	profile profile.Store
	metrics *observability.Metrics
	topK    int
}

func NewManager(deps Deps) *Manager {
	topK := deps.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	return &Manager{
		llm:     deps.LLM,
		vector:  deps.Vector,
		graph:   deps.Graph,
		profile: deps.Profile,
		metrics: deps.Metrics,
		topK:    topK,
	}
}

// Remember classifies the turn and commits it. Failures are logged and never
// returned; the decision that was acted on is reported.
func (m *Manager) Remember(ctx context.Context, userID string, turn Turn) Decision {
	decision, err := m.Classify(ctx, turn)
	if err != nil {
		logger.Error("memory classification failed", "user", userID, "error", err)
		m.metrics.Write("classify", err)
		return DecisionSkip
	}

	m.metrics.Decision(decision.String())
	logger.Debug("memory decision", "user", userID, "decision", decision)

	switch decision {
	case DecisionFactual:
		err := m.writeFact(ctx, userID, turn)
		m.metrics.Write("fact", err)
		if err != nil {
			logger.Error("fact write failed", "user", userID, "error", err)
		}
	case DecisionEpisodic:
		m.writeEpisode(ctx, userID, turn)
	}

	return decision
}
