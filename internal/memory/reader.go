package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bowerhall/notebook/internal/graph"
	"github.com/bowerhall/notebook/internal/llm"
	"github.com/bowerhall/notebook/internal/logger"
	"github.com/bowerhall/notebook/internal/vector"
)

// Fetch builds the episodic context block for a message. It never fails:
// any error yields NoContext.
func (m *Manager) Fetch(ctx context.Context, userID, message string) string {
	defer m.metrics.ObserveStage("memory_fetch", time.Now())

	block, err := m.fetch(ctx, userID, message)
	if err != nil {
		logger.Warn("memory fetch failed", "user", userID, "error", err)
		m.metrics.Fetch("degraded")
		return NoContext
	}

	m.metrics.Fetch("ok")
	return block
}

func (m *Manager) fetch(ctx context.Context, userID, message string) (string, error) {
	records, err := m.graph.Subgraph(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("read user graph: %w", err)
	}
	graphMap := graph.Format(records)

	hits, err := m.vector.Search(ctx, message, vector.Filter{UserID: userID}, m.topK)
	if err != nil {
		return "", fmt.Errorf("search memory: %w", err)
	}

	chunks := NoVectorMemory
	if len(hits) > 0 {
		chunks = vector.Render(hits)
	}

	relations := NoGraphMemory
	if strings.TrimSpace(graphMap) != "" {
		relations, err = llm.Complete(ctx, m.llm, fmt.Sprintf(relevantGraphPrompt, chunks, graphMap))
		if err != nil {
			return "", fmt.Errorf("filter graph: %w", err)
		}
	}

	return fmt.Sprintf(userContextTemplate, relations, chunks), nil
}
