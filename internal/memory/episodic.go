package memory

import (
	"context"
	"fmt"

	"github.com/bowerhall/notebook/internal/graph"
	"github.com/bowerhall/notebook/internal/llm"
	"github.com/bowerhall/notebook/internal/logger"
	"github.com/bowerhall/notebook/internal/vector"
)

// writeEpisode commits the turn to the graph and to vector memory. The two
// commits are independent; a failure in one does not stop the other.
func (m *Manager) writeEpisode(ctx context.Context, userID string, turn Turn) {
	err := m.commitGraph(ctx, userID, turn)
	m.metrics.Write("graph", err)
	if err != nil {
		logger.Error("graph commit failed", "user", userID, "error", err)
	}

	err = m.commitVector(ctx, userID, turn)
	m.metrics.Write("vector", err)
	if err != nil {
		logger.Error("vector commit failed", "user", userID, "error", err)
	}
}

func (m *Manager) commitGraph(ctx context.Context, userID string, turn Turn) error {
	records, err := m.graph.Touch(ctx, userID)
	if err != nil {
		return fmt.Errorf("read user graph: %w", err)
	}

	raw, err := llm.Complete(ctx, m.llm, fmt.Sprintf(graphIntentPrompt, graph.Format(records), turn.User, turn.Assistant))
	if err != nil {
		return fmt.Errorf("extract graph intent: %w", err)
	}

	mutation, err := graph.ParseMutation(raw)
	if err != nil {
		return err
	}

	if len(mutation.Relations) == 0 {
		logger.Debug("no graph relations extracted", "user", userID)
		return nil
	}

	if err := m.graph.Apply(ctx, userID, mutation); err != nil {
		return err
	}

	logger.Info("episode graphed", "user", userID, "relations", len(mutation.Relations))
	return nil
}

func (m *Manager) commitVector(ctx context.Context, userID string, turn Turn) error {
	content, err := llm.Complete(ctx, m.llm, fmt.Sprintf(episodePrompt, turn.User, turn.Assistant))
	if err != nil {
		return fmt.Errorf("compress episode: %w", err)
	}

	if content == "" {
		logger.Debug("no episode extracted", "user", userID)
		return nil
	}

	chunk := vector.Chunk{PageContent: content, Metadata: vector.Metadata{UserID: userID}}
	if err := m.vector.Upsert(ctx, []vector.Chunk{chunk}); err != nil {
		return err
	}

	logger.Info("episode remembered", "user", userID, "content", content)
	return nil
}
