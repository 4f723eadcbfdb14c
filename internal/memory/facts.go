package memory

import (
	"context"
	"fmt"

	"github.com/bowerhall/notebook/internal/llm"
	"github.com/bowerhall/notebook/internal/logger"
)

func (m *Manager) writeFact(ctx context.Context, userID string, turn Turn) error {
	fact, err := llm.Complete(ctx, m.llm, fmt.Sprintf(factPrompt, turn.User, turn.Assistant))
	if err != nil {
		return fmt.Errorf("compress fact: %w", err)
	}

	if fact == "" {
		logger.Debug("no fact extracted", "user", userID)
		return nil
	}

	if err := m.profile.AppendFact(ctx, userID, fact); err != nil {
		return err
	}

	logger.Info("fact remembered", "user", userID, "fact", fact)
	return nil
}
