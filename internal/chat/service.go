// Package chat answers one message against a document source, personalized by
// what is remembered about the user, and then lets memory learn from the turn.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bowerhall/notebook/internal/conversation"
	"github.com/bowerhall/notebook/internal/llm"
	"github.com/bowerhall/notebook/internal/logger"
	"github.com/bowerhall/notebook/internal/memory"
	"github.com/bowerhall/notebook/internal/observability"
	"github.com/bowerhall/notebook/internal/vector"
)

const defaultHistoryLimit = 50

var ErrInvalidRequest = errors.New("no sourceId or message")

type Retriever interface {
	Retrieve(ctx context.Context, userID, sourceID, message string) ([]vector.Chunk, error)
}

type Memory interface {
	Fetch(ctx context.Context, userID, message string) string
	Remember(ctx context.Context, userID string, turn memory.Turn) memory.Decision
}

type FactReader interface {
	Facts(ctx context.Context, userID string) ([]string, error)
}

type Transcript interface {
	Append(ctx context.Context, userID, sourceID string, messages ...conversation.Message) error
	Recent(ctx context.Context, userID, sourceID string, limit int) ([]conversation.Message, error)
	All(ctx context.Context, userID, sourceID string) ([]conversation.Message, error)
}

type Deps struct {
	// LLM produces the final answer.
	LLM          llm.LLM
	Retriever    Retriever
	Memory       Memory
	Facts        FactReader
	Transcript   Transcript
	Metrics      *observability.Metrics
	HistoryLimit int
}

type Service struct {
	llm          llm.LLM
	retriever    Retriever
	memory       Memory
	facts        FactReader
	transcript   Transcript
	metrics      *observability.Metrics
	historyLimit int
}

func NewService(deps Deps) *Service {
	limit := deps.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	return &Service{
		llm:          deps.LLM,
		retriever:    deps.Retriever,
		memory:       deps.Memory,
		facts:        deps.Facts,
		transcript:   deps.Transcript,
		metrics:      deps.Metrics,
		historyLimit: limit,
	}
}

type Reply struct {
	Response string
	Messages []conversation.Message
	Decision memory.Decision
}

// Reply answers message for the user's chat on sourceID. The transcript is
// written only once an answer exists; memory write-back follows and never
// fails the turn.
func (s *Service) Reply(ctx context.Context, userID, sourceID, message string) (*Reply, error) {
	if userID == "" || sourceID == "" || strings.TrimSpace(message) == "" {
		s.metrics.Turn("invalid")
		return nil, ErrInvalidRequest
	}

	reply, err := s.reply(ctx, userID, sourceID, message)
	if err != nil {
		s.metrics.Turn("error")
		return nil, err
	}

	s.metrics.Turn("ok")
	return reply, nil
}

func (s *Service) reply(ctx context.Context, userID, sourceID, message string) (*Reply, error) {
	var (
		turnCtx Context
		history []conversation.Message
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		chunks, err := s.retriever.Retrieve(gctx, userID, sourceID, message)
		if err != nil {
			return err
		}
		turnCtx.Chunks = chunks
		return nil
	})

	g.Go(func() error {
		turnCtx.Episodic = s.memory.Fetch(gctx, userID, message)
		return nil
	})

	g.Go(func() error {
		facts, err := s.facts.Facts(gctx, userID)
		if err != nil {
			logger.Warn("fact read failed", "user", userID, "error", err)
			return nil
		}
		turnCtx.Facts = facts
		return nil
	})

	g.Go(func() error {
		recent, err := s.transcript.Recent(gctx, userID, sourceID, s.historyLimit)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		history = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	userMsg := conversation.Message{Role: conversation.RoleUser, Content: message}
	history = TrimHistory(append(history, userMsg), s.historyLimit)

	answer, err := s.answer(ctx, BuildSystemPrompt(turnCtx), history)
	if err != nil {
		return nil, fmt.Errorf("answer: %w", err)
	}

	assistantMsg := conversation.Message{Role: conversation.RoleAssistant, Content: answer}
	if err := s.transcript.Append(ctx, userID, sourceID, userMsg, assistantMsg); err != nil {
		return nil, fmt.Errorf("save transcript: %w", err)
	}

	// a client that hangs up must not abort a commit already under way
	decision := s.remember(context.WithoutCancel(ctx), userID, memory.Turn{User: message, Assistant: answer})

	messages, err := s.transcript.All(ctx, userID, sourceID)
	if err != nil {
		logger.Warn("transcript reload failed", "user", userID, "source", sourceID, "error", err)
		messages = append(history, assistantMsg)
	}

	return &Reply{Response: answer, Messages: messages, Decision: decision}, nil
}

func (s *Service) answer(ctx context.Context, systemPrompt string, history []conversation.Message) (string, error) {
	defer s.metrics.ObserveStage("answer", time.Now())

	messages := make([]llm.Message, 0, len(history))
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	return s.llm.Chat(ctx, systemPrompt, messages)
}

func (s *Service) remember(ctx context.Context, userID string, turn memory.Turn) memory.Decision {
	defer s.metrics.ObserveStage("remember", time.Now())
	return s.memory.Remember(ctx, userID, turn)
}

// History returns the whole transcript of the user's chat on sourceID.
func (s *Service) History(ctx context.Context, userID, sourceID string) ([]conversation.Message, error) {
	if userID == "" || sourceID == "" {
		return nil, ErrInvalidRequest
	}
	return s.transcript.All(ctx, userID, sourceID)
}
