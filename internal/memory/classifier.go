package memory

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/bowerhall/notebook/internal/llm"
)

// Answer is the parsed result of a yes/no classification call.
type Answer int

const (
	AnswerUnknown Answer = iota
	AnswerYes
	AnswerNo
)

func (a Answer) String() string {
	switch a {
	case AnswerYes:
		return "yes"
	case AnswerNo:
		return "no"
	default:
		return "unknown"
	}
}

// ParseAnswer reads the first word of a model reply, ignoring case, quotes
// and punctuation.
func ParseAnswer(raw string) Answer {
	words := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 {
		return AnswerUnknown
	}

	switch words[0] {
	case "yes":
		return AnswerYes
	case "no":
		return AnswerNo
	default:
		return AnswerUnknown
	}
}

// Decision says where a turn is remembered, if anywhere.
type Decision int

const (
	DecisionSkip Decision = iota
	DecisionFactual
	DecisionEpisodic
)

func (d Decision) String() string {
	switch d {
	case DecisionFactual:
		return "factual"
	case DecisionEpisodic:
		return "episodic"
	default:
		return "skip"
	}
}

// Classify asks whether the turn is worth keeping and, if so, whether it is a
// fact or an episode. An unclear first answer continues to the second
// question; an unclear second answer is treated as episodic.
func (m *Manager) Classify(ctx context.Context, turn Turn) (Decision, error) {
	raw, err := llm.Complete(ctx, m.llm, fmt.Sprintf(longTermPrompt, turn.User, turn.Assistant))
	if err != nil {
		return DecisionSkip, fmt.Errorf("long term check: %w", err)
	}
	if ParseAnswer(raw) == AnswerNo {
		return DecisionSkip, nil
	}

	raw, err = llm.Complete(ctx, m.llm, fmt.Sprintf(factualPrompt, turn.User, turn.Assistant))
	if err != nil {
		return DecisionSkip, fmt.Errorf("factual check: %w", err)
	}
	if ParseAnswer(raw) == AnswerYes {
		return DecisionFactual, nil
	}

	return DecisionEpisodic, nil
}
