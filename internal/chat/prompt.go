package chat

import (
	"encoding/json"
	"strings"

	"github.com/bowerhall/notebook/internal/conversation"
	"github.com/bowerhall/notebook/internal/vector"
)

// NoFacts stands in for an empty fact list.
const NoFacts = "Nothing as of now"

const preamble = `You are an AI assistant who helps resolve user queries based on the context available to you. Context can come
from text, pdf, docx, csv or text files, or from a url (web).

Only answer based on the available context.

Give sources as well; if the context is from the web give the relevant urls.`

const instructions = `- Context about the user is only for answering questions about the user and for giving a personalized touch to the answers.
  Do not use it as context to answer any user query.
- Context about the user should give a personalized touch to the user
- Answers to queries must come from the context on source, not from the user context

IMPORTANT:
- I repeat, do not answer anything whose context is not provided, even if you have knowledge about it`

// Context is everything known for one turn beyond the chat history.
type Context struct {
	Facts    []string
	Episodic string
	Chunks   []vector.Chunk
}

// BuildSystemPrompt lays out the personalization blocks, the source block and
// the refusal instructions in a fixed order. Each block has its own label so
// user context is never presented as answerable content.
func BuildSystemPrompt(c Context) string {
	blocks := []string{
		preamble,
		factsBlock(c.Facts),
		episodicBlock(c.Episodic),
		sourceBlock(c.Chunks),
		instructions,
	}
	return strings.Join(blocks, "\n\n")
}

func factsBlock(facts []string) string {
	text := NoFacts
	if len(facts) > 0 {
		b, _ := json.Marshal(facts)
		text = string(b)
	}
	return "Factual context about user :-\n" + text
}

func episodicBlock(episodic string) string {
	return "Episodic context about user :-\n" + episodic
}

func sourceBlock(chunks []vector.Chunk) string {
	return "Context on source provided:\n" + vector.Render(chunks)
}

// TrimHistory keeps the most recent limit messages. A cut window never opens
// on an assistant message, since the completion API expects a user turn first.
func TrimHistory(messages []conversation.Message, limit int) []conversation.Message {
	if limit <= 0 || len(messages) <= limit {
		return messages
	}

	kept := messages[len(messages)-limit:]
	for len(kept) > 1 && kept[0].Role != conversation.RoleUser {
		kept = kept[1:]
	}
	return kept
}
