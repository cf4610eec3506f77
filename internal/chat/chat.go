// Package chat assembles retrieval-augmented conversations and streams
// answers from a chat completion service.
package chat

import (
	"context"
	"strings"

	"docrag/internal/domain"
)

// DefaultSystemPrompt is the persona used when the configuration sets none.
const DefaultSystemPrompt = "You are an expert in architecture. You provide accurate and concise information about different architectural styles, techniques, and famous buildings."

// contextPrefix introduces the retrieved pages to the model.
const contextPrefix = "Relevant documents: "

// Params are the sampling parameters forwarded to the completion service.
type Params struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// Stream yields answer fragments in order. Recv returns io.EOF once the
// answer is complete. Close may be called at any time to stop early.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Completer starts a streamed completion for a conversation.
type Completer interface {
	Stream(ctx context.Context, messages []domain.Message, params Params) (Stream, error)
}

// Retriever returns the most relevant page texts for a question.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// BuildMessages lays out a conversation: the system prompt, the non-empty
// parts of every past turn, the new user message, and finally a system
// message carrying the retrieved pages.
func BuildMessages(systemPrompt string, history []domain.Turn, message string, retrieved []string) []domain.Message {
	msgs := make([]domain.Message, 0, 2*len(history)+3)
	msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: systemPrompt})
	for _, turn := range history {
		if turn.User != "" {
			msgs = append(msgs, domain.Message{Role: domain.RoleUser, Content: turn.User})
		}
		if turn.Assistant != "" {
			msgs = append(msgs, domain.Message{Role: domain.RoleAssistant, Content: turn.Assistant})
		}
	}
	msgs = append(msgs, domain.Message{Role: domain.RoleUser, Content: message})
	msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: contextPrefix + strings.Join(retrieved, "\n")})
	return msgs
}
