package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"docrag/internal/domain"
)

// Assistant answers questions about the indexed document.
type Assistant struct {
	retriever    Retriever
	completer    Completer
	systemPrompt string
	topK         int
	params       Params
}

func NewAssistant(retriever Retriever, completer Completer, systemPrompt string, topK int, params Params) *Assistant {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Assistant{retriever: retriever, completer: completer, systemPrompt: systemPrompt, topK: topK, params: params}
}

// Ask retrieves context for message and starts streaming the answer.
func (a *Assistant) Ask(ctx context.Context, history []domain.Turn, message string) (Stream, error) {
	docs, err := a.retriever.Search(ctx, message, a.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	return a.AskWithContext(ctx, history, message, docs)
}

// AskWithContext starts streaming an answer grounded on pages the caller
// has already retrieved.
func (a *Assistant) AskWithContext(ctx context.Context, history []domain.Turn, message string, retrieved []string) (Stream, error) {
	stream, err := a.completer.Stream(ctx, BuildMessages(a.systemPrompt, history, message, retrieved), a.params)
	if err != nil {
		return nil, fmt.Errorf("start completion: %w", err)
	}
	return stream, nil
}

// Drain reads the stream to the end, calling onFragment with each fragment,
// and returns the full answer. The stream is closed on return.
func Drain(stream Stream, onFragment func(string)) (string, error) {
	defer stream.Close()
	var sb strings.Builder
	for {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(frag)
		if onFragment != nil {
			onFragment(frag)
		}
	}
}
