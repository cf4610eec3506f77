package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"docrag/internal/domain"
)

func TestBuildMessages_Order(t *testing.T) {
	history := []domain.Turn{
		{User: "What is a nave?", Assistant: "The central aisle."},
		{User: "", Assistant: "greeting"},
		{User: "And an apse?", Assistant: ""},
	}
	got := BuildMessages("sys", history, "Tell me about domes", []string{"page one", "page two"})
	want := []domain.Message{
		{Role: domain.RoleSystem, Content: "sys"},
		{Role: domain.RoleUser, Content: "What is a nave?"},
		{Role: domain.RoleAssistant, Content: "The central aisle."},
		{Role: domain.RoleAssistant, Content: "greeting"},
		{Role: domain.RoleUser, Content: "And an apse?"},
		{Role: domain.RoleUser, Content: "Tell me about domes"},
		{Role: domain.RoleSystem, Content: "Relevant documents: page one\npage two"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

type sliceStream struct {
	frags  []string
	err    error
	closed bool
}

func (s *sliceStream) Recv() (string, error) {
	if len(s.frags) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	f := s.frags[0]
	s.frags = s.frags[1:]
	return f, nil
}

func (s *sliceStream) Close() error { s.closed = true; return nil }

type recordingCompleter struct {
	messages []domain.Message
	params   Params
	stream   *sliceStream
}

func (c *recordingCompleter) Stream(ctx context.Context, messages []domain.Message, params Params) (Stream, error) {
	c.messages = messages
	c.params = params
	return c.stream, nil
}

type staticRetriever struct {
	k    int
	docs []string
	err  error
}

func (r *staticRetriever) Search(ctx context.Context, query string, k int) ([]string, error) {
	r.k = k
	return r.docs, r.err
}

func TestAssistant_AskUsesRetrievedContext(t *testing.T) {
	ret := &staticRetriever{docs: []string{"Gothic page"}}
	comp := &recordingCompleter{stream: &sliceStream{frags: []string{"Pointed ", "arches."}}}
	a := NewAssistant(ret, comp, "", 3, Params{MaxTokens: 512, Temperature: 0.7, TopP: 0.95})

	stream, err := a.Ask(context.Background(), nil, "Gothic?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	var seen []string
	answer, err := Drain(stream, func(f string) { seen = append(seen, f) })
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if answer != "Pointed arches." || len(seen) != 2 || !comp.stream.closed {
		t.Fatalf("answer=%q seen=%q closed=%v", answer, seen, comp.stream.closed)
	}
	if ret.k != 3 {
		t.Fatalf("retrieved with k=%d", ret.k)
	}
	if comp.messages[0].Content != DefaultSystemPrompt {
		t.Fatalf("system prompt = %q", comp.messages[0].Content)
	}
	last := comp.messages[len(comp.messages)-1]
	if last.Role != domain.RoleSystem || last.Content != "Relevant documents: Gothic page" {
		t.Fatalf("context message = %+v", last)
	}
	if comp.params.MaxTokens != 512 {
		t.Fatalf("params not forwarded: %+v", comp.params)
	}
}

func TestAssistant_RetrievalErrorStopsEarly(t *testing.T) {
	comp := &recordingCompleter{}
	a := NewAssistant(&staticRetriever{err: domain.ErrDimensionMismatch}, comp, "sys", 3, Params{})
	_, err := a.Ask(context.Background(), nil, "q")
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("got %v", err)
	}
	if comp.messages != nil {
		t.Fatal("completion started despite retrieval failure")
	}
}

func TestAssistant_AskWithContextSkipsRetrieval(t *testing.T) {
	ret := &staticRetriever{err: errors.New("must not be called")}
	comp := &recordingCompleter{stream: &sliceStream{frags: []string{"ok"}}}
	a := NewAssistant(ret, comp, "sys", 3, Params{})

	stream, err := a.AskWithContext(context.Background(), nil, "Domes?", []string{"Domes page", "Vaults page"})
	if err != nil {
		t.Fatalf("AskWithContext: %v", err)
	}
	if _, err := Drain(stream, nil); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if ret.k != 0 {
		t.Fatalf("retriever called with k=%d", ret.k)
	}
	last := comp.messages[len(comp.messages)-1]
	if last.Content != "Relevant documents: Domes page\nVaults page" {
		t.Fatalf("context message = %+v", last)
	}
}

func TestDrain_ReturnsPartialAnswerOnError(t *testing.T) {
	boom := errors.New("connection reset")
	answer, err := Drain(&sliceStream{frags: []string{"part"}, err: boom}, nil)
	if !errors.Is(err, boom) || answer != "part" {
		t.Fatalf("answer=%q err=%v", answer, err)
	}
}

func TestOpenAIClient_Stream(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frag := range []string{"Flying ", "", "buttresses"} {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", frag)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer ts.Close()

	t.Setenv("DOCRAG_CHAT_KEY", "sk-test")
	c, err := NewOpenAIClient(OpenAIConfig{BaseURL: ts.URL, APIKeyEnv: "DOCRAG_CHAT_KEY", Model: "zephyr", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	stream, err := c.Stream(context.Background(), []domain.Message{{Role: domain.RoleUser, Content: "hi"}}, Params{MaxTokens: 16})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	answer, err := Drain(stream, nil)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if answer != "Flying buttresses" {
		t.Fatalf("answer = %q", answer)
	}
	if got.Model != "zephyr" || !got.Stream || len(got.Messages) != 1 || got.Messages[0].Content != "hi" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestNewOpenAIClient_RequiresKeyAndModel(t *testing.T) {
	t.Setenv("DOCRAG_CHAT_KEY", "")
	if _, err := NewOpenAIClient(OpenAIConfig{APIKeyEnv: "DOCRAG_CHAT_KEY", Model: "m"}); err == nil {
		t.Fatal("expected missing key error")
	}
	t.Setenv("DOCRAG_CHAT_KEY", "sk-test")
	if _, err := NewOpenAIClient(OpenAIConfig{APIKeyEnv: "DOCRAG_CHAT_KEY"}); err == nil {
		t.Fatal("expected missing model error")
	}
}
