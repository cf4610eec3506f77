package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docrag/internal/config"
	"docrag/internal/domain"
)

func writeFixture(t *testing.T, pages string, extra string) (cfgPath, bookPath string) {
	t.Helper()
	dir := t.TempDir()
	bookPath = filepath.Join(dir, "book.txt")
	if err := os.WriteFile(bookPath, []byte(pages), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath = filepath.Join(dir, "config.yaml")
	body := "source:\n  path: " + bookPath + "\nlog:\n  level: error\n" + extra
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, bookPath
}

func TestRunSearch_PrintsRankedPages(t *testing.T) {
	cfg, _ := writeFixture(t,
		"Gothic cathedrals use pointed arches.\fBrutalist buildings expose raw concrete.\fBaroque churches are ornate.", "")
	var out bytes.Buffer
	if err := runSearch(context.Background(), &out, cfg, "", "raw concrete brutalist", intPtr(1)); err != nil {
		t.Fatalf("runSearch: %v", err)
	}
	got := out.String()
	if !strings.HasPrefix(got, "1. page 2 ") || strings.Contains(got, "2. page") {
		t.Fatalf("unexpected output:\n%s", got)
	}
}

func intPtr(v int) *int { return &v }

func TestRunSearch_ZeroKPrintsSentinel(t *testing.T) {
	cfg, _ := writeFixture(t, "Gothic arches.\fBaroque domes.", "")
	var out bytes.Buffer
	if err := runSearch(context.Background(), &out, cfg, "", "gothic", intPtr(0)); err != nil {
		t.Fatalf("runSearch: %v", err)
	}
	if strings.TrimSpace(out.String()) != domain.EmptyResultSentinel {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunSearch_DefaultKFromConfig(t *testing.T) {
	cfg, _ := writeFixture(t, "a gothic\fb gothic\fc gothic\fd", "retrieval:\n  top_k: 2\n")
	var out bytes.Buffer
	if err := runSearch(context.Background(), &out, cfg, "", "gothic", nil); err != nil {
		t.Fatalf("runSearch: %v", err)
	}
	if got := strings.Count(out.String(), ". page "); got != 2 {
		t.Fatalf("printed %d pages:\n%s", got, out.String())
	}
}

func TestRunSearch_EmptyDocumentPrintsSentinel(t *testing.T) {
	cfg, _ := writeFixture(t, "", "")
	var out bytes.Buffer
	if err := runSearch(context.Background(), &out, cfg, "", "anything", intPtr(3)); err != nil {
		t.Fatalf("runSearch: %v", err)
	}
	if strings.TrimSpace(out.String()) != domain.EmptyResultSentinel {
		t.Fatalf("output = %q", out.String())
	}
}

func TestNewApp_MissingSourceIsFatal(t *testing.T) {
	cfg, _ := writeFixture(t, "x", "")
	_, err := newApp(context.Background(), cfg, filepath.Join(t.TempDir(), "missing.pdf"), &bytes.Buffer{})
	if !errors.Is(err, domain.ErrSourceNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestNewApp_SourceFlagOverridesConfig(t *testing.T) {
	cfg, _ := writeFixture(t, "one\ftwo", "")
	other := filepath.Join(t.TempDir(), "other.txt")
	if err := os.WriteFile(other, []byte("a\fb\fc"), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := newApp(context.Background(), cfg, other, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()
	if a.retrieval.Len() != 3 {
		t.Fatalf("indexed %d pages", a.retrieval.Len())
	}
}

func TestNewEmbedder_Selection(t *testing.T) {
	emb, err := newEmbedder(config.EmbedderConfig{Type: "tfidf", CacheSize: 8})
	if err != nil {
		t.Fatalf("newEmbedder: %v", err)
	}
	if emb.Name() != "tfidf+cache" {
		t.Fatalf("name = %q", emb.Name())
	}
	if _, err := newEmbedder(config.EmbedderConfig{Type: "word2vec"}); err == nil {
		t.Fatal("expected unknown embedder error")
	}
	if _, err := newEmbedder(config.EmbedderConfig{Type: "openai"}); err == nil {
		t.Fatal("expected missing openai config error")
	}
}

func TestNewAssistant_RequiresCompletionKey(t *testing.T) {
	cfg, _ := writeFixture(t, "one", "completion:\n  api_key_env: DOCRAG_TEST_MISSING_KEY\n")
	t.Setenv("DOCRAG_TEST_MISSING_KEY", "")
	a, err := newApp(context.Background(), cfg, "", &bytes.Buffer{})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.Close()
	if _, err := a.newAssistant(); err == nil {
		t.Fatal("expected missing key error")
	}
}
