package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"docrag/internal/chat"
	"docrag/internal/chunker"
	"docrag/internal/config"
	"docrag/internal/domain"
	"docrag/internal/embedding"
	"docrag/internal/embedding/cache"
	"docrag/internal/embedding/openai"
	"docrag/internal/embedding/tfidf"
	"docrag/internal/extract"
	"docrag/internal/logging"
	"docrag/internal/service"
	"docrag/internal/summarizer"
)

// app holds the assembled components for one command run.
type app struct {
	cfg       *config.AppConfig
	logger    *slog.Logger
	closeLog  io.Closer
	retrieval *service.Retrieval
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(path)
}

// newApp loads configuration, sets up logging and initializes retrieval
// over the configured source. logFallback receives log output when no log
// file is configured.
func newApp(ctx context.Context, cfgPath, source string, logFallback io.Writer) (*app, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if source != "" {
		cfg.Source.Path = source
	}
	logger, closer, err := logging.New(cfg.Log.Level, cfg.Log.File, logFallback)
	if err != nil {
		return nil, err
	}

	ext, err := extract.New(cfg.Extractor.Type, chunker.NewSentenceChunker(cfg.Extractor.SentencesPerUnit, cfg.Extractor.OverlapSentences))
	if err != nil {
		closer.Close()
		return nil, err
	}
	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		closer.Close()
		return nil, err
	}
	sum, err := newSummarizer(cfg.Summarizer)
	if err != nil {
		closer.Close()
		return nil, err
	}

	opts := []service.Option{service.WithLogger(logger)}
	if sum != nil {
		opts = append(opts, service.WithSummarizer(sum, cfg.Summarizer.MaxSentences))
	}
	r := service.NewRetrieval(ext, emb, opts...)
	if err := r.Initialize(ctx, cfg.Source.Path); err != nil {
		logger.Error("initialization failed", "source", cfg.Source.Path, "err", err)
		closer.Close()
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, closeLog: closer, retrieval: r}, nil
}

func (a *app) Close() error { return a.closeLog.Close() }

func newEmbedder(cfg config.EmbedderConfig) (embedding.Embedder, error) {
	var emb embedding.Embedder
	switch cfg.Type {
	case "tfidf", "":
		emb = tfidf.NewEmbedder()
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			BatchSize: cfg.OpenAI.BatchSize,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
	if cfg.CacheSize > 0 {
		return cache.New(emb, cfg.CacheSize)
	}
	return emb, nil
}

func newSummarizer(cfg config.SummarizerConfig) (domain.Summarizer, error) {
	switch cfg.Type {
	case "frequency", "":
		return summarizer.NewFrequencySummarizer(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Type)
	}
}

// newAssistant connects the retrieval service to the completion endpoint.
func (a *app) newAssistant() (*chat.Assistant, error) {
	c := a.cfg.Completion
	client, err := chat.NewOpenAIClient(chat.OpenAIConfig{
		BaseURL:   c.BaseURL,
		APIKeyEnv: c.APIKeyEnv,
		Model:     c.Model,
		Timeout:   time.Duration(c.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("completion client: %w", err)
	}
	params := chat.Params{MaxTokens: c.MaxTokens, Temperature: c.Temperature, TopP: c.TopP}
	return chat.NewAssistant(a.retrieval, client, c.SystemPrompt, a.cfg.Retrieval.TopK, params), nil
}
