package llm

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey         string
	Model          string
	Temperature    float64
	SystemTemplate string
	PollInterval   time.Duration
	PollAttempts   int
}

// Gemini indexes PDFs and chats about them using one genai client.
type Gemini struct {
	*Indexer
	*ChatEngine
}

func NewGemini(ctx context.Context, config GeminiConfig) (*Gemini, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	return newGemini(config, client.Models, client.Files)
}

func newGemini(config GeminiConfig, models contentGenerator, files fileService) (*Gemini, error) {
	chat, err := newChatEngine(ChatConfig{
		Model:          config.Model,
		Temperature:    config.Temperature,
		SystemTemplate: config.SystemTemplate,
	}, models, files)
	if err != nil {
		return nil, err
	}

	return &Gemini{
		Indexer: newIndexer(IndexerConfig{
			PollInterval: config.PollInterval,
			PollAttempts: config.PollAttempts,
		}, files),
		ChatEngine: chat,
	}, nil
}
