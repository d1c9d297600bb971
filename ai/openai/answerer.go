package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Answerer implements ai.Answerer with a retrieval-augmented chat completion.
type Answerer struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

func newAnswerer(config *ai.Config) (*Answerer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := append(clientOptions(config, config.ChatHost), openai.WithModel(config.ChatModel))
	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return newAnswererWithModel(client, config), nil
}

func newAnswererWithModel(client llms.Model, config *ai.Config) *Answerer {
	return &Answerer{
		client:      client,
		temperature: config.Temperature,
		maxTokens:   config.AnswerMaxTokens,
		logger:      slog.Default().With("component", "openai-answerer"),
	}
}

// NewAnswerer creates a new answerer using the provided configuration.
func NewAnswerer(config *ai.Config) (ai.Answerer, error) {
	return newAnswerer(config)
}

// Answer answers question from contextBlock only.
func (a *Answerer) Answer(ctx context.Context, question, contextBlock string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, answererSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeSystem, buildContextPrompt(contextBlock)),
		llms.TextParts(llms.ChatMessageTypeHuman, question),
	}

	response, err := a.client.GenerateContent(ctx, content,
		llms.WithTemperature(a.temperature),
		llms.WithMaxTokens(a.maxTokens),
	)
	if err != nil {
		a.logger.Error("failed to generate answer", "err", err)
		return "", err
	}
	if len(response.Choices) < 1 {
		a.logger.Warn("no choices returned from model")
		return "", nil
	}
	return strings.TrimSpace(response.Choices[0].Content), nil
}
