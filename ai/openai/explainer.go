package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxParseAttempts bounds how often a malformed analysis is regenerated.
const maxParseAttempts = 3

// DriftExplainer implements ai.DriftExplainer using an OpenAI-compatible chat API in JSON mode.
type DriftExplainer struct {
	client      llms.Model
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// newDriftExplainer is an internal constructor that returns the concrete type.
func newDriftExplainer(config *ai.Config) (*DriftExplainer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	opts := append(clientOptions(config, config.ChatHost), openai.WithModel(config.ChatModel))
	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return newDriftExplainerWithModel(client, config), nil
}

func newDriftExplainerWithModel(client llms.Model, config *ai.Config) *DriftExplainer {
	return &DriftExplainer{
		client:      client,
		temperature: config.Temperature,
		maxTokens:   config.MaxTokens,
		logger:      slog.Default().With("component", "openai-explainer"),
	}
}

// NewDriftExplainer creates a new drift explainer using the provided configuration.
//
// Returns ai.DriftExplainer interface to enforce abstraction.
func NewDriftExplainer(config *ai.Config) (ai.DriftExplainer, error) {
	return newDriftExplainer(config)
}

// ExplainDrift asks the model to narrate a measured drift. Responses that do
// not match ai.DriftAnalysis are regenerated a bounded number of times and
// then reported as ai.ErrMalformedAnalysis. Transport failures are returned
// immediately.
func (e *DriftExplainer) ExplainDrift(ctx context.Context, input ai.ExplainInput) (*ai.DriftAnalysis, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, explainerSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildExplainerPrompt(input)),
	}

	var lastErr error
	for attempt := 0; attempt < maxParseAttempts; attempt++ {
		response, err := e.client.GenerateContent(ctx, content,
			llms.WithTemperature(e.temperature),
			llms.WithMaxTokens(e.maxTokens),
			llms.WithJSONMode(),
		)
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			lastErr = fmt.Errorf("%w: no choices returned", ai.ErrMalformedAnalysis)
			e.logger.Warn("no choices returned from model", "attempt", attempt+1)
			continue
		}

		analysis, err := ai.ParseDriftAnalysis([]byte(cleanResponse(response.Choices[0].Content)))
		if err != nil {
			lastErr = err
			e.logger.Warn("error parsing explainer response",
				"attempt", attempt+1,
				"response", response.Choices[0].Content,
				"err", err)
			continue
		}
		return analysis, nil
	}

	e.logger.Error("failed to parse explainer response after retries", "err", lastErr)
	if !errors.Is(lastErr, ai.ErrMalformedAnalysis) {
		lastErr = fmt.Errorf("%w: %w", ai.ErrMalformedAnalysis, lastErr)
	}
	return nil, lastErr
}

// cleanResponse strips markdown code fences and repairs common key quoting mistakes.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return repairJSON(strings.TrimSpace(s))
}
