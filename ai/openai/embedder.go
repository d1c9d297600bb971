// Copyright 2025 The vozpublica Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxEmbedRunes bounds the text sent per input. Long plenary turns are cut
// rather than rejected by the host.
const maxEmbedRunes = 8000

// Embedder implements ai.Embedder using an OpenAI-compatible or Azure embeddings API.
type Embedder struct {
	client embeddings.Embedder
	model  string
	logger *slog.Logger
}

func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(append(clientOptions(config, config.EmbeddingHost),
		openai.WithEmbeddingModel(config.EmbeddingModel))...)
	if err != nil {
		return nil, fmt.Errorf("embedding client: %w", err)
	}

	// Newlines are collapsed by prepareText, the wrapper must not touch them again.
	wrapped, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(false))
	if err != nil {
		return nil, fmt.Errorf("embedding client: %w", err)
	}

	return &Embedder{
		client: wrapped,
		model:  config.EmbeddingModel,
		logger: slog.Default().With("component", "embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder creates an ai.Embedder for the configured embedding host and model.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// prepareText collapses runs of whitespace and truncates to maxEmbedRunes.
func prepareText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > maxEmbedRunes {
		text = string(r[:maxEmbedRunes])
	}
	return text
}

// EmbedText embeds a single query or concept.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	prepared := prepareText(text)
	if prepared == "" {
		return nil, fmt.Errorf("cannot embed blank text")
	}

	vector, err := e.client.EmbedQuery(ctx, prepared)
	if err != nil {
		e.logger.Error("embedding request failed", "runes", len([]rune(prepared)), "err", err)
		return nil, err
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("model %s returned an empty vector", e.model)
	}
	return vector, nil
}

// EmbedTexts embeds a batch of speech turns. Every returned vector has the
// same dimension; a host that mixes dimensions in one batch is an error.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	prepared := make([]string, len(texts))
	for i, t := range texts {
		prepared[i] = prepareText(t)
		if prepared[i] == "" {
			return nil, fmt.Errorf("cannot embed blank text at batch index %d", i)
		}
	}
	e.logger.Debug("embedding batch", "count", len(prepared))

	vectors, err := e.client.EmbedDocuments(ctx, prepared)
	if err != nil {
		e.logger.Error("embedding batch failed", "count", len(prepared), "err", err)
		return nil, err
	}
	if len(vectors) != len(prepared) {
		return nil, fmt.Errorf("model %s returned %d vectors for %d texts", e.model, len(vectors), len(prepared))
	}
	for i, v := range vectors {
		if len(v) == 0 || len(v) != len(vectors[0]) {
			return nil, fmt.Errorf("model %s returned a vector of dimension %d at index %d", e.model, len(v), i)
		}
	}
	return vectors, nil
}
