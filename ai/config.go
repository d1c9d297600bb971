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


package ai

import (
	"errors"
	"fmt"
	"strings"
)

// APIType selects the wire dialect used to reach the model host.
type APIType string

const (
	// APITypeOpenAI targets OpenAI or any OpenAI-compatible server (Ollama, vLLM, LocalAI).
	APITypeOpenAI APIType = "openai"
	// APITypeAzure targets an Azure OpenAI resource. Model names are deployment names.
	APITypeAzure APIType = "azure"
)

// DefaultAzureAPIVersion is used when Azure is selected without an explicit version.
const DefaultAzureAPIVersion = "2024-12-01-preview"

// Config holds configuration for AI service providers.
type Config struct {
	// APIType selects between OpenAI-compatible and Azure OpenAI hosts.
	// Default: APITypeOpenAI
	APIType APIType

	// APIVersion is the Azure OpenAI API version. Ignored for APITypeOpenAI.
	APIVersion string

	// APIKey authenticates against the host. Local servers accept any value.
	APIKey string

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// ChatHost is the base URL for the chat completion service used by the
	// drift explainer and the question answerer.
	ChatHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// ChatModel is the model identifier to use for chat completions.
	// Example: "qwen2.5:7b", "gpt-4.1"
	ChatModel string

	// Temperature is the sampling temperature for chat completions.
	// Default: 0.2
	Temperature float64

	// MaxTokens bounds the drift explanation length.
	// Default: 1000
	MaxTokens int

	// AnswerMaxTokens bounds question answers.
	// Default: 600
	AnswerMaxTokens int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithChatHost sets the chat service host URL.
func WithChatHost(host string) ConfigOption {
	return func(c *Config) {
		c.ChatHost = host
	}
}

// WithHost sets both embedding and chat hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ChatHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithChatModel sets the chat model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithAzure switches the config to Azure OpenAI using the given API version.
// An empty version selects DefaultAzureAPIVersion.
func WithAzure(apiVersion string) ConfigOption {
	return func(c *Config) {
		c.APIType = APITypeAzure
		c.APIVersion = apiVersion
	}
}

// WithTemperature sets the chat sampling temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithMaxTokens sets the token budget of drift explanations.
func WithMaxTokens(n int) ConfigOption {
	return func(c *Config) {
		c.MaxTokens = n
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
// By default, both embedding and chat use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		APIType:         APITypeOpenAI,
		APIKey:          "none",
		EmbeddingHost:   defaultHost,
		ChatHost:        defaultHost,
		EmbeddingModel:  "embeddinggemma",
		ChatModel:       "qwen2.5:7b",
		Temperature:     0.2,
		MaxTokens:       1000,
		AnswerMaxTokens: 600,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("https://my-resource.openai.azure.com"),
//	    WithAzure("2024-12-01-preview"),
//	    WithChatModel("gpt-4.1"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// IsAzure reports whether the config targets Azure OpenAI.
func (c *Config) IsAzure() bool {
	return c.APIType == APITypeAzure
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get a /v1 suffix when missing. Azure endpoints are
// only stripped of a trailing slash because the client appends its own paths.
func (c *Config) Normalize() {
	if c.APIType == "" {
		c.APIType = APITypeOpenAI
	}
	if c.IsAzure() {
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
		c.ChatHost = strings.TrimSuffix(c.ChatHost, "/")
		if c.APIVersion == "" {
			c.APIVersion = DefaultAzureAPIVersion
		}
		return
	}
	c.EmbeddingHost = withV1(c.EmbeddingHost)
	c.ChatHost = withV1(c.ChatHost)
}

func withV1(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.APIType != APITypeOpenAI && c.APIType != APITypeAzure {
		return fmt.Errorf("ai config: unknown APIType %q", c.APIType)
	}
	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.ChatHost == "" {
		return errors.New("ai config: ChatHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ChatModel == "" {
		return errors.New("ai config: ChatModel is required")
	}
	if c.IsAzure() && c.APIKey == "" {
		return errors.New("ai config: APIKey is required for Azure")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return errors.New("ai config: Temperature must be between 0 and 2")
	}
	if c.MaxTokens < 1 {
		return errors.New("ai config: MaxTokens must be positive")
	}
	if c.AnswerMaxTokens < 1 {
		return errors.New("ai config: AnswerMaxTokens must be positive")
	}
	return nil
}
