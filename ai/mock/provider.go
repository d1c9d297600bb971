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


package mock

import "github.com/Perruchok/vozpublica/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock embedder, explainer and answerer instances.
type MockProvider struct {
	embedder  *MockEmbedder
	explainer *MockExplainer
	answerer  *MockAnswerer
	closed    bool
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use the GetMock* accessors to reach concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return NewMockProviderWithServices(NewMockEmbedder(), NewMockExplainer(), NewMockAnswerer())
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
func NewMockProviderWithServices(embedder *MockEmbedder, explainer *MockExplainer, answerer *MockAnswerer) ai.AIProvider {
	return &MockProvider{
		embedder:  embedder,
		explainer: explainer,
		answerer:  answerer,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// DriftExplainer returns the mock explainer.
func (p *MockProvider) DriftExplainer() ai.DriftExplainer {
	return p.explainer
}

// Answerer returns the mock answerer.
func (p *MockProvider) Answerer() ai.Answerer {
	return p.answerer
}

// Close marks the provider closed.
func (p *MockProvider) Close() error {
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *MockProvider) Closed() bool {
	return p.closed
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockExplainer returns the underlying mock explainer for test assertions.
func (p *MockProvider) GetMockExplainer() *MockExplainer {
	return p.explainer
}

// GetMockAnswerer returns the underlying mock answerer for test assertions.
func (p *MockProvider) GetMockAnswerer() *MockAnswerer {
	return p.answerer
}
