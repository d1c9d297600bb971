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


// Package ai provides abstractions for the AI services vozpublica depends on.
//
// The core analysis code never talks to a model directly. It depends on the
// interfaces defined here:
//
//   - Embedder: turns concept strings and speech turns into vectors
//   - DriftExplainer: narrates a measured drift from two excerpt blocks
//   - Answerer: answers questions from retrieved context
//   - AIProvider: aggregates the three for initialization and shutdown
//
// DriftAnalysis is the contract every explainer must honour. ParseDriftAnalysis
// validates raw model output against it and DriftAnalysisSchema renders the
// JSON schema that is embedded in the explainer prompt.
//
// # Implementation Packages
//
//   - ai/openai: langchaingo against OpenAI-compatible hosts or Azure OpenAI
//   - ai/mock: test doubles with function-field injection and call counts
//
// Public constructors in ai/openai return interface types. The mock
// constructors return concrete types so tests can inject behavior and assert
// call counts; mock.NewMockProvider returns the interface and exposes the
// concrete services through GetMockEmbedder, GetMockExplainer and
// GetMockAnswerer.
//
// # Usage Example
//
//	config := ai.NewConfig(ai.WithHost("http://localhost:11434"))
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "seguridad")
package ai
