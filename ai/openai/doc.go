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


// Package openai provides AI service implementations using OpenAI-compatible APIs.
//
// The services are built on langchaingo and talk to OpenAI, Azure OpenAI or
// any OpenAI-compatible server (Ollama, LocalAI, vLLM).
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithHost(os.Getenv("AZURE_OPENAI_ENDPOINT")),
//	    ai.WithAzure("2024-12-01-preview"),
//	    ai.WithAPIKey(os.Getenv("AZURE_OPENAI_API_KEY")),
//	    ai.WithChatModel("gpt-4.1"),
//	    ai.WithEmbeddingModel("text-embedding-3-small"),
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	analysis, err := provider.DriftExplainer().ExplainDrift(ctx, input)
package openai
