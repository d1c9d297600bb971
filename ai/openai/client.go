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
	"github.com/Perruchok/vozpublica/ai"
	"github.com/tmc/langchaingo/llms/openai"
)

// clientOptions returns the langchaingo options shared by every client built
// for host, switching to the Azure dialect when configured.
func clientOptions(config *ai.Config, host string) []openai.Option {
	token := config.APIKey
	if token == "" {
		// Local OpenAI-compatible services ignore the token but the client requires one.
		token = "none"
	}
	opts := []openai.Option{
		openai.WithBaseURL(host),
		openai.WithToken(token),
	}
	if config.IsAzure() {
		opts = append(opts,
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithAPIVersion(config.APIVersion),
		)
	}
	return opts
}
