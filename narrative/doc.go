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

// Package narrative orchestrates concept analysis requests.
//
// A request is a single linear transform: embed the concept, retrieve
// matching speech turns from a storage.CorpusStore, run the pure functions of
// package analysis over them and, for contrastive requests, hand the selected
// excerpts to an ai.DriftExplainer. Nothing is persisted and no state is
// shared between requests.
//
// Collaborator failures are wrapped in the core error taxonomy so callers can
// tell them apart:
//
//   - core.ErrInvalidRequest: the request failed validation
//   - core.ErrEmbedding: the concept could not be embedded
//   - core.ErrRetrieval: the corpus query failed
//   - core.ErrExplanation: the explainer failed or returned a malformed analysis
//
// Zero matching speech turns is never an error.
package narrative
