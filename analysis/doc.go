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

// Package analysis contains the semantic evolution and drift engine.
//
// Everything here is pure, request-scoped computation over records that were
// already retrieved from a corpus store:
//
//   - Aggregator buckets timestamped embeddings into periods and computes
//     per-period centroids.
//   - EvolutionPoints, Drift and MaxDrift describe how strongly a concept is
//     present per period and how much discourse moved between periods.
//   - TwoGroupSemanticChange scores the shift between two excerpt sets.
//   - IsMeaningful, SelectTop and FormatExcerpts pick and render evidence.
//   - AnalyzeSpeakerDrift ranks speakers by individual discourse shift.
//
// Nothing in this package performs I/O, retries or caching. A range with no
// data produces an empty result rather than an error.
package analysis
