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


// Package search provides semantic search and question answering over the
// speech turn corpus.
//
// Search embeds the query, fetches nearest neighbours without a similarity
// threshold and keeps only meaningful turns (see analysis.IsMeaningful).
// Ask retrieves the closest turns, renders them as context blocks and lets an
// ai.Answerer answer from that context only.
package search
