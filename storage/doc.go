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


// Package storage defines the persistence boundary of vozpublica.
//
// The analysis code never talks to a database directly. It consumes the
// narrow CorpusStore interface, whose single QuerySimilar call returns a
// complete, typed result set of speech turns joined with their transcript.
// Everything else here (transcripts, speech turns, import checkpoints) serves
// ingestion and maintenance.
//
// # Architecture
//
//   - CorpusStore: similarity retrieval with an optional inclusive date range
//   - SpeechTurnRepository: speech turns plus a publication-date index
//   - TranscriptRepository: transcript metadata keyed by document id
//   - CheckpointRepository: resumable import progress
//
// The badger subpackage implements all of them on top of BadgerDB:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	turns := badger.NewSpeechTurnRepository(backend)
//
// Tests use the in-memory variant:
//
//	repos, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context. Long scans check it
// between items and stop with ctx.Err() when it is done.
package storage
