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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidTranscript indicates a Transcript failed validation.
	ErrInvalidTranscript = errors.New("invalid transcript")

	// ErrInvalidSpeechTurn indicates a SpeechTurn failed validation.
	ErrInvalidSpeechTurn = errors.New("invalid speech turn")

	// ErrEmptyDocID indicates the document identifier is empty.
	ErrEmptyDocID = errors.New("document id cannot be empty")

	// ErrEmptyContent indicates the Text field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrNegativeSequence indicates a turn has a negative position.
	ErrNegativeSequence = errors.New("sequence cannot be negative")

	// ErrMissingPublishedAt indicates a transcript has no publication date.
	ErrMissingPublishedAt = errors.New("published_at is required")

	// ErrMalformedEmbedding indicates a stored embedding could not be parsed.
	ErrMalformedEmbedding = errors.New("malformed embedding")
)

// Request-level failures. Callers wrap the underlying cause with one of these
// so transports can map them to a response without inspecting messages.
var (
	// ErrInvalidRequest indicates caller input failed validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrEmbedding indicates the embedding provider failed.
	ErrEmbedding = errors.New("embedding failed")

	// ErrRetrieval indicates the corpus store failed.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrExplanation indicates the language model failed or returned an unusable answer.
	ErrExplanation = errors.New("explanation failed")
)
