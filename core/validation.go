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

import (
	"fmt"
	"strings"
)

// ValidateTranscript validates a Transcript according to domain rules.
//
// Validation rules:
//   - DocID must not be blank
//   - PublishedAt must be set
//
// Title and Href are optional.
func ValidateTranscript(t *Transcript) error {
	if t == nil {
		return fmt.Errorf("%w: transcript is nil", ErrInvalidTranscript)
	}

	if strings.TrimSpace(t.DocID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTranscript, ErrEmptyDocID)
	}

	if t.PublishedAt.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidTranscript, ErrMissingPublishedAt)
	}

	return nil
}

// ValidateSpeechTurn validates a SpeechTurn according to domain rules.
//
// Validation rules:
//   - DocID must not be blank
//   - Sequence must not be negative
//   - Text must not be blank
//
// NOT validated (populated later):
//   - Vector (empty until the embedding processor runs)
//   - SpeakerNormalized and Role (filled by the speaker parser or backfill)
func ValidateSpeechTurn(turn *SpeechTurn) error {
	if turn == nil {
		return fmt.Errorf("%w: turn is nil", ErrInvalidSpeechTurn)
	}

	if strings.TrimSpace(turn.DocID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSpeechTurn, ErrEmptyDocID)
	}

	if turn.Sequence < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSpeechTurn, ErrNegativeSequence)
	}

	if strings.TrimSpace(turn.Text) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSpeechTurn, ErrEmptyContent)
	}

	return nil
}
