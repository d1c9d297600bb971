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


package reembed

import (
	"context"
	"time"

	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/storage"
)

// DefaultBatchSize is the default number of speech turns handled per batch.
const DefaultBatchSize = 100

// The publication date index is scanned over the whole representable range so
// turns without a date are visited too.
var (
	scanStart = time.Time{}
	scanEnd   = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
)

// TurnIterator iterates over all speech turns in batches, in publication order.
type TurnIterator struct {
	repo      storage.SpeechTurnRepository
	batchSize int
}

// NewTurnIterator creates a new iterator. A non-positive batchSize means
// DefaultBatchSize.
func NewTurnIterator(repo storage.SpeechTurnRepository, batchSize int) *TurnIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &TurnIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each batch of turns.
// Iteration stops on the first error from fn or when ctx is done; the
// context is checked between batches.
func (it *TurnIterator) ForEach(ctx context.Context, fn func([]*core.SpeechTurn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	turns, err := it.repo.GetSpeechTurnsByDateRange(ctx, scanStart, scanEnd)
	if err != nil {
		return err
	}

	for i := 0; i < len(turns); i += it.batchSize {
		end := min(i+it.batchSize, len(turns))
		if err := fn(turns[i:end]); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
