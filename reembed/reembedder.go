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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of turns to embed per request
	BatchSize int

	// ReportInterval is how often to report progress (number of turns)
	ReportInterval int

	// Retry governs embedding calls
	Retry RetryPolicy

	// OnlyMissing restricts the run to turns that have no vector yet
	OnlyMissing bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		Retry:          DefaultRetryPolicy(),
	}
}

// Result summarizes a maintenance run.
type Result struct {
	Scanned int           `json:"scanned"`
	Updated int           `json:"updated"`
	Elapsed time.Duration `json:"elapsed"`
}

// Reembedder regenerates the embeddings of the stored speech turns.
type Reembedder struct {
	repo      storage.SpeechTurnRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *TurnIterator
	logger    *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.SpeechTurnRepository, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, config.Retry),
		iterator:  NewTurnIterator(repo, config.BatchSize),
		logger:    slog.Default().With("component", "reembedder"),
	}, nil
}

// Run re-embeds every stored speech turn, or only those without a vector
// when OnlyMissing is set. The first batch that fails after retries stops
// the run; turns from earlier batches keep their new vectors.
func (r *Reembedder) Run(ctx context.Context) (*Result, error) {
	total, err := r.repo.CountSpeechTurns(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting speech turns: %w", err)
	}

	result := &Result{}
	if total == 0 {
		fmt.Fprintf(r.progress, "No speech turns found in database (0 turns)\n")
		return result, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d speech turns (batch size: %d)\n",
		total, r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, "turns", total, r.config.ReportInterval)
	tracker.Start()

	err = r.iterator.ForEach(ctx, func(turns []*core.SpeechTurn) error {
		result.Scanned += len(turns)
		batch := turns
		if r.config.OnlyMissing {
			batch = make([]*core.SpeechTurn, 0, len(turns))
			for _, turn := range turns {
				if !turn.HasVector() {
					batch = append(batch, turn)
				}
			}
		}

		if err := r.processor.Process(ctx, batch); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		result.Updated += len(batch)
		tracker.Increment(len(turns))
		return nil
	})
	if err != nil {
		r.logger.Error("reembedding stopped", "scanned", result.Scanned, "updated", result.Updated, "err", err)
		return result, err
	}

	tracker.Finish()
	result.Elapsed = tracker.Elapsed()

	fmt.Fprintf(r.progress, "Reembedding complete. Updated %d of %d speech turns in %v (%.1f turns/sec)\n",
		result.Updated, result.Scanned, result.Elapsed.Round(time.Second), tracker.Rate())
	return result, nil
}
