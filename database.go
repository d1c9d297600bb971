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


package vozpublica

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/Perruchok/vozpublica/ai/openai"
	"github.com/Perruchok/vozpublica/ingestion"
	"github.com/Perruchok/vozpublica/narrative"
	"github.com/Perruchok/vozpublica/reembed"
	"github.com/Perruchok/vozpublica/search"
	"github.com/Perruchok/vozpublica/storage"
	"github.com/Perruchok/vozpublica/storage/badger"
)

// Database owns the storage backend, its repositories and the AI provider,
// and builds the services that operate on them.
type Database struct {
	backend        *badger.Backend
	turnRepo       storage.SpeechTurnRepository
	transcriptRepo storage.TranscriptRepository
	checkpointRepo storage.CheckpointRepository
	provider       ai.AIProvider
	settings       narrative.Settings
	logger         *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	inMemory bool
	settings narrative.Settings
	logger   *slog.Logger
}

// WithAIConfig sets the configuration of the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The Database takes ownership and closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithInMemory keeps all data in memory; the file path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithSettings sets the request defaults of the narrative service.
func WithSettings(settings narrative.Settings) DatabaseOption {
	return func(o *databaseOptions) {
		o.settings = settings
	}
}

// WithLogger sets the logger passed to the services the Database builds.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		settings: narrative.DefaultSettings(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if err := options.settings.Validate(); err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			return nil, err
		}
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		provider.Close()
		return nil, err
	}

	return &Database{
		backend:        backend,
		turnRepo:       badger.NewSpeechTurnRepository(backend),
		transcriptRepo: badger.NewTranscriptRepository(backend),
		checkpointRepo: badger.NewCheckpointRepository(backend),
		provider:       provider,
		settings:       options.settings,
		logger:         options.logger,
	}, nil
}

func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := errors.Join(db.transcriptRepo.Close(), db.turnRepo.Close()); err != nil {
		db.logger.Error("error closing repositories", "err", err)
		return err
	}

	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Ping verifies the storage backend is usable.
func (db *Database) Ping(ctx context.Context) error {
	return db.backend.Ping(ctx)
}

// Store returns the similarity query interface over the corpus.
func (db *Database) Store() storage.CorpusStore {
	return db.backend
}

func (db *Database) SpeechTurnRepository() storage.SpeechTurnRepository {
	return db.turnRepo
}

func (db *Database) TranscriptRepository() storage.TranscriptRepository {
	return db.transcriptRepo
}

func (db *Database) CheckpointRepository() storage.CheckpointRepository {
	return db.checkpointRepo
}

func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// NewIngestionPipeline returns a pipeline with checkpoints enabled.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{
		ingestion.WithCheckpoints(db.checkpointRepo),
		ingestion.WithLogger(db.logger),
	}, opts...)
	return ingestion.NewPipeline(db.turnRepo, db.transcriptRepo, db.provider, opts...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	opts = append([]search.Option{search.WithLogger(db.logger)}, opts...)
	return search.NewSearcher(db.backend, db.provider, opts...)
}

// NewNarrativeService returns a service using the provider's explainer and
// the configured request defaults. The caller must Release it.
func (db *Database) NewNarrativeService(opts ...narrative.Option) (*narrative.Service, error) {
	opts = append([]narrative.Option{
		narrative.WithLogger(db.logger),
		narrative.WithExplainer(db.provider.DriftExplainer()),
		narrative.WithSettings(db.settings),
	}, opts...)
	return narrative.NewService(db.backend, db.provider.Embedder(), opts...)
}

func (db *Database) NewReembedder(config *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	return reembed.NewReembedder(db.turnRepo, db.provider.Embedder(), config, progress)
}

func (db *Database) NewSpeakerBackfiller(progress io.Writer, opts ...reembed.BackfillOption) (*reembed.SpeakerBackfiller, error) {
	return reembed.NewSpeakerBackfiller(db.turnRepo, progress, opts...)
}
