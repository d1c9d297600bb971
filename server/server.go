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


package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/Perruchok/vozpublica/narrative"
	"github.com/Perruchok/vozpublica/search"
	"github.com/gin-gonic/gin"
)

var (
	ErrServiceRequired  = errors.New("narrative service is required")
	ErrSearcherRequired = errors.New("searcher is required")
)

// ShutdownTimeout bounds how long Run waits for in-flight requests.
const ShutdownTimeout = 10 * time.Second

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server routes HTTP requests to the narrative service and the searcher.
type Server struct {
	service  *narrative.Service
	searcher *search.Searcher
	store    Pinger
	aiConfig *ai.Config
	version  string
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithStore sets the backend checked by the readiness probes.
func WithStore(store Pinger) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithAIConfig sets the AI configuration reported by /health/detailed.
func WithAIConfig(config *ai.Config) Option {
	return func(s *Server) {
		s.aiConfig = config
	}
}

func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger.With("component", "server")
		}
	}
}

func New(service *narrative.Service, searcher *search.Searcher, opts ...Option) (*Server, error) {
	if service == nil {
		return nil, ErrServiceRequired
	}
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	s := &Server{
		service:  service,
		searcher: searcher,
		version:  "dev",
		logger:   slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Router builds the gin engine serving every route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(s.logger))

	r.POST("/semantic-evolution", s.SemanticEvolution)
	r.POST("/explain-drift", s.ExplainDrift)
	r.POST("/speaker-drift", s.SpeakerDrift)
	r.POST("/narrative-report", s.NarrativeReport)
	r.POST("/search", s.Search)
	r.POST("/qa", s.QA)

	health := r.Group("/health")
	health.GET("", s.Health)
	health.GET("/live", s.Live)
	health.GET("/ready", s.Ready)
	health.GET("/detailed", s.Detailed)

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
