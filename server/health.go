package server

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// readyTimeout bounds the store check of the readiness probes.
const readyTimeout = 5 * time.Second

// Health answers as long as the process can serve requests.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}

func (s *Server) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Ready reports 503 until the store answers.
func (s *Server) Ready(c *gin.Context) {
	check := s.checkStore(c.Request.Context())
	if check.Status != "healthy" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": check.Error})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// DependencyStatus is one entry of the detailed health report.
type DependencyStatus struct {
	Status         string  `json:"status"`
	ResponseTimeMS float64 `json:"response_time_ms,omitempty"`
	Error          string  `json:"error,omitempty"`
	APIType        string  `json:"api_type,omitempty"`
	EmbeddingHost  string  `json:"embedding_host,omitempty"`
	EmbeddingModel string  `json:"embedding_model,omitempty"`
	ChatModel      string  `json:"chat_model,omitempty"`
	APIVersion     string  `json:"api_version,omitempty"`
}

type DetailedHealth struct {
	Status       string                      `json:"status"`
	Version      string                      `json:"version"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

// Detailed checks the store and the AI configuration. It answers 503 when
// either is unusable. The AI host is never called.
func (s *Server) Detailed(c *gin.Context) {
	store := s.checkStore(c.Request.Context())
	model := s.checkAI()

	resp := DetailedHealth{
		Status:  "healthy",
		Version: s.version,
		Dependencies: map[string]DependencyStatus{
			"database": store,
			"ai":       model,
		},
	}
	status := http.StatusOK
	if store.Status != "healthy" || model.Status != "configured" {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (s *Server) checkStore(ctx context.Context) DependencyStatus {
	if s.store == nil {
		return DependencyStatus{Status: "unhealthy", Error: "no store configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	start := time.Now()
	if err := s.store.Ping(ctx); err != nil {
		return DependencyStatus{Status: "unhealthy", Error: err.Error()}
	}
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	return DependencyStatus{
		Status:         "healthy",
		ResponseTimeMS: math.Round(elapsed*100) / 100,
	}
}

func (s *Server) checkAI() DependencyStatus {
	if s.aiConfig == nil {
		return DependencyStatus{Status: "misconfigured", Error: "no AI configuration"}
	}
	cfg := *s.aiConfig
	if err := cfg.Validate(); err != nil {
		return DependencyStatus{Status: "misconfigured", Error: err.Error()}
	}
	return DependencyStatus{
		Status:         "configured",
		APIType:        string(cfg.APIType),
		EmbeddingHost:  cfg.EmbeddingHost,
		EmbeddingModel: cfg.EmbeddingModel,
		ChatModel:      cfg.ChatModel,
		APIVersion:     cfg.APIVersion,
	}
}
